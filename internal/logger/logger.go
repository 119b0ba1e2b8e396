package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger. It discards everything until Initialize runs.
var Log = zap.NewNop()

// level is shared by every core so SetLevel applies without rebuilding Log
var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// Initialize builds the global logger: human-readable console output plus
// a rotated JSON file. logFile "-" keeps console output only.
func Initialize(logLevel string, logFile string) error {
	if logFile == "" {
		logFile = "server.log"
	}
	if err := SetLevel(logLevel); err != nil {
		return err
	}

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(os.Stdout),
			level,
		),
	}
	if logFile != "-" {
		cores = append(cores, fileCore(logFile))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	Log.Info("Logger initialized",
		zap.String("level", level.String()),
		zap.String("file", logFile),
	)
	return nil
}

func fileCore(path string) zapcore.Core {
	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     7, // days
		Compress:   true,
	})

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), writer, level)
}

// SetLevel changes the minimum level of the running logger. An empty
// string means info.
func SetLevel(logLevel string) error {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "", "info":
		level.SetLevel(zapcore.InfoLevel)
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "warn", "warning":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	default:
		return fmt.Errorf("unknown log level %q", logLevel)
	}
	return nil
}

// Close flushes buffered entries
func Close() error {
	return Log.Sync()
}

// ErrorWithFields logs msg at error level with err attached when non-nil
func ErrorWithFields(msg string, err error) {
	if err != nil {
		Log.Error(msg, zap.Error(err))
		return
	}
	Log.Error(msg)
}

// Field helpers shared by handlers, services and middleware

func WithRequestID(requestID string) zap.Field {
	return zap.String("request_id", requestID)
}

func WithUserID(userID string) zap.Field {
	return zap.String("user_id", userID)
}

// WithRequesterID is the authenticated caller, as opposed to the user being read
func WithRequesterID(requesterID string) zap.Field {
	return zap.String("requester_id", requesterID)
}

func WithViewerID(viewerID string) zap.Field {
	return zap.String("viewer_id", viewerID)
}

func WithPostID(postID string) zap.Field {
	return zap.String("post_id", postID)
}

func WithIP(ip string) zap.Field {
	return zap.String("ip", ip)
}

func WithStatus(status int) zap.Field {
	return zap.Int("status", status)
}
