package validation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zfogg/sidechain/views/internal/logger"
	"go.uber.org/zap"
)

// CheckTimeout bounds each service probe
const CheckTimeout = 10 * time.Second

// Check probes one backing service
type Check func(ctx context.Context) error

// ServiceValidator handles validation of backing services at startup.
// Services named as required must register a check that passes.
type ServiceValidator struct {
	requiredServices []string
	checks           map[string]Check
}

// NewServiceValidator creates a validator for the given required service names
func NewServiceValidator(required []string) *ServiceValidator {
	normalized := make([]string, 0, len(required))
	for _, name := range required {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			normalized = append(normalized, name)
		}
	}
	return &ServiceValidator{
		requiredServices: normalized,
		checks:           make(map[string]Check),
	}
}

// Register adds a probe for name. A nil check marks the service as
// not configured.
func (sv *ServiceValidator) Register(name string, check Check) {
	sv.checks[strings.ToLower(name)] = check
}

// ValidateServices runs the check of every required service
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.requiredServices) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}

	logger.Log.Info("🔍 Validating required services",
		zap.Strings("services", sv.requiredServices),
	)

	for _, serviceName := range sv.requiredServices {
		check, ok := sv.checks[serviceName]
		if !ok {
			return fmt.Errorf("unknown required service %q", serviceName)
		}
		if check == nil {
			return fmt.Errorf("required service %q is not configured", serviceName)
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, CheckTimeout)
		err := check(timeoutCtx)
		cancel()
		if err != nil {
			logger.Log.Error("❌ Required service validation failed",
				zap.String("service", serviceName),
				zap.Error(err),
			)
			return fmt.Errorf("required service %q validation failed: %w", serviceName, err)
		}

		logger.Log.Info("✅ Service validated successfully",
			zap.String("service", serviceName),
		)
	}

	logger.Log.Info("✅ All required services validated successfully")
	return nil
}
