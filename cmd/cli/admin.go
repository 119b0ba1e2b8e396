package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zfogg/sidechain/views/internal/auth"
	"github.com/zfogg/sidechain/views/internal/config"
	"github.com/zfogg/sidechain/views/internal/database"
	"github.com/zfogg/sidechain/views/internal/logger"
	"github.com/zfogg/sidechain/views/internal/models"
	"github.com/zfogg/sidechain/views/internal/privacy"
	"github.com/zfogg/sidechain/views/internal/repair"
	"github.com/zfogg/sidechain/views/internal/repository"
	"github.com/zfogg/sidechain/views/internal/seed"
	"github.com/zfogg/sidechain/views/internal/views"
	"github.com/zfogg/sidechain/views/internal/visibility"
	"gorm.io/gorm"
)

// services is the operator view of the store, opened from the same
// environment the server reads
type services struct {
	cfg        *config.Config
	db         *gorm.DB
	users      repository.UserRepository
	ledger     *views.Ledger
	aggregator *views.Aggregator
	facade     *visibility.Facade
}

func openServices() (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.Database, cfg.Environment)
	if err != nil {
		return nil, err
	}

	users := repository.NewUserRepository(db)
	ledger := views.NewLedger(db)
	aggregator := views.NewAggregator(db, users)
	gate := privacy.NewGate(users, nil)

	return &services{
		cfg:        cfg,
		db:         db,
		users:      users,
		ledger:     ledger,
		aggregator: aggregator,
		facade:     visibility.NewFacade(users, repository.NewPostRepository(db), ledger, aggregator, gate),
	}, nil
}

func (s *services) Close() {
	_ = database.Close(s.db)
	_ = logger.Close()
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

var (
	repairUserID      string
	repairConcurrency int
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Recompute view aggregates from the ledger",
	Long: `Recompute viewed-by counts for every post and the per-user totals from
post_views. Safe to run while the server is serving traffic.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices()
		if err != nil {
			return err
		}
		defer svc.Close()

		if repairUserID != "" {
			report, err := svc.aggregator.RecomputeUser(cmd.Context(), repairUserID)
			if err != nil {
				return err
			}
			if output == "json" {
				return printJSON(report)
			}
			if report.Fixed {
				fmt.Printf("✓ Repaired %s (stored %d, ledger %d)\n", report.UserID, report.Before.StoredTotal, report.Before.DerivedTotal)
			} else {
				fmt.Printf("✓ %s already consistent\n", report.UserID)
			}
			return nil
		}

		summary, err := repair.NewService(svc.aggregator, 0, repairConcurrency).RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(summary)
		}
		fmt.Printf("✓ Scanned %d users, fixed %d, %d failures in %s\n",
			summary.UsersScanned, summary.UsersFixed, summary.Failures, summary.Duration.Round(time.Millisecond))
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <user-id>",
	Short: "Compare a user's stored view counts with the ledger without changing anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices()
		if err != nil {
			return err
		}
		defer svc.Close()

		drift, err := svc.aggregator.Verify(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(drift)
		}
		if drift.Consistent() {
			fmt.Printf("✓ Consistent: %d distinct viewers across posts\n", drift.DerivedTotal)
			return nil
		}
		fmt.Printf("✗ Drift: stored total %d, ledger total %d\n", drift.StoredTotal, drift.DerivedTotal)
		for postID, counts := range drift.PostMismatch {
			fmt.Printf("  post %s: stored %d, ledger %d\n", postID, counts[0], counts[1])
		}
		return nil
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage users",
}

var displayName string

var createUserCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices()
		if err != nil {
			return err
		}
		defer svc.Close()

		user := &models.User{Username: args[0], DisplayName: displayName}
		if user.DisplayName == "" {
			user.DisplayName = args[0]
		}
		if err := svc.users.CreateUser(cmd.Context(), user); err != nil {
			return err
		}
		if output == "json" {
			return printJSON(user)
		}
		fmt.Printf("✓ Created user %s (%s)\n", user.Username, user.ID)
		return nil
	},
}

var createPostCmd = &cobra.Command{
	Use:   "create <owner-user-id> <text>",
	Short: "Create a post owned by a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices()
		if err != nil {
			return err
		}
		defer svc.Close()

		post, err := svc.facade.CreatePost(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(post)
		}
		fmt.Printf("✓ Created post %s\n", post.ID)
		return nil
	},
}

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <username>",
	Short: "Issue an access token for a user (development only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices()
		if err != nil {
			return err
		}
		defer svc.Close()

		user, err := svc.users.GetUserByUsername(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		tokens, err := auth.NewService([]byte(svc.cfg.JWTSecret), tokenTTL)
		if err != nil {
			return err
		}
		token, err := tokens.IssueToken(user)
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(token)
		}
		fmt.Println(token.Token)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:       "seed [dev|test|clean]",
	Short:     "Fill the database with fake users, posts and views",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"dev", "test", "clean"},
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := "dev"
		if len(args) == 1 {
			mode = args[0]
		}

		svc, err := openServices()
		if err != nil {
			return err
		}
		defer svc.Close()

		var opts seed.Options
		switch mode {
		case "dev":
			opts = seed.DevOptions()
		case "test":
			opts = seed.TestOptions()
		case "clean":
			if err := seed.NewSeeder(svc.db, svc.ledger, 0).Clean(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("✓ Removed all users, posts and views")
			return nil
		default:
			return fmt.Errorf("unknown seed mode %q (want dev, test or clean)", mode)
		}

		summary, err := seed.NewSeeder(svc.db, svc.ledger, opts.Seed).Seed(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if output == "json" {
			return printJSON(summary)
		}
		fmt.Printf("✓ Seeded %d users, %d posts, %d views\n", summary.Users, summary.Posts, summary.ViewsCounted)
		return nil
	},
}

func init() {
	repairCmd.Flags().StringVar(&repairUserID, "user", "", "Repair a single user instead of everyone")
	repairCmd.Flags().IntVar(&repairConcurrency, "concurrency", 4, "Users repaired in parallel")

	createUserCmd.Flags().StringVar(&displayName, "display-name", "", "Display name (defaults to username)")
	usersCmd.AddCommand(createUserCmd)
	rootCmd.AddCommand(usersCmd)

	postsCmd.AddCommand(createPostCmd)

	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
}
