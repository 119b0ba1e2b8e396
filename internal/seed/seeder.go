package seed

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/zfogg/sidechain/views/internal/logger"
	"github.com/zfogg/sidechain/views/internal/models"
	"github.com/zfogg/sidechain/views/internal/views"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options controls how much data a seed run creates
type Options struct {
	Users        int
	PostsPerUser int
	// ViewRate is the chance (0..1) that a given user views a given post
	ViewRate float64
	// HiddenRate is the chance (0..1) that a user hides their view counts
	HiddenRate float64
	Seed       uint64
}

// DevOptions is a realistic development data set
func DevOptions() Options {
	return Options{Users: 50, PostsPerUser: 5, ViewRate: 0.3, HiddenRate: 0.2}
}

// TestOptions is a minimal data set
func TestOptions() Options {
	return Options{Users: 5, PostsPerUser: 2, ViewRate: 0.5, HiddenRate: 0.2, Seed: 42}
}

// Summary reports what a seed run created
type Summary struct {
	Users        int
	Posts        int
	ViewsCounted int
}

// Seeder handles database seeding operations
type Seeder struct {
	db     *gorm.DB
	ledger *views.Ledger
	faker  *gofakeit.Faker
	rng    *rand.Rand
}

// NewSeeder creates a new seeder. Seed 0 picks a random seed.
func NewSeeder(db *gorm.DB, ledger *views.Ledger, seed uint64) *Seeder {
	faker := gofakeit.New(seed)
	return &Seeder{
		db:     db,
		ledger: ledger,
		faker:  faker,
		rng:    rand.New(rand.NewSource(int64(faker.Uint64()))),
	}
}

// Seed creates users and posts, then records views through the ledger
// so every counter is consistent with post_views.
func (s *Seeder) Seed(ctx context.Context, opts Options) (Summary, error) {
	var summary Summary

	users, err := s.seedUsers(ctx, opts)
	if err != nil {
		return summary, fmt.Errorf("failed to seed users: %w", err)
	}
	summary.Users = len(users)

	posts, err := s.seedPosts(ctx, users, opts.PostsPerUser)
	if err != nil {
		return summary, fmt.Errorf("failed to seed posts: %w", err)
	}
	summary.Posts = len(posts)

	for _, viewer := range users {
		for _, post := range posts {
			if post.UserID == viewer.ID || s.rng.Float64() >= opts.ViewRate {
				continue
			}
			result, err := s.ledger.Record(ctx, viewer.ID, post.ID)
			if err != nil {
				return summary, fmt.Errorf("failed to record view: %w", err)
			}
			if result.Counted() {
				summary.ViewsCounted++
			}
		}
	}

	logger.Log.Info("Seed complete",
		zap.Int("users", summary.Users),
		zap.Int("posts", summary.Posts),
		zap.Int("views", summary.ViewsCounted))
	return summary, nil
}

func (s *Seeder) seedUsers(ctx context.Context, opts Options) ([]models.User, error) {
	users := make([]models.User, 0, opts.Users)
	seen := make(map[string]bool, opts.Users)

	for len(users) < opts.Users {
		username := s.faker.Username()
		if seen[username] {
			continue
		}
		var existing int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&existing).Error; err != nil {
			return nil, err
		}
		seen[username] = true
		if existing > 0 {
			continue
		}

		user := models.User{
			Username:         username,
			DisplayName:      s.faker.Name(),
			ViewCountsHidden: s.rng.Float64() < opts.HiddenRate,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedPosts(ctx context.Context, users []models.User, perUser int) ([]models.Post, error) {
	posts := make([]models.Post, 0, len(users)*perUser)
	for _, user := range users {
		for i := 0; i < perUser; i++ {
			post := models.Post{UserID: user.ID, Text: s.faker.HipsterSentence()}
			if err := s.db.WithContext(ctx).Omit("User").Create(&post).Error; err != nil {
				return nil, err
			}
			posts = append(posts, post)
		}
	}
	return posts, nil
}

// Clean removes all ledger, post and user rows
func (s *Seeder) Clean(ctx context.Context) error {
	// Delete in reverse order of dependencies
	for _, table := range []string{"post_views", "posts", "users"} {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}
