// Package seed fills a store with fake users and posts for local
// development.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"animehub/app/auth"
	"animehub/app/logger"
	"animehub/app/models"
	"animehub/app/repositories"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"
)

// DefaultPassword is given to every seeded account.
const DefaultPassword = "animehub"

// Options controls how much data SeedDev creates.
type Options struct {
	Users int
	Posts int
}

// Seeder handles database seeding operations
type Seeder struct {
	users    repositories.UserRepository
	posts    repositories.PostRepository
	verifier auth.Verifier
	faker    *gofakeit.Faker
	now      func() time.Time
}

// NewSeeder creates a new seeder instance. A non-zero seed makes runs
// reproducible.
func NewSeeder(users repositories.UserRepository, posts repositories.PostRepository, verifier auth.Verifier, seed uint64) *Seeder {
	return &Seeder{
		users:    users,
		posts:    posts,
		verifier: verifier,
		faker:    gofakeit.New(seed),
		now:      time.Now,
	}
}

// Result reports what a run created.
type Result struct {
	Users    []string
	Posts    []models.ID
	Likes    int
	Comments int
}

// SeedDev creates opts.Users accounts and opts.Posts posts authored by them,
// with random likes and comments from the same accounts.
func (s *Seeder) SeedDev(ctx context.Context, opts Options) (*Result, error) {
	if opts.Users <= 0 {
		return nil, errors.New("seed: at least one user is required")
	}

	res := &Result{}
	logger.Log.Info("Creating users...", zap.Int("count", opts.Users))
	users, err := s.seedUsers(ctx, opts.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}
	res.Users = users

	logger.Log.Info("Creating posts...", zap.Int("count", opts.Posts))
	for i := 0; i < opts.Posts; i++ {
		id, likes, comments, err := s.seedPost(ctx, users)
		if err != nil {
			return nil, fmt.Errorf("failed to seed posts: %w", err)
		}
		res.Posts = append(res.Posts, id)
		res.Likes += likes
		res.Comments += comments
	}

	logger.Log.Info("Seeding complete",
		zap.Int("users", len(res.Users)),
		zap.Int("posts", len(res.Posts)),
		zap.Int("likes", res.Likes),
		zap.Int("comments", res.Comments),
	)
	return res, nil
}

// seedUsers creates n accounts. Usernames already present are reused so a
// second run against the same store does not fail.
func (s *Seeder) seedUsers(ctx context.Context, n int) ([]string, error) {
	hash, err := s.verifier.Hash(DefaultPassword)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, n)
	users := make([]string, 0, n)
	for len(users) < n {
		username := s.faker.Username()
		if seen[username] {
			continue
		}
		seen[username] = true

		err := s.users.Create(ctx, &models.User{Username: username, PasswordHash: hash})
		if err != nil && !errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("create user %s: %w", username, err)
		}
		users = append(users, username)
	}
	return users, nil
}

func (s *Seeder) seedPost(ctx context.Context, users []string) (models.ID, int, int, error) {
	post := &models.Post{
		Username: s.pick(users),
		ImageURL: fmt.Sprintf("https://picsum.photos/seed/%s/600/800", s.faker.Word()),
		Caption:  s.faker.HipsterSentence(),
		Likes:    []string{},
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return "", 0, 0, err
	}

	var likes []string
	for _, u := range users {
		if s.faker.Bool() {
			likes = models.ToggleLike(likes, u)
		}
	}

	var comments models.CommentList
	created := s.now().Add(-time.Duration(s.faker.Number(1, 72)) * time.Hour)
	for i := s.faker.Number(0, 4); i > 0; i-- {
		at := s.faker.DateRange(created, s.now())
		comments = comments.Append(models.NewComment(s.pick(users), s.faker.HipsterSentence(), at))
	}

	upd := repositories.PostUpdate{}
	if len(likes) > 0 {
		upd.Likes = &likes
	}
	if len(comments) > 0 {
		upd.Comments = &comments
	}
	if !upd.Empty() {
		if err := s.posts.Update(ctx, post.ID, upd); err != nil {
			return "", 0, 0, err
		}
	}
	return post.ID, len(likes), len(comments), nil
}

func (s *Seeder) pick(users []string) string {
	return users[s.faker.Number(0, len(users)-1)]
}
