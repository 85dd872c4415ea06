package services

import (
	"testing"

	"animehub/app/models"
	"animehub/app/repositories/mock"
)

// newStore returns a mock store seeded with posts in creation order, so the
// last one is the newest.
func newStore(t *testing.T, posts ...*models.Post) *mock.Store {
	t.Helper()
	store := mock.NewStore()
	for _, p := range posts {
		if p.ImageURL == "" {
			p.ImageURL = "https://img.example/" + p.Username + ".png"
		}
		store.Seed(p)
	}
	return store
}

func post(author string, likes ...string) *models.Post {
	return &models.Post{Username: author, Caption: "by " + author, Likes: likes}
}
