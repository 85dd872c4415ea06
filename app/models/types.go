package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// User is a row of the users table.
type User struct {
	Username     string `json:"username" validate:"required,max=64"`
	PasswordHash string `json:"passwordHash,omitempty" validate:"required"`
}

// Post is a row of the posts table. Likes is a set of usernames kept
// duplicate-free by this package; Comments grows append-only.
type Post struct {
	ID        ID          `json:"id"`
	Username  string      `json:"username" validate:"required,max=64"`
	ImageURL  string      `json:"imageurl" validate:"required"`
	Caption   string      `json:"say"`
	Likes     []string    `json:"likes"`
	Comments  CommentList `json:"comments"`
	CreatedAt time.Time   `json:"created_at"`
}

// Comment is embedded in a post. Date is epoch milliseconds.
type Comment struct {
	Date int64  `json:"date" validate:"gt=0"`
	Text string `json:"text" validate:"required"`
	User string `json:"user" validate:"required"`
}
