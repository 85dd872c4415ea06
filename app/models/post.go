package models

import (
	"errors"
	"strings"
	"time"
)

// NewPost builds an unsaved post by author with empty likes and comments.
func NewPost(author, imageURL, caption string) *Post {
	return &Post{
		Username: author,
		ImageURL: strings.TrimSpace(imageURL),
		Caption:  caption,
		Likes:    []string{},
		Comments: CommentList{},
	}
}

// Validate checks if the post meets all validation requirements
func (p *Post) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if strings.TrimSpace(p.ImageURL) == "" {
		return errors.New("imageurl cannot be blank")
	}
	return nil
}

// BeforeCreate sets up any necessary fields before creation
func (p *Post) BeforeCreate() {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Comments == nil {
		p.Comments = CommentList{}
	}
	p.Likes = DedupeLikes(p.Likes)
}

// OwnedBy reports whether username authored the post.
func (p *Post) OwnedBy(username string) bool {
	return username != "" && p.Username == username
}

// LikedBy reports whether username is in the likes set.
func (p *Post) LikedBy(username string) bool {
	for _, u := range p.Likes {
		if u == username {
			return true
		}
	}
	return false
}

// LikeCount counts distinct likers.
func (p *Post) LikeCount() int {
	return len(DedupeLikes(p.Likes))
}

// Clone returns a deep copy so callers can snapshot state.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Likes = append([]string(nil), p.Likes...)
	cp.Comments = append(CommentList(nil), p.Comments...)
	return &cp
}

// ToggleLike returns the likes set with username removed when present and
// added otherwise. The input is not modified and the result has no duplicates.
func ToggleLike(likes []string, username string) []string {
	out := make([]string, 0, len(likes)+1)
	found := false
	seen := make(map[string]struct{}, len(likes))
	for _, u := range likes {
		if u == username {
			found = true
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	if !found {
		out = append(out, username)
	}
	return out
}

// DedupeLikes drops repeated usernames, keeping first occurrences.
func DedupeLikes(likes []string) []string {
	out := make([]string, 0, len(likes))
	seen := make(map[string]struct{}, len(likes))
	for _, u := range likes {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
