package repositories

import (
	"context"
	"errors"

	"animehub/app/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// UserRepository is the users table of the remote store.
type UserRepository interface {
	// GetByUsername returns ErrNotFound when no row matches.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// PostRepository is the posts table of the remote store. Every call is an
// independent request; there are no transactions across calls.
type PostRepository interface {
	// List returns every post, newest first by created_at.
	List(ctx context.Context) ([]*models.Post, error)
	GetByID(ctx context.Context, id models.ID) (*models.Post, error)
	// Create stores post and fills in its server-assigned ID and CreatedAt.
	Create(ctx context.Context, post *models.Post) error
	// Update writes only the fields set in upd.
	Update(ctx context.Context, id models.ID, upd PostUpdate) error
	Delete(ctx context.Context, id models.ID) error
}

// PostUpdate is a scoped partial update. Nil fields are left unchanged.
type PostUpdate struct {
	Caption  *string
	Likes    *[]string
	Comments *models.CommentList
}

func UpdateCaption(caption string) PostUpdate {
	return PostUpdate{Caption: &caption}
}

func UpdateLikes(likes []string) PostUpdate {
	return PostUpdate{Likes: &likes}
}

func UpdateComments(comments models.CommentList) PostUpdate {
	return PostUpdate{Comments: &comments}
}

// Empty reports whether upd changes nothing.
func (upd PostUpdate) Empty() bool {
	return upd.Caption == nil && upd.Likes == nil && upd.Comments == nil
}

// Apply copies the set fields onto post.
func (upd PostUpdate) Apply(post *models.Post) {
	if upd.Caption != nil {
		post.Caption = *upd.Caption
	}
	if upd.Likes != nil {
		post.Likes = append([]string{}, *upd.Likes...)
	}
	if upd.Comments != nil {
		post.Comments = append(models.CommentList{}, *upd.Comments...)
	}
}

// Fields renders upd as a column map using the wire names of the posts table.
func (upd PostUpdate) Fields() map[string]any {
	fields := make(map[string]any, 3)
	if upd.Caption != nil {
		fields["say"] = *upd.Caption
	}
	if upd.Likes != nil {
		fields["likes"] = *upd.Likes
	}
	if upd.Comments != nil {
		fields["comments"] = *upd.Comments
	}
	return fields
}
