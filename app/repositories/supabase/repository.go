package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"animehub/app/models"
	"animehub/app/repositories"
)

const (
	usersTable = "users"
	postsTable = "posts"

	// uniqueViolation is the Postgres error code PostgREST forwards on a
	// duplicate primary key.
	uniqueViolation = "23505"
)

// errEmptyInsert means PostgREST accepted an insert but sent no row back,
// usually because a row-level policy hides it from this key.
var errEmptyInsert = errors.New("supabase: insert returned no rows")

// userRow matches the hosted users table, whose hash column is "password".
type userRow struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type postInsert struct {
	Username string             `json:"username"`
	ImageURL string             `json:"imageurl"`
	Caption  string             `json:"say"`
	Likes    []string           `json:"likes"`
	Comments models.CommentList `json:"comments"`
}

// UserRepository implements repositories.UserRepository over PostgREST.
type UserRepository struct {
	client *Client
}

func NewUserRepository(c *Client) *UserRepository {
	return &UserRepository{client: c}
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("username", eq(username))

	var rows []userRow
	if err := r.client.do(ctx, http.MethodGet, usersTable, q, nil, "", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repositories.ErrNotFound
	}
	return &models.User{Username: rows[0].Username, PasswordHash: rows[0].Password}, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	row := userRow{Username: user.Username, Password: user.PasswordHash}
	err := r.client.do(ctx, http.MethodPost, usersTable, nil, row, "return=minimal", nil)
	var serr *StatusError
	if errors.As(err, &serr) && (serr.Code == uniqueViolation || serr.Status == http.StatusConflict) {
		return repositories.ErrDuplicate
	}
	return err
}

// PostRepository implements repositories.PostRepository over PostgREST.
type PostRepository struct {
	client *Client
}

func NewPostRepository(c *Client) *PostRepository {
	return &PostRepository{client: c}
}

func (r *PostRepository) List(ctx context.Context) ([]*models.Post, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")

	posts := []*models.Post{}
	if err := r.client.do(ctx, http.MethodGet, postsTable, q, nil, "", &posts); err != nil {
		return nil, err
	}
	for _, p := range posts {
		p.Likes = models.DedupeLikes(p.Likes)
	}
	return posts, nil
}

func (r *PostRepository) GetByID(ctx context.Context, id models.ID) (*models.Post, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", eq(id.String()))

	var posts []*models.Post
	if err := r.client.do(ctx, http.MethodGet, postsTable, q, nil, "", &posts); err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, repositories.ErrNotFound
	}
	posts[0].Likes = models.DedupeLikes(posts[0].Likes)
	return posts[0], nil
}

func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	post.BeforeCreate()
	row := postInsert{
		Username: post.Username,
		ImageURL: post.ImageURL,
		Caption:  post.Caption,
		Likes:    post.Likes,
		Comments: post.Comments,
	}

	var created []*models.Post
	if err := r.client.do(ctx, http.MethodPost, postsTable, nil, row, "return=representation", &created); err != nil {
		return err
	}
	if len(created) == 0 {
		return errEmptyInsert
	}
	post.ID = created[0].ID
	post.CreatedAt = created[0].CreatedAt
	return nil
}

// Update issues a PATCH scoped by id and asks for the touched rows back so
// a missing post is reported as ErrNotFound.
func (r *PostRepository) Update(ctx context.Context, id models.ID, upd repositories.PostUpdate) error {
	if upd.Empty() {
		return nil
	}
	q := url.Values{}
	q.Set("id", eq(id.String()))
	q.Set("select", "id")

	var touched []struct {
		ID models.ID `json:"id"`
	}
	if err := r.client.do(ctx, http.MethodPatch, postsTable, q, upd.Fields(), "return=representation", &touched); err != nil {
		return err
	}
	if len(touched) == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id models.ID) error {
	q := url.Values{}
	q.Set("id", eq(id.String()))
	q.Set("select", "id")

	var deleted []struct {
		ID models.ID `json:"id"`
	}
	if err := r.client.do(ctx, http.MethodDelete, postsTable, q, nil, "return=representation", &deleted); err != nil {
		return err
	}
	if len(deleted) == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

var (
	_ repositories.UserRepository = (*UserRepository)(nil)
	_ repositories.PostRepository = (*PostRepository)(nil)
)
