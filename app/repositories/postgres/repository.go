// Package postgres reads and writes the users and posts tables directly
// through a pgx connection pool, for deployments that reach the database
// without going through the REST gateway.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"animehub/app/models"
	"animehub/app/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the two tables with the hosted column names.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	password TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS posts (
	id         BIGSERIAL PRIMARY KEY,
	username   TEXT NOT NULL REFERENCES users(username),
	imageurl   TEXT NOT NULL,
	say        TEXT NOT NULL DEFAULT '',
	likes      TEXT[] NOT NULL DEFAULT '{}',
	comments   TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS posts_created_at_idx ON posts (created_at DESC);
`

const postColumns = "id, username, imageurl, say, likes, comments, created_at"

// NewPool creates a connection pool for dsn.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return pool, nil
}

// Migrate applies Schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx,
		`SELECT username, password FROM users WHERE username = $1`, username,
	).Scan(&u.Username, &u.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (username, password) VALUES ($1, $2)`,
		user.Username, user.PasswordHash,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return repositories.ErrDuplicate
	}
	return err
}

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

func (r *PostRepository) List(ctx context.Context) ([]*models.Post, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *PostRepository) GetByID(ctx context.Context, id models.ID) (*models.Post, error) {
	key, err := parseID(id)
	if err != nil {
		return nil, repositories.ErrNotFound
	}
	post, err := scanPost(r.pool.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	return post, err
}

func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	post.BeforeCreate()
	comments, err := post.Comments.Strings()
	if err != nil {
		return err
	}
	var (
		id      int64
		created time.Time
	)
	err = r.pool.QueryRow(ctx,
		`INSERT INTO posts (username, imageurl, say, likes, comments)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		post.Username, post.ImageURL, post.Caption, post.Likes, comments,
	).Scan(&id, &created)
	if err != nil {
		return err
	}
	post.ID = models.ID(strconv.FormatInt(id, 10))
	post.CreatedAt = created
	return nil
}

func (r *PostRepository) Update(ctx context.Context, id models.ID, upd repositories.PostUpdate) error {
	if upd.Empty() {
		return nil
	}
	key, err := parseID(id)
	if err != nil {
		return repositories.ErrNotFound
	}

	var (
		sets []string
		args []any
	)
	if upd.Caption != nil {
		args = append(args, *upd.Caption)
		sets = append(sets, fmt.Sprintf("say = $%d", len(args)))
	}
	if upd.Likes != nil {
		args = append(args, *upd.Likes)
		sets = append(sets, fmt.Sprintf("likes = $%d", len(args)))
	}
	if upd.Comments != nil {
		encoded, err := upd.Comments.Strings()
		if err != nil {
			return err
		}
		args = append(args, encoded)
		sets = append(sets, fmt.Sprintf("comments = $%d", len(args)))
	}
	args = append(args, key)

	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE posts SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args)),
		args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id models.ID) error {
	key, err := parseID(id)
	if err != nil {
		return repositories.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var (
		post     models.Post
		id       int64
		comments []string
	)
	if err := row.Scan(&id, &post.Username, &post.ImageURL, &post.Caption, &post.Likes, &comments, &post.CreatedAt); err != nil {
		return nil, err
	}
	post.ID = models.ID(strconv.FormatInt(id, 10))
	post.Likes = models.DedupeLikes(post.Likes)
	post.Comments = make(models.CommentList, 0, len(comments))
	for _, s := range comments {
		c, err := models.DecodeComment(s)
		if err != nil {
			return nil, err
		}
		post.Comments = append(post.Comments, c)
	}
	return &post, nil
}

func parseID(id models.ID) (int64, error) {
	return strconv.ParseInt(id.String(), 10, 64)
}

var (
	_ repositories.UserRepository = (*UserRepository)(nil)
	_ repositories.PostRepository = (*PostRepository)(nil)
)
