package services

import (
	"context"
	"errors"
	"strings"

	"animehub/app/apperrors"
	"animehub/app/logger"
	"animehub/app/metrics"
	"animehub/app/models"
	"animehub/app/repositories"

	"go.uber.org/zap"
)

// PostService handles post creation and single post loading
type PostService struct {
	postRepo repositories.PostRepository
}

// NewPostService creates a new PostService
func NewPostService(postRepo repositories.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

// CreatePost stores a new post by author. An empty image URL fails with
// MISSING_IMAGE_URL before the store is contacted.
func (s *PostService) CreatePost(ctx context.Context, author, imageURL, caption string) (*models.Post, error) {
	if author == "" {
		return nil, apperrors.New(apperrors.AuthRequired)
	}
	if strings.TrimSpace(imageURL) == "" {
		metrics.RecordEngineOp("create", metrics.OutcomeRejected, 0)
		return nil, apperrors.New(apperrors.MissingImageURL)
	}

	post := models.NewPost(author, imageURL, caption)
	if err := post.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.Validation, "create post", err)
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		metrics.RecordStoreFailure("posts.create")
		logger.Log.Error("Failed to insert post", zap.String("username", author), zap.Error(err))
		return nil, apperrors.Store("insert post", err)
	}
	metrics.RecordEngineOp("create", metrics.OutcomeOK, 0)
	logger.Log.Info("Post created", zap.String("post_id", post.ID.String()), zap.String("username", author))
	return post, nil
}

// GetPost fetches one post by id.
func (s *PostService) GetPost(ctx context.Context, id models.ID) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.Wrap(apperrors.NotFound, "get post", err)
	}
	if err != nil {
		metrics.RecordStoreFailure("posts.get")
		logger.Log.Error("Failed to fetch post", zap.String("post_id", id.String()), zap.Error(err))
		return nil, apperrors.Store("get post", err)
	}
	post.Likes = models.DedupeLikes(post.Likes)
	return post, nil
}
