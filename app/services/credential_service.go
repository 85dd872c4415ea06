package services

import (
	"context"
	"errors"

	"animehub/app/apperrors"
	"animehub/app/auth"
	"animehub/app/logger"
	"animehub/app/metrics"
	"animehub/app/models"
	"animehub/app/repositories"
	"animehub/app/session"

	"go.uber.org/zap"
)

// CredentialService registers and logs in users against the users table.
type CredentialService struct {
	users    repositories.UserRepository
	verifier auth.Verifier
}

// NewCredentialService creates a new CredentialService
func NewCredentialService(users repositories.UserRepository, verifier auth.Verifier) *CredentialService {
	return &CredentialService{users: users, verifier: verifier}
}

// lookup returns the stored user or nil when the username is free.
func (s *CredentialService) lookup(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		metrics.RecordStoreFailure("users.get")
		return nil, apperrors.Store("lookup user", err)
	}
	return user, nil
}

// Register creates username with a hash of password and logs sess in.
// An existing username fails with USERNAME_TAKEN and leaves sess untouched.
func (s *CredentialService) Register(ctx context.Context, sess *session.Session, username, password string) (*models.User, error) {
	existing, err := s.lookup(ctx, username)
	if err != nil {
		metrics.RecordAuth("register", "store_failure")
		return nil, err
	}
	if existing != nil {
		metrics.RecordAuth("register", "username_taken")
		logger.Log.Info("Registration rejected", zap.String("username", username), zap.String("reason", "username taken"))
		return nil, apperrors.New(apperrors.UsernameTaken)
	}

	hash, err := s.verifier.Hash(password)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Validation, "hash password", err)
	}
	user := &models.User{Username: username, PasswordHash: hash}
	if err := user.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.Validation, "register", err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			metrics.RecordAuth("register", "username_taken")
			return nil, apperrors.New(apperrors.UsernameTaken)
		}
		metrics.RecordStoreFailure("users.create")
		metrics.RecordAuth("register", "store_failure")
		logger.Log.Error("Failed to insert user", zap.String("username", username), zap.Error(err))
		return nil, apperrors.Store("insert user", err)
	}

	sess.Login(user)
	metrics.RecordAuth("register", "ok")
	logger.Log.Info("User registered", zap.String("username", username))
	return sess.Current(), nil
}

// Login verifies password for username and logs sess in.
func (s *CredentialService) Login(ctx context.Context, sess *session.Session, username, password string) (*models.User, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		metrics.RecordAuth("login", "store_failure")
		return nil, err
	}
	if user == nil {
		metrics.RecordAuth("login", "unknown_username")
		logger.Log.Info("Login rejected", zap.String("username", username), zap.String("reason", "unknown username"))
		return nil, apperrors.New(apperrors.UnknownUsername)
	}

	ok, err := s.verifier.Verify(password, user.PasswordHash)
	if err != nil {
		// An unreadable stored hash can never match.
		logger.Log.Warn("Stored password hash unreadable", zap.String("username", username), zap.Error(err))
	}
	if !ok {
		metrics.RecordAuth("login", "wrong_password")
		logger.Log.Info("Login rejected", zap.String("username", username), zap.String("reason", "wrong password"))
		return nil, apperrors.New(apperrors.WrongPassword)
	}

	sess.Login(user)
	metrics.RecordAuth("login", "ok")
	logger.Log.Info("User logged in", zap.String("username", username))
	return sess.Current(), nil
}

// Logout clears sess.
func (s *CredentialService) Logout(sess *session.Session) {
	if name := sess.Username(); name != "" {
		logger.Log.Info("User logged out", zap.String("username", name))
	}
	sess.Logout()
}
