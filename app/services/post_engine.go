package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"animehub/app/apperrors"
	"animehub/app/logger"
	"animehub/app/metrics"
	"animehub/app/models"
	"animehub/app/repositories"

	"go.uber.org/zap"
)

// ViewState is where one post sits in a session's view lifecycle.
type ViewState string

const (
	Viewing ViewState = "viewing"
	Editing ViewState = "editing"
	Deleted ViewState = "deleted"
)

// PostView is what a session sees of a post.
type PostView struct {
	Post    *models.Post `json:"post"`
	IsLiked bool         `json:"isLiked"`
	IsOwner bool         `json:"isOwner"`
	State   ViewState    `json:"state"`
}

// PostEngine applies one session's likes, comments, caption edits and
// deletes to one post. Every mutation is applied locally first and undone
// if the store rejects it. Like toggles run one at a time so each toggle
// starts from the likes the previous one left behind. Comments, caption
// saves and deletes share a second slot for the same reason: a rollback
// must only ever restore state no other write has built on.
type PostEngine struct {
	store    repositories.PostRepository
	username string
	now      func() time.Time

	likeSlot  chan struct{}
	writeSlot chan struct{}

	mutex    sync.Mutex
	post     *models.Post
	state    ViewState
	detached bool
}

// NewPostEngine binds post to the acting username.
func NewPostEngine(store repositories.PostRepository, post *models.Post, username string) *PostEngine {
	p := post.Clone()
	p.Likes = models.DedupeLikes(p.Likes)
	return &PostEngine{
		store:    store,
		username: username,
		now:      time.Now,
		likeSlot:  make(chan struct{}, 1),
		writeSlot: make(chan struct{}, 1),
		post:      p,
		state:     Viewing,
	}
}

// Username is the acting user.
func (e *PostEngine) Username() string { return e.username }

// ID is the post key.
func (e *PostEngine) ID() models.ID {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.post.ID
}

// View snapshots the engine.
func (e *PostEngine) View() PostView {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.viewLocked()
}

func (e *PostEngine) viewLocked() PostView {
	return PostView{
		Post:    e.post.Clone(),
		IsLiked: e.post.LikedBy(e.username),
		IsOwner: e.post.OwnedBy(e.username),
		State:   e.state,
	}
}

// Detach marks the engine as no longer displayed. Results of calls still
// in flight are then discarded.
func (e *PostEngine) Detach() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.detached = true
}

// Detached reports whether Detach has been called.
func (e *PostEngine) Detached() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.detached
}

// Refresh replaces the local post with a freshly fetched copy. Fields with
// a write in flight keep their optimistic value.
func (e *PostEngine) Refresh(post *models.Post) {
	fresh := post.Clone()
	fresh.Likes = models.DedupeLikes(fresh.Likes)

	likeBusy := !tryAcquire(e.likeSlot)
	if !likeBusy {
		defer releaseSlot(e.likeSlot)
	}
	writeBusy := !tryAcquire(e.writeSlot)
	if !writeBusy {
		defer releaseSlot(e.writeSlot)
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.detached || e.state == Deleted {
		return
	}
	if likeBusy {
		fresh.Likes = e.post.Likes
	}
	if writeBusy {
		fresh.Comments = e.post.Comments
		fresh.Caption = e.post.Caption
	}
	if e.state == Editing {
		fresh.Caption = e.post.Caption
	}
	e.post = fresh
}

func tryAcquire(slot chan struct{}) bool {
	select {
	case slot <- struct{}{}:
		return true
	default:
		return false
	}
}

func releaseSlot(slot chan struct{}) { <-slot }

// acquire waits for slot or for ctx to end.
func acquire(ctx context.Context, slot chan struct{}) error {
	select {
	case slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// begin checks the preconditions shared by all mutations.
func (e *PostEngine) begin(op string) error {
	if e.username == "" {
		metrics.RecordEngineOp(op, metrics.OutcomeRejected, 0)
		return apperrors.New(apperrors.AuthRequired)
	}
	if e.state == Deleted {
		metrics.RecordEngineOp(op, metrics.OutcomeRejected, 0)
		return apperrors.New(apperrors.NotFound)
	}
	return nil
}

// finish records the outcome of a store call made by op. It reports
// whether the result should be applied to local state.
func (e *PostEngine) finish(op string, started time.Time, err error) bool {
	elapsed := time.Since(started).Seconds()
	switch {
	case e.detached:
		metrics.RecordEngineOp(op, metrics.OutcomeDropped, elapsed)
		logger.Log.Debug("Dropping result for detached post view",
			zap.String("op", op), zap.String("post_id", e.post.ID.String()), zap.Error(err))
		return false
	case err != nil:
		metrics.RecordEngineOp(op, metrics.OutcomeRolledBack, elapsed)
		metrics.RecordStoreFailure("posts." + op)
		logger.Log.Warn("Rolling back post change",
			zap.String("op", op),
			zap.String("post_id", e.post.ID.String()),
			zap.String("username", e.username),
			zap.Error(err))
	default:
		metrics.RecordEngineOp(op, metrics.OutcomeOK, elapsed)
	}
	return true
}

// ToggleLike adds or removes the acting user from the likes set. A toggle
// waits for any toggle already in flight on this engine.
func (e *PostEngine) ToggleLike(ctx context.Context) (PostView, error) {
	const op = "like"
	waitStart := time.Now()
	if err := acquire(ctx, e.likeSlot); err != nil {
		return e.View(), apperrors.Store(op, err)
	}
	defer releaseSlot(e.likeSlot)
	metrics.Get().LikeWaitDuration.Observe(time.Since(waitStart).Seconds())

	e.mutex.Lock()
	if err := e.begin(op); err != nil {
		defer e.mutex.Unlock()
		return e.viewLocked(), err
	}
	if e.detached {
		defer e.mutex.Unlock()
		return e.viewLocked(), nil
	}
	id := e.post.ID
	previous := e.post.Likes
	next := models.ToggleLike(previous, e.username)
	e.post.Likes = next
	e.mutex.Unlock()

	started := time.Now()
	err := e.store.Update(ctx, id, repositories.UpdateLikes(next))

	e.mutex.Lock()
	defer e.mutex.Unlock()
	if !e.finish(op, started, err) {
		return PostView{}, nil
	}
	if err != nil {
		e.post.Likes = previous
		return e.viewLocked(), apperrors.Store("update likes", err)
	}
	return e.viewLocked(), nil
}

// Comment appends text as a new comment by the acting user. Blank text is
// ignored without contacting the store.
func (e *PostEngine) Comment(ctx context.Context, text string) (PostView, error) {
	const op = "comment"
	if err := acquire(ctx, e.writeSlot); err != nil {
		return e.View(), apperrors.Store(op, err)
	}
	defer releaseSlot(e.writeSlot)

	e.mutex.Lock()
	if err := e.begin(op); err != nil {
		defer e.mutex.Unlock()
		return e.viewLocked(), err
	}
	if strings.TrimSpace(text) == "" || e.detached {
		defer e.mutex.Unlock()
		return e.viewLocked(), nil
	}
	id := e.post.ID
	previous := e.post.Comments
	next := previous.Append(models.NewComment(e.username, text, e.now()))
	e.post.Comments = next
	e.mutex.Unlock()

	started := time.Now()
	err := e.store.Update(ctx, id, repositories.UpdateComments(next))

	e.mutex.Lock()
	defer e.mutex.Unlock()
	if !e.finish(op, started, err) {
		return PostView{}, nil
	}
	if err != nil {
		e.post.Comments = previous
		return e.viewLocked(), apperrors.Store("update comments", err)
	}
	return e.viewLocked(), nil
}

// owner checks the edit and delete precondition without contacting the store.
func (e *PostEngine) owner(op string) error {
	if err := e.begin(op); err != nil {
		return err
	}
	if !e.post.OwnedBy(e.username) {
		metrics.RecordEngineOp(op, metrics.OutcomeRejected, 0)
		logger.Log.Warn("Rejected change by non-author",
			zap.String("op", op), zap.String("post_id", e.post.ID.String()), zap.String("username", e.username))
		return apperrors.New(apperrors.NotOwner)
	}
	return nil
}

// BeginEdit enters edit mode and returns the caption to start from.
func (e *PostEngine) BeginEdit() (string, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if err := e.owner("edit"); err != nil {
		return "", err
	}
	e.state = Editing
	return e.post.Caption, nil
}

// CancelEdit leaves edit mode and returns the stored caption.
func (e *PostEngine) CancelEdit() string {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.state == Editing {
		e.state = Viewing
	}
	return e.post.Caption
}

// SaveCaption stores caption and leaves edit mode. On failure the engine
// stays in edit mode with the previous caption.
func (e *PostEngine) SaveCaption(ctx context.Context, caption string) (PostView, error) {
	const op = "edit"
	if err := acquire(ctx, e.writeSlot); err != nil {
		return e.View(), apperrors.Store(op, err)
	}
	defer releaseSlot(e.writeSlot)

	e.mutex.Lock()
	if err := e.owner(op); err != nil {
		defer e.mutex.Unlock()
		return e.viewLocked(), err
	}
	if e.detached {
		defer e.mutex.Unlock()
		return e.viewLocked(), nil
	}
	e.state = Editing
	id := e.post.ID
	previous := e.post.Caption
	e.post.Caption = caption
	e.mutex.Unlock()

	started := time.Now()
	err := e.store.Update(ctx, id, repositories.UpdateCaption(caption))

	e.mutex.Lock()
	defer e.mutex.Unlock()
	if !e.finish(op, started, err) {
		return PostView{}, nil
	}
	if err != nil {
		e.post.Caption = previous
		return e.viewLocked(), apperrors.Store("update caption", err)
	}
	if e.state == Editing {
		e.state = Viewing
	}
	return e.viewLocked(), nil
}

// Delete removes the post. On success the engine is terminal and the
// caller should leave the post view.
func (e *PostEngine) Delete(ctx context.Context) (PostView, error) {
	const op = "delete"
	if err := acquire(ctx, e.writeSlot); err != nil {
		return e.View(), apperrors.Store(op, err)
	}
	defer releaseSlot(e.writeSlot)

	e.mutex.Lock()
	if err := e.owner(op); err != nil {
		defer e.mutex.Unlock()
		return e.viewLocked(), err
	}
	if e.detached {
		defer e.mutex.Unlock()
		return e.viewLocked(), nil
	}
	id := e.post.ID
	previous := e.state
	e.state = Deleted
	e.mutex.Unlock()

	started := time.Now()
	err := e.store.Delete(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		// Already gone is as good as deleted.
		err = nil
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()
	if !e.finish(op, started, err) {
		return PostView{}, nil
	}
	if err != nil {
		e.state = previous
		return e.viewLocked(), apperrors.Store("delete post", err)
	}
	logger.Log.Info("Post deleted", zap.String("post_id", id.String()), zap.String("username", e.username))
	return e.viewLocked(), nil
}
