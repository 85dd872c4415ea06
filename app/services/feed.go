package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"animehub/app/apperrors"
	"animehub/app/logger"
	"animehub/app/metrics"
	"animehub/app/models"
	"animehub/app/repositories"

	"go.uber.org/zap"
)

// FeedState is what the feed view renders.
type FeedState string

const (
	FeedLoading   FeedState = "loading"
	FeedEmpty     FeedState = "empty"
	FeedPopulated FeedState = "populated"
	FeedFailed    FeedState = "failed"
)

// SortKey orders the displayed feed.
type SortKey string

const (
	SortLatest    SortKey = "latest"
	SortOldest    SortKey = "oldest"
	SortMostLiked SortKey = "mostLiked"
)

// ParseSortKey returns key and whether it is recognised.
func ParseSortKey(key string) (SortKey, bool) {
	switch k := SortKey(key); k {
	case SortLatest, SortOldest, SortMostLiked:
		return k, true
	}
	return "", false
}

// FeedView is a snapshot of the feed for rendering.
type FeedView struct {
	State FeedState      `json:"state"`
	Posts []*models.Post `json:"posts"`
	Query string         `json:"query"`
	Sort  SortKey        `json:"sort,omitempty"`
	Error error          `json:"-"`
}

// Feed holds the last full load of posts plus the currently displayed
// subset. Filtering always starts again from the full load; sorting works
// on whatever is displayed.
type Feed struct {
	posts repositories.PostRepository

	mutex   sync.RWMutex
	all     []*models.Post
	shown   []*models.Post
	state   FeedState
	err     error
	query   string
	sortKey SortKey
}

// NewFeed returns a feed in the loading state.
func NewFeed(posts repositories.PostRepository) *Feed {
	return &Feed{posts: posts, state: FeedLoading}
}

// Load fetches every post newest first and resets filter and sort. The
// feed is in the loading state with nothing displayed while the fetch runs.
func (f *Feed) Load(ctx context.Context) FeedState {
	f.mutex.Lock()
	f.state = FeedLoading
	f.shown = nil
	f.err = nil
	f.mutex.Unlock()

	posts, err := f.posts.List(ctx)

	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.query = ""
	f.sortKey = ""
	if err != nil {
		metrics.RecordStoreFailure("posts.list")
		logger.Log.Error("Failed to load feed", zap.Error(err))
		f.all = nil
		f.err = apperrors.Store("load feed", err)
		f.state = FeedFailed
		return f.state
	}
	f.all = posts
	f.shown = append([]*models.Post(nil), posts...)
	f.state = stateFor(f.shown)
	return f.state
}

func stateFor(posts []*models.Post) FeedState {
	if len(posts) == 0 {
		return FeedEmpty
	}
	return FeedPopulated
}

// FilterByAuthor displays posts whose author contains term, ignoring case.
// A blank term restores the full set from the last load.
func (f *Feed) FilterByAuthor(term string) []*models.Post {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.state == FeedLoading || f.state == FeedFailed {
		return nil
	}

	f.query = strings.TrimSpace(term)
	f.sortKey = ""
	needle := strings.ToLower(f.query)
	shown := make([]*models.Post, 0, len(f.all))
	for _, p := range f.all {
		if needle == "" || strings.Contains(strings.ToLower(p.Username), needle) {
			shown = append(shown, p)
		}
	}
	f.shown = shown
	f.state = stateFor(shown)
	return append([]*models.Post(nil), shown...)
}

// SortBy stably reorders the displayed posts. Unknown keys do nothing.
func (f *Feed) SortBy(key string) []*models.Post {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	k, ok := ParseSortKey(key)
	if !ok {
		return append([]*models.Post(nil), f.shown...)
	}
	shown := append([]*models.Post(nil), f.shown...)
	switch k {
	case SortLatest:
		sort.SliceStable(shown, func(i, j int) bool { return shown[i].CreatedAt.After(shown[j].CreatedAt) })
	case SortOldest:
		sort.SliceStable(shown, func(i, j int) bool { return shown[i].CreatedAt.Before(shown[j].CreatedAt) })
	case SortMostLiked:
		sort.SliceStable(shown, func(i, j int) bool { return shown[i].LikeCount() > shown[j].LikeCount() })
	}
	f.shown = shown
	f.sortKey = k
	return append([]*models.Post(nil), shown...)
}

// State returns the current display state.
func (f *Feed) State() FeedState {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return f.state
}

// View snapshots the feed.
func (f *Feed) View() FeedView {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return FeedView{
		State: f.state,
		Posts: append(make([]*models.Post, 0, len(f.shown)), f.shown...),
		Query: f.query,
		Sort:  f.sortKey,
		Error: f.err,
	}
}
