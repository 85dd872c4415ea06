package controllers

import (
	"net/http"
	"strings"

	"animehub/app/repositories"
	"animehub/app/services"
	"animehub/app/views"
)

// FeedController serves the post feed.
type FeedController struct {
	posts   repositories.PostRepository
	engines *services.EngineRegistry
	views   *views.Renderer
}

// NewFeedController creates a new FeedController
func NewFeedController(posts repositories.PostRepository, engines *services.EngineRegistry, v *views.Renderer) *FeedController {
	return &FeedController{posts: posts, engines: engines, views: v}
}

// Index loads every post, then applies the optional q filter and sort key.
// Entering the feed leaves any post view the session had open.
func (fc *FeedController) Index(w http.ResponseWriter, r *http.Request) {
	fc.engines.DetachSession(sessionID(r))

	feed := services.NewFeed(fc.posts)
	feed.Load(r.Context())

	query := r.URL.Query()
	if q := query.Get("q"); strings.TrimSpace(q) != "" {
		feed.FilterByAuthor(q)
	}
	if key := query.Get("sort"); key != "" {
		feed.SortBy(key)
	}
	view := feed.View()

	if wantsJSON(r) {
		sendJSON(w, http.StatusOK, view)
		return
	}
	render(w, fc.views, http.StatusOK, views.PageFeed, views.FeedPage{
		Page:  page(r, "Feed"),
		Feed:  view,
		Sorts: views.SortOptions,
	})
}
