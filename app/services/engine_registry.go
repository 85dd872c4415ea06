package services

import (
	"sync"

	"animehub/app/metrics"
	"animehub/app/models"
	"animehub/app/repositories"
)

type engineKey struct {
	session string
	post    models.ID
}

// EngineRegistry keeps one PostEngine per session and post so that
// requests from the same session share like serialization.
type EngineRegistry struct {
	store repositories.PostRepository

	mutex   sync.Mutex
	engines map[engineKey]*PostEngine
}

// NewEngineRegistry creates an empty registry backed by store.
func NewEngineRegistry(store repositories.PostRepository) *EngineRegistry {
	return &EngineRegistry{
		store:   store,
		engines: make(map[engineKey]*PostEngine),
	}
}

// Attach returns the engine for sessionID and post, creating it if needed
// and refreshing it with post otherwise. An engine bound to a different
// username is detached and replaced.
func (r *EngineRegistry) Attach(sessionID, username string, post *models.Post) *PostEngine {
	key := engineKey{session: sessionID, post: post.ID}

	r.mutex.Lock()
	e, ok := r.engines[key]
	if ok && e.Username() != username {
		e.Detach()
		delete(r.engines, key)
		metrics.Get().EnginesActive.Dec()
		ok = false
	}
	if !ok {
		e = NewPostEngine(r.store, post, username)
		r.engines[key] = e
		metrics.Get().EnginesActive.Inc()
		r.mutex.Unlock()
		return e
	}
	r.mutex.Unlock()

	e.Refresh(post)
	return e
}

// Get returns the engine already attached for sessionID and postID.
func (r *EngineRegistry) Get(sessionID string, postID models.ID) (*PostEngine, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	e, ok := r.engines[engineKey{session: sessionID, post: postID}]
	return e, ok
}

// Detach detaches and forgets one engine.
func (r *EngineRegistry) Detach(sessionID string, postID models.ID) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.detachLocked(engineKey{session: sessionID, post: postID})
}

// DetachSession detaches every engine of sessionID.
func (r *EngineRegistry) DetachSession(sessionID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for key := range r.engines {
		if key.session == sessionID {
			r.detachLocked(key)
		}
	}
}

func (r *EngineRegistry) detachLocked(key engineKey) {
	if e, ok := r.engines[key]; ok {
		e.Detach()
		delete(r.engines, key)
		metrics.Get().EnginesActive.Dec()
	}
}

// Len counts attached engines.
func (r *EngineRegistry) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.engines)
}
