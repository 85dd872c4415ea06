// Package mock provides in-memory repositories with failure injection for
// tests.
package mock

import (
	"context"
	"strconv"
	"sync"
	"time"

	"animehub/app/models"
	"animehub/app/repositories"
)

// Op names a repository call for failure injection and call counting.
type Op string

const (
	OpGetUser    Op = "users.get"
	OpCreateUser Op = "users.create"
	OpListPosts  Op = "posts.list"
	OpGetPost    Op = "posts.get"
	OpCreatePost Op = "posts.create"
	OpUpdatePost Op = "posts.update"
	OpDeletePost Op = "posts.delete"
)

// Hook runs before an operation touches the data; a non-nil error is
// returned from the call instead.
type Hook func(ctx context.Context) error

// Store implements both UserRepository and PostRepository.
type Store struct {
	mutex   sync.Mutex
	users   map[string]*models.User
	posts   map[models.ID]*models.Post
	nextID  int
	clock   time.Time
	calls   map[Op]int
	fail    map[Op]error
	hooks   map[Op]Hook
	updates []repositories.PostUpdate
}

func NewStore() *Store {
	return &Store{
		users:  make(map[string]*models.User),
		posts:  make(map[models.ID]*models.Post),
		nextID: 1,
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		calls:  make(map[Op]int),
		fail:   make(map[Op]error),
		hooks:  make(map[Op]Hook),
	}
}

// Clear drops all rows and injected behaviour.
func (m *Store) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.users = make(map[string]*models.User)
	m.posts = make(map[models.ID]*models.Post)
	m.nextID = 1
	m.calls = make(map[Op]int)
	m.fail = make(map[Op]error)
	m.hooks = make(map[Op]Hook)
	m.updates = nil
}

// Fail makes every later op return err until Fail(op, nil).
func (m *Store) Fail(op Op, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

// SetHook installs h before op; nil removes it.
func (m *Store) SetHook(op Op, h Hook) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if h == nil {
		delete(m.hooks, op)
		return
	}
	m.hooks[op] = h
}

// Calls counts invocations of op, failed ones included.
func (m *Store) Calls(op Op) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.calls[op]
}

// Updates returns every successful post update in order.
func (m *Store) Updates() []repositories.PostUpdate {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]repositories.PostUpdate(nil), m.updates...)
}

// Seed stores post as-is (ID and CreatedAt assigned when empty).
func (m *Store) Seed(post *models.Post) *models.Post {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.assign(post)
	m.posts[post.ID] = post.Clone()
	return post
}

// Post returns a copy of the stored row, or nil.
func (m *Store) Post(id models.ID) *models.Post {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.posts[id].Clone()
}

func (m *Store) assign(post *models.Post) {
	if post.ID == "" {
		post.ID = models.ID(strconv.Itoa(m.nextID))
		m.nextID++
	}
	if post.CreatedAt.IsZero() {
		m.clock = m.clock.Add(time.Minute)
		post.CreatedAt = m.clock
	}
	post.BeforeCreate()
}

// enter counts the call and runs injected behaviour outside the lock so
// hooks may block.
func (m *Store) enter(ctx context.Context, op Op) error {
	m.mutex.Lock()
	m.calls[op]++
	hook := m.hooks[op]
	m.mutex.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.fail[op]
}

func (m *Store) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := m.enter(ctx, OpGetUser); err != nil {
		return nil, err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	user, ok := m.users[username]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *Store) Create(ctx context.Context, user *models.User) error {
	if err := m.enter(ctx, OpCreateUser); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return repositories.ErrDuplicate
	}
	cp := *user
	m.users[user.Username] = &cp
	return nil
}

// Posts exposes the post side under the PostRepository method names.
func (m *Store) Posts() *PostRepository {
	return &PostRepository{store: m}
}

// PostRepository adapts Store to repositories.PostRepository; Create would
// otherwise collide with the user method.
type PostRepository struct {
	store *Store
}

func (p *PostRepository) List(ctx context.Context) ([]*models.Post, error) {
	m := p.store
	if err := m.enter(ctx, OpListPosts); err != nil {
		return nil, err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	posts := make([]*models.Post, 0, len(m.posts))
	for _, post := range m.posts {
		posts = append(posts, post.Clone())
	}
	repositories.SortNewestFirst(posts)
	return posts, nil
}

func (p *PostRepository) GetByID(ctx context.Context, id models.ID) (*models.Post, error) {
	m := p.store
	if err := m.enter(ctx, OpGetPost); err != nil {
		return nil, err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return post.Clone(), nil
}

func (p *PostRepository) Create(ctx context.Context, post *models.Post) error {
	m := p.store
	if err := m.enter(ctx, OpCreatePost); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	post.ID = ""
	post.CreatedAt = time.Time{}
	m.assign(post)
	m.posts[post.ID] = post.Clone()
	return nil
}

func (p *PostRepository) Update(ctx context.Context, id models.ID, upd repositories.PostUpdate) error {
	m := p.store
	if err := m.enter(ctx, OpUpdatePost); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return repositories.ErrNotFound
	}
	upd.Apply(post)
	m.updates = append(m.updates, upd)
	return nil
}

func (p *PostRepository) Delete(ctx context.Context, id models.ID) error {
	m := p.store
	if err := m.enter(ctx, OpDeletePost); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

var (
	_ repositories.UserRepository = (*Store)(nil)
	_ repositories.PostRepository = (*PostRepository)(nil)
)
