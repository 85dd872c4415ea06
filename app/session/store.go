package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie carrying the signed session id.
const CookieName = "animehub_session"

var ErrInvalidToken = errors.New("invalid session token")

type claims struct {
	jwt.RegisteredClaims
}

// sweepInterval bounds how often Create and Get scan for idle sessions.
const sweepInterval = time.Minute

type entry struct {
	session *Session
	seen    time.Time
}

// Store keeps live sessions and encodes their ids into signed cookies.
// A session unused for longer than the cookie lifetime is dropped.
type Store struct {
	mutex     sync.Mutex
	sessions  map[string]*entry
	lastSweep time.Time
	onRemove  []func(id string)
	secret    []byte
	ttl       time.Duration
	secure    bool
	now       func() time.Time
}

// NewStore creates a store signing with secret. An empty secret is
// replaced with random bytes.
func NewStore(secret string, ttl time.Duration) (*Store, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Store{
		sessions: make(map[string]*entry),
		secret:   key,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// SetSecure marks issued cookies Secure.
func (st *Store) SetSecure(secure bool) { st.secure = secure }

// OnRemove registers fn to run with the id of every session that is
// deleted or expires. fn runs without the store lock held.
func (st *Store) OnRemove(fn func(id string)) {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	st.onRemove = append(st.onRemove, fn)
}

// Create registers a new anonymous session.
func (st *Store) Create() *Session {
	s := New()
	now := st.now()

	st.mutex.Lock()
	expired := st.sweepLocked(now)
	st.sessions[s.ID()] = &entry{session: s, seen: now}
	hooks := st.onRemove
	st.mutex.Unlock()

	notify(hooks, expired)
	return s
}

// Get returns the live session with id and marks it as used.
func (st *Store) Get(id string) (*Session, bool) {
	now := st.now()

	st.mutex.Lock()
	expired := st.sweepLocked(now)
	e, ok := st.sessions[id]
	if ok && st.idle(e, now) {
		delete(st.sessions, id)
		expired = append(expired, id)
		ok = false
	}
	if ok {
		e.seen = now
	}
	hooks := st.onRemove
	st.mutex.Unlock()

	notify(hooks, expired)
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Delete forgets the session with id.
func (st *Store) Delete(id string) {
	st.mutex.Lock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	hooks := st.onRemove
	st.mutex.Unlock()

	if ok {
		notify(hooks, []string{id})
	}
}

// Replace makes fresh the session behind w's cookie and forgets old.
func (st *Store) Replace(w http.ResponseWriter, old, fresh *Session) error {
	if err := st.WriteCookie(w, fresh); err != nil {
		return err
	}
	if old != nil && old.ID() != fresh.ID() {
		old.Logout()
		st.Delete(old.ID())
	}
	return nil
}

// Prune drops idle sessions and reports how many went.
func (st *Store) Prune() int {
	now := st.now()
	st.mutex.Lock()
	expired := st.pruneLocked(now)
	hooks := st.onRemove
	st.mutex.Unlock()

	notify(hooks, expired)
	return len(expired)
}

// Len counts live sessions.
func (st *Store) Len() int {
	st.Prune()
	st.mutex.Lock()
	defer st.mutex.Unlock()
	return len(st.sessions)
}

func (st *Store) idle(e *entry, now time.Time) bool {
	return now.Sub(e.seen) > st.ttl
}

func (st *Store) sweepLocked(now time.Time) []string {
	if now.Sub(st.lastSweep) < sweepInterval {
		return nil
	}
	return st.pruneLocked(now)
}

func (st *Store) pruneLocked(now time.Time) []string {
	st.lastSweep = now
	var expired []string
	for id, e := range st.sessions {
		if st.idle(e, now) {
			delete(st.sessions, id)
			expired = append(expired, id)
		}
	}
	return expired
}

func notify(hooks []func(id string), ids []string) {
	for _, id := range ids {
		for _, fn := range hooks {
			fn(id)
		}
	}
}

// Sign returns the token for session id.
func (st *Store) Sign(id string) (string, error) {
	now := st.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(st.ttl)),
		},
	})
	return token.SignedString(st.secret)
}

// Parse validates token and returns the session id it carries.
func (st *Store) Parse(token string) (string, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return st.secret, nil
	}, jwt.WithTimeFunc(st.now))
	if err != nil || !parsed.Valid || c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}

// Load returns the session named by r's cookie, creating (and setting a
// cookie for) a fresh anonymous one when the cookie is missing, invalid or
// refers to a session this process does not know.
func (st *Store) Load(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if c, err := r.Cookie(CookieName); err == nil {
		if id, err := st.Parse(c.Value); err == nil {
			if s, ok := st.Get(id); ok {
				return s, nil
			}
		}
	}
	s := st.Create()
	if err := st.WriteCookie(w, s); err != nil {
		st.Delete(s.ID())
		return nil, err
	}
	return s, nil
}

// WriteCookie sets the session cookie for s on w.
func (st *Store) WriteCookie(w http.ResponseWriter, s *Session) error {
	token, err := st.Sign(s.ID())
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   st.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  st.now().Add(st.ttl),
	})
	return nil
}
