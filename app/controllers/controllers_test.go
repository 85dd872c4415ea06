package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"animehub/app/apperrors"
	"animehub/app/auth"
	"animehub/app/models"
	"animehub/app/repositories/mock"
	"animehub/app/services"
	"animehub/app/session"
	"animehub/app/views"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testApp struct {
	store    *mock.Store
	engines  *services.EngineRegistry
	sessions *session.Store
	router   *mux.Router
	auth     *AuthController
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	store := mock.NewStore()
	v, err := views.New()
	require.NoError(t, err)

	sessions, err := session.NewStore("controllers-test", time.Hour)
	require.NoError(t, err)
	engines := services.NewEngineRegistry(store.Posts())
	sessions.OnRemove(engines.DetachSession)
	creds := services.NewCredentialService(store, auth.NewBcryptVerifier(bcrypt.MinCost))
	ac := NewAuthController(creds, sessions, v)
	fc := NewFeedController(store.Posts(), engines, v)
	pc := NewPostController(services.NewPostService(store.Posts()), engines, v)

	router := mux.NewRouter()
	router.HandleFunc("/", fc.Index).Methods("GET")
	router.HandleFunc("/login", ac.Login).Methods("POST")
	router.HandleFunc("/register", ac.Register).Methods("POST")
	router.HandleFunc("/logout", ac.Logout).Methods("POST")
	router.HandleFunc("/add", pc.Create).Methods("POST")
	router.HandleFunc("/post/{id}", pc.Show).Methods("GET")
	router.HandleFunc("/post/{id}/like", pc.Like).Methods("POST")
	router.HandleFunc("/post/{id}/comment", pc.Comment).Methods("POST")
	router.HandleFunc("/post/{id}/edit", pc.BeginEdit).Methods("POST")
	router.HandleFunc("/post/{id}/caption", pc.SaveCaption).Methods("POST")
	router.HandleFunc("/post/{id}/cancel", pc.CancelEdit).Methods("POST")
	router.HandleFunc("/post/{id}/delete", pc.Delete).Methods("POST")
	router.HandleFunc("/api/posts", fc.Index).Methods("GET")
	router.HandleFunc("/api/posts", pc.Create).Methods("POST")
	router.HandleFunc("/api/posts/{id}", pc.Show).Methods("GET")
	router.HandleFunc("/api/posts/{id}/like", pc.Like).Methods("POST")
	router.HandleFunc("/api/posts/{id}", pc.Delete).Methods("DELETE")
	router.HandleFunc("/api/session", ac.Current).Methods("GET")

	return &testApp{store: store, engines: engines, sessions: sessions, router: router, auth: ac}
}

func loggedIn(username string) *session.Session {
	s := session.New()
	if username != "" {
		s.Login(&models.User{Username: username})
	}
	return s
}

func (a *testApp) do(s *session.Session, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req = req.WithContext(session.WithSession(req.Context(), s))
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) doJSON(s *session.Session, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(session.WithSession(req.Context(), s))
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// issued resolves the session whose cookie w sets.
func (a *testApp) issued(t *testing.T, w *httptest.ResponseRecorder) *session.Session {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name != session.CookieName {
			continue
		}
		id, err := a.sessions.Parse(c.Value)
		require.NoError(t, err)
		s, ok := a.sessions.Get(id)
		require.True(t, ok)
		return s
	}
	t.Fatal("no session cookie issued")
	return nil
}

func (a *testApp) seed(author, caption string, likes ...string) *models.Post {
	return a.store.Seed(&models.Post{
		Username: author,
		ImageURL: "https://img.example/" + author + ".png",
		Caption:  caption,
		Likes:    likes,
	})
}

func TestRegisterAndLogin(t *testing.T) {
	app := setupTestApp(t)

	anonymous := loggedIn("")
	w := app.do(anonymous, "POST", "/register", url.Values{"username": {"bob"}, "password": {"pw1"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.False(t, anonymous.Authenticated())
	bob := app.issued(t, w)
	assert.NotEqual(t, anonymous.ID(), bob.ID())
	assert.Equal(t, "bob", bob.Username())

	t.Run("duplicate registration clears username", func(t *testing.T) {
		other := loggedIn("")
		w := app.do(other, "POST", "/register", url.Values{"username": {"bob"}, "password": {"anything"}})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "Username already exists")
		assert.NotContains(t, w.Body.String(), `value="bob"`)
		assert.False(t, other.Authenticated())
		assert.Empty(t, w.Result().Cookies())
		assert.Equal(t, 1, app.sessions.Len())
	})

	t.Run("wrong password keeps username", func(t *testing.T) {
		s := loggedIn("")
		w := app.do(s, "POST", "/login", url.Values{"username": {"bob"}, "password": {"nope"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Password incorrect")
		assert.Contains(t, w.Body.String(), `value="bob"`)
		assert.False(t, s.Authenticated())
	})

	t.Run("unknown username clears username", func(t *testing.T) {
		s := loggedIn("")
		w := app.do(s, "POST", "/login", url.Values{"username": {"ghost"}, "password": {"pw1"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Username does not exist")
		assert.NotContains(t, w.Body.String(), `value="ghost"`)
	})

	t.Run("json login", func(t *testing.T) {
		s := loggedIn("")
		req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"username":"bob","password":"pw1"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req = req.WithContext(session.WithSession(req.Context(), s))
		w := httptest.NewRecorder()
		app.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"username":"bob"}`, w.Body.String())
		assert.False(t, s.Authenticated())
		assert.Equal(t, "bob", app.issued(t, w).Username())
	})

	t.Run("logout forgets the session and its views", func(t *testing.T) {
		p := app.seed("alice", "hi")
		app.engines.Attach(bob.ID(), bob.Username(), p)
		require.Equal(t, 1, app.engines.Len())

		w := app.do(bob, "POST", "/logout", nil)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.False(t, bob.Authenticated())
		_, ok := app.sessions.Get(bob.ID())
		assert.False(t, ok)
		assert.Equal(t, 0, app.engines.Len())
	})
}

func TestFeed(t *testing.T) {
	app := setupTestApp(t)
	app.seed("alice", "first", "x")
	app.seed("bob", "second", "x", "y")
	app.seed("Alicia", "third")

	var view services.FeedView
	w := app.do(loggedIn("bob"), "GET", "/api/posts?q=ali&sort=oldest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, services.FeedPopulated, view.State)
	assert.Equal(t, services.SortOldest, view.Sort)
	require.Len(t, view.Posts, 2)
	assert.Equal(t, "alice", view.Posts[0].Username)
	assert.Equal(t, "Alicia", view.Posts[1].Username)

	w = app.do(loggedIn("bob"), "GET", "/?sort=mostLiked", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Less(t, strings.Index(body, `id="post-2"`), strings.Index(body, `id="post-1"`))

	app.store.Fail(mock.OpListPosts, errors.New("down"))
	w = app.do(loggedIn("bob"), "GET", "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Could not load posts.")
}

func TestCreatePost(t *testing.T) {
	app := setupTestApp(t)
	bob := loggedIn("bob")

	w := app.do(bob, "POST", "/add", url.Values{"imageurl": {""}, "say": {"keep me"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "keep me")
	assert.Contains(t, w.Body.String(), "Image URL is required")
	assert.Equal(t, 0, app.store.Calls(mock.OpCreatePost))

	app.store.Fail(mock.OpCreatePost, errors.New("insert failed"))
	w = app.do(bob, "POST", "/add", url.Values{"imageurl": {"https://img.example/x.png"}, "say": {"keep me"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "https://img.example/x.png")
	assert.Contains(t, w.Body.String(), "keep me")
	app.store.Fail(mock.OpCreatePost, nil)

	w = app.do(bob, "POST", "/add", url.Values{"imageurl": {"https://img.example/x.png"}, "say": {"hello"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = app.doJSON(bob, "POST", "/api/posts", `{"imageurl":"https://img.example/y.png","say":"api"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	var created models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "bob", created.Username)
	assert.Equal(t, "api", created.Caption)
}

func TestPostInteractions(t *testing.T) {
	app := setupTestApp(t)
	p := app.seed("alice", "original")
	target := "/post/" + p.ID.String()
	bob := loggedIn("bob")

	w := app.do(bob, "GET", target, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "original")
	assert.NotContains(t, w.Body.String(), target+"/delete")

	t.Run("like and unlike", func(t *testing.T) {
		w := app.do(bob, "POST", target+"/like", nil)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, target, w.Header().Get("Location"))
		assert.True(t, app.store.Post(p.ID).LikedBy("bob"))

		app.do(bob, "POST", target+"/like", nil)
		assert.False(t, app.store.Post(p.ID).LikedBy("bob"))
	})

	t.Run("like failure rolls back", func(t *testing.T) {
		app.store.Fail(mock.OpUpdatePost, errors.New("boom"))
		defer app.store.Fail(mock.OpUpdatePost, nil)

		w := app.do(bob, "POST", target+"/like", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), ">Like</button>")
	})

	t.Run("comment failure keeps the text", func(t *testing.T) {
		app.store.Fail(mock.OpUpdatePost, errors.New("boom"))
		w := app.do(bob, "POST", target+"/comment", url.Values{"text": {"so good"}})
		app.store.Fail(mock.OpUpdatePost, nil)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), `value="so good"`)
		assert.Empty(t, app.store.Post(p.ID).Comments)
	})

	t.Run("comment", func(t *testing.T) {
		w := app.do(bob, "POST", target+"/comment", url.Values{"text": {"  so good "}})
		assert.Equal(t, http.StatusSeeOther, w.Code)
		comments := app.store.Post(p.ID).Comments
		require.Len(t, comments, 1)
		assert.Equal(t, "so good", comments[0].Text)
		assert.Equal(t, "bob", comments[0].User)
	})

	t.Run("non-author cannot edit or delete", func(t *testing.T) {
		w := app.do(bob, "POST", target+"/edit", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = app.do(bob, "POST", target+"/delete", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, 0, app.store.Calls(mock.OpDeletePost))
	})

	alice := loggedIn("alice")

	t.Run("author edits", func(t *testing.T) {
		w := app.do(alice, "POST", target+"/edit", nil)
		assert.Equal(t, http.StatusSeeOther, w.Code)

		w = app.do(alice, "GET", target, nil)
		assert.Contains(t, w.Body.String(), "original</textarea>")

		app.store.Fail(mock.OpUpdatePost, errors.New("boom"))
		w = app.do(alice, "POST", target+"/caption", url.Values{"say": {"attempted"}})
		app.store.Fail(mock.OpUpdatePost, nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "attempted</textarea>")

		w = app.do(alice, "POST", target+"/caption", url.Values{"say": {"edited"}})
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "edited", app.store.Post(p.ID).Caption)

		w = app.do(alice, "GET", target, nil)
		assert.NotContains(t, w.Body.String(), "</textarea>")
	})

	t.Run("author cancels edit", func(t *testing.T) {
		app.do(alice, "POST", target+"/edit", nil)
		w := app.do(alice, "POST", target+"/cancel", nil)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		e, ok := app.engines.Get(alice.ID(), p.ID)
		require.True(t, ok)
		assert.Equal(t, services.Viewing, e.View().State)
	})

	t.Run("author deletes", func(t *testing.T) {
		app.store.Fail(mock.OpDeletePost, errors.New("boom"))
		w := app.do(alice, "POST", target+"/delete", nil)
		app.store.Fail(mock.OpDeletePost, nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.NotNil(t, app.store.Post(p.ID))

		w = app.do(alice, "POST", target+"/delete", nil)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		assert.Nil(t, app.store.Post(p.ID))
		_, ok := app.engines.Get(alice.ID(), p.ID)
		assert.False(t, ok)

		// The post no longer exists, so the view sends the user back to the feed.
		w = app.do(alice, "GET", target, nil)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})
}

func TestPostAPI(t *testing.T) {
	app := setupTestApp(t)
	p := app.seed("alice", "hello")
	target := "/api/posts/" + p.ID.String()
	bob := loggedIn("bob")

	w := app.do(bob, "POST", target+"/like", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view services.PostView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.True(t, view.IsLiked)
	assert.False(t, view.IsOwner)
	assert.Equal(t, services.Viewing, view.State)

	w = app.do(bob, "DELETE", target, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"code":"NOT_OWNER","message":"Only the author can do that"}`, w.Body.String())

	w = app.do(bob, "GET", "/api/posts/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(loggedIn("alice"), "DELETE", target, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(bob, "GET", "/api/session", nil)
	assert.JSONEq(t, `{"username":"bob"}`, w.Body.String())
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, apperrors.NotOwner, errorKind(apperrors.New(apperrors.NotOwner)))
	assert.Equal(t, apperrors.RemoteStoreFailure, errorKind(errors.New("plain")))
}
