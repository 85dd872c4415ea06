package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"animehub/app/models"
	"animehub/app/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  map[string]string
	prefer string
	body   map[string]any
}

// fakeREST answers every request with status and payload and remembers
// what it was asked.
func fakeREST(t *testing.T, status int, payload string) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		rec := recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  map[string]string{},
			prefer: r.Header.Get("Prefer"),
		}
		for k := range r.URL.Query() {
			rec.query[k] = r.URL.Query().Get(k)
		}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			require.NoError(t, json.Unmarshal(data, &rec.body))
		}
		calls = append(calls, rec)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, payload)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "secret", WithTransport(srv.Client().Transport), WithTimeout(time.Second)), &calls
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup hit", func(t *testing.T) {
		c, calls := fakeREST(t, http.StatusOK, `[{"username":"bob","password":"$2a$10$hash"}]`)
		user, err := NewUserRepository(c).GetByUsername(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, "$2a$10$hash", user.PasswordHash)
		assert.Equal(t, "/rest/v1/users", (*calls)[0].path)
		assert.Equal(t, "eq.bob", (*calls)[0].query["username"])
	})

	t.Run("lookup miss", func(t *testing.T) {
		c, _ := fakeREST(t, http.StatusOK, `[]`)
		_, err := NewUserRepository(c).GetByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("insert duplicate", func(t *testing.T) {
		c, calls := fakeREST(t, http.StatusConflict, `{"code":"23505","message":"duplicate key value"}`)
		err := NewUserRepository(c).Create(ctx, &models.User{Username: "bob", PasswordHash: "h"})
		assert.ErrorIs(t, err, repositories.ErrDuplicate)
		assert.Equal(t, map[string]any{"username": "bob", "password": "h"}, (*calls)[0].body)
	})
}

func TestPostRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("list orders by created_at desc", func(t *testing.T) {
		c, calls := fakeREST(t, http.StatusOK, `[
			{"id":2,"username":"bob","imageurl":"u2","say":"b","likes":["x","x"],"comments":["{\"date\":1,\"text\":\"hi\",\"user\":\"x\"}"],"created_at":"2024-02-01T00:00:00+00:00"},
			{"id":1,"username":"amy","imageurl":"u1","say":"a","likes":[],"comments":[],"created_at":"2024-01-01T00:00:00+00:00"}
		]`)
		posts, err := NewPostRepository(c).List(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, models.ID("2"), posts[0].ID)
		assert.Equal(t, []string{"x"}, posts[0].Likes)
		assert.Equal(t, "hi", posts[0].Comments[0].Text)
		assert.Equal(t, "created_at.desc", (*calls)[0].query["order"])
	})

	t.Run("create sends empty collections and reads id back", func(t *testing.T) {
		c, calls := fakeREST(t, http.StatusCreated, `[{"id":9,"username":"bob","imageurl":"u","say":"","likes":[],"comments":[],"created_at":"2024-03-01T00:00:00+00:00"}]`)
		post := models.NewPost("bob", "u", "")
		require.NoError(t, NewPostRepository(c).Create(ctx, post))
		assert.Equal(t, models.ID("9"), post.ID)
		assert.Equal(t, "return=representation", (*calls)[0].prefer)
		assert.Equal(t, []any{}, (*calls)[0].body["likes"])
		assert.Equal(t, []any{}, (*calls)[0].body["comments"])
		assert.NotContains(t, (*calls)[0].body, "id")
	})

	t.Run("create without a returned row fails", func(t *testing.T) {
		c, _ := fakeREST(t, http.StatusCreated, `[]`)
		post := models.NewPost("bob", "u", "")
		err := NewPostRepository(c).Create(ctx, post)
		assert.ErrorIs(t, err, errEmptyInsert)
		assert.Empty(t, post.ID)
	})

	t.Run("update is scoped and partial", func(t *testing.T) {
		c, calls := fakeREST(t, http.StatusOK, `[{"id":3}]`)
		comments := models.CommentList{{Date: 5, Text: "yo", User: "amy"}}
		require.NoError(t, NewPostRepository(c).Update(ctx, "3", repositories.UpdateComments(comments)))

		call := (*calls)[0]
		assert.Equal(t, http.MethodPatch, call.method)
		assert.Equal(t, "eq.3", call.query["id"])
		assert.Equal(t, map[string]any{"comments": []any{`{"date":5,"text":"yo","user":"amy"}`}}, call.body)
	})

	t.Run("update of missing row", func(t *testing.T) {
		c, _ := fakeREST(t, http.StatusOK, `[]`)
		err := NewPostRepository(c).Update(ctx, "3", repositories.UpdateCaption("x"))
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("server error surfaces", func(t *testing.T) {
		c, _ := fakeREST(t, http.StatusInternalServerError, `{"message":"boom"}`)
		err := NewPostRepository(c).Delete(ctx, "3")
		var serr *StatusError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, http.StatusInternalServerError, serr.Status)
		assert.Equal(t, "boom", serr.Message)
	})

	t.Run("get by id", func(t *testing.T) {
		c, calls := fakeREST(t, http.StatusOK, `[]`)
		_, err := NewPostRepository(c).GetByID(ctx, "77")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		assert.Equal(t, "eq.77", (*calls)[0].query["id"])
	})
}
