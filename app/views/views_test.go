package views

import (
	"bytes"
	"testing"
	"time"

	"animehub/app/apperrors"
	"animehub/app/forms"
	"animehub/app/models"
	"animehub/app/services"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noon = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	prev := Location
	Location = time.UTC
	t.Cleanup(func() { Location = prev })

	r, err := New()
	require.NoError(t, err)
	return r
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func samplePost() *models.Post {
	return &models.Post{
		ID:       "7",
		Username: "alice",
		ImageURL: "https://img.example/a.png",
		Caption:  "Tom & Jerry",
		Likes:    []string{"bob", "carol"},
		Comments: models.CommentList{
			models.NewComment("bob", "first", noon),
			models.NewComment("carol", "second", noon.Add(time.Hour)),
		},
		CreatedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestCommentPartial(t *testing.T) {
	r := newRenderer(t)
	var buf bytes.Buffer
	require.NoError(t, r.Partial(&buf, "comment", models.NewComment("bob", "<3 this", noon)))
	golden(t).Assert(t, "comment", buf.Bytes())
}

func TestCardPartial(t *testing.T) {
	r := newRenderer(t)
	var buf bytes.Buffer
	require.NoError(t, r.Partial(&buf, "card", samplePost()))
	golden(t).Assert(t, "card", buf.Bytes())
}

func TestCardWithoutComments(t *testing.T) {
	r := newRenderer(t)
	p := samplePost()
	p.Comments = nil

	var buf bytes.Buffer
	require.NoError(t, r.Partial(&buf, "card", p))
	assert.NotContains(t, buf.String(), "comments")
}

func TestFeedPage(t *testing.T) {
	r := newRenderer(t)

	tests := []struct {
		name  string
		view  services.FeedView
		wants []string
	}{
		{
			name:  "loading",
			view:  services.FeedView{State: services.FeedLoading},
			wants: []string{"Loading..."},
		},
		{
			name:  "empty",
			view:  services.FeedView{State: services.FeedEmpty, Query: "zed"},
			wants: []string{"No posts found.", `value="zed"`},
		},
		{
			name:  "failed",
			view:  services.FeedView{State: services.FeedFailed},
			wants: []string{"Could not load posts."},
		},
		{
			name: "populated",
			view: services.FeedView{
				State: services.FeedPopulated,
				Posts: []*models.Post{samplePost()},
				Sort:  services.SortMostLiked,
			},
			wants: []string{`id="post-7"`, `<option value="mostLiked" selected>Most liked</option>`, "View all 2 comments"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := r.Render(&buf, PageFeed, FeedPage{
				Page:  Page{Title: "Feed", User: "bob"},
				Feed:  tt.view,
				Sorts: SortOptions,
			})
			require.NoError(t, err)
			for _, want := range tt.wants {
				assert.Contains(t, buf.String(), want)
			}
			assert.Contains(t, buf.String(), "Logout bob")
		})
	}
}

func TestAuthPages(t *testing.T) {
	r := newRenderer(t)

	var buf bytes.Buffer
	login := forms.LoginForm{Username: "bob", Password: "secret"}.Apply(forms.Fail(apperrors.New(apperrors.WrongPassword)))
	require.NoError(t, r.Render(&buf, PageLogin, LoginPage{Page: Page{Title: "Login"}, Form: login}))
	assert.Contains(t, buf.String(), `value="bob"`)
	assert.Contains(t, buf.String(), "Password incorrect")
	assert.NotContains(t, buf.String(), "secret")
	assert.Contains(t, buf.String(), `href="/register"`)

	buf.Reset()
	reg := forms.RegisterForm{Username: "bob"}.Apply(forms.Fail(apperrors.New(apperrors.UsernameTaken)))
	require.NoError(t, r.Render(&buf, PageRegister, RegisterPage{Page: Page{Title: "Register"}, Form: reg}))
	assert.Contains(t, buf.String(), "Username already exists")
	assert.NotContains(t, buf.String(), `value="bob"`)
}

func TestAddPage(t *testing.T) {
	r := newRenderer(t)
	form := forms.AddForm{Caption: "kept caption"}.Apply(forms.Fail(apperrors.New(apperrors.MissingImageURL)))

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, PageAdd, AddPage{Page: Page{Title: "Add", User: "bob"}, Form: form}))
	assert.Contains(t, buf.String(), "kept caption")
	assert.Contains(t, buf.String(), "Image URL is required")
}

func TestPostPage(t *testing.T) {
	r := newRenderer(t)

	t.Run("owner viewing", func(t *testing.T) {
		var buf bytes.Buffer
		err := r.Render(&buf, PagePost, PostPage{
			Page: Page{Title: "Post", User: "alice"},
			View: services.PostView{Post: samplePost(), IsOwner: true, State: services.Viewing},
		})
		require.NoError(t, err)
		out := buf.String()
		assert.Contains(t, out, `action="/post/7/edit"`)
		assert.Contains(t, out, `action="/post/7/delete"`)
		assert.Contains(t, out, "<li>bob</li><li>carol</li>")
		assert.Contains(t, out, "second")
		assert.Contains(t, out, ">Like</button>")
	})

	t.Run("visitor with failed comment", func(t *testing.T) {
		var buf bytes.Buffer
		comment := forms.CommentForm{Text: "retry me"}.Apply(forms.Fail(apperrors.Store("update comments", assert.AnError)))
		err := r.Render(&buf, PagePost, PostPage{
			Page:    Page{Title: "Post", User: "bob"},
			View:    services.PostView{Post: samplePost(), IsLiked: true, State: services.Viewing},
			Comment: comment,
		})
		require.NoError(t, err)
		out := buf.String()
		assert.NotContains(t, out, "/delete")
		assert.NotContains(t, out, "/edit")
		assert.Contains(t, out, ">Unlike</button>")
		assert.Contains(t, out, `value="retry me"`)
		assert.Contains(t, out, apperrors.RemoteStoreFailure.Message())
	})

	t.Run("editing", func(t *testing.T) {
		var buf bytes.Buffer
		err := r.Render(&buf, PagePost, PostPage{
			Page: Page{Title: "Post", User: "alice"},
			View: services.PostView{Post: samplePost(), IsOwner: true, State: services.Editing},
			Edit: forms.EditForm{}.Apply(forms.Begin("draft caption")),
		})
		require.NoError(t, err)
		out := buf.String()
		assert.Contains(t, out, "draft caption</textarea>")
		assert.Contains(t, out, `action="/post/7/cancel"`)
		assert.NotContains(t, out, `action="/post/7/edit"`)
	})
}

func TestRenderUnknownPage(t *testing.T) {
	r := newRenderer(t)
	assert.Error(t, r.Render(&bytes.Buffer{}, "missing", nil))
}
