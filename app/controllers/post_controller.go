package controllers

import (
	"net/http"

	"animehub/app/apperrors"
	"animehub/app/forms"
	"animehub/app/models"
	"animehub/app/services"
	"animehub/app/views"

	"github.com/gorilla/mux"
)

// PostController handles post creation and the single post view
type PostController struct {
	postService *services.PostService
	engines     *services.EngineRegistry
	views       *views.Renderer
}

// NewPostController creates a new PostController
func NewPostController(postService *services.PostService, engines *services.EngineRegistry, v *views.Renderer) *PostController {
	return &PostController{postService: postService, engines: engines, views: v}
}

func postURL(id models.ID) string {
	return "/post/" + id.String()
}

// New displays the form for creating a new post
func (pc *PostController) New(w http.ResponseWriter, r *http.Request) {
	render(w, pc.views, http.StatusOK, views.PageAdd, views.AddPage{Page: page(r, "New post")})
}

// Create handles creating a new post
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(r, "imageurl", "say")
	if err != nil {
		sendError(w, r, err)
		return
	}
	form := forms.AddForm{}.
		Apply(forms.Change(forms.FieldImageURL, fields["imageurl"])).
		Apply(forms.Change(forms.FieldCaption, fields["say"])).
		Apply(forms.Submit())

	post, err := pc.postService.CreatePost(r.Context(), currentSession(r).Username(), form.ImageURL, form.Caption)
	if err != nil {
		if wantsJSON(r) {
			sendError(w, r, err)
			return
		}
		form = form.Apply(forms.Fail(err))
		render(w, pc.views, form.Error.StatusCode(), views.PageAdd, views.AddPage{Page: page(r, "New post"), Form: form})
		return
	}

	if wantsJSON(r) {
		sendJSON(w, http.StatusCreated, post)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// engine returns the session's engine for the post in the URL, fetching
// the post when the session has none attached yet. On failure the
// response has been written.
func (pc *PostController) engine(w http.ResponseWriter, r *http.Request, refresh bool) (*services.PostEngine, bool) {
	id := models.ID(mux.Vars(r)["id"])
	sid := sessionID(r)
	username := currentSession(r).Username()

	if !refresh {
		if e, ok := pc.engines.Get(sid, id); ok && e.Username() == username {
			return e, true
		}
	}

	post, err := pc.postService.GetPost(r.Context(), id)
	if err != nil {
		if wantsJSON(r) {
			sendError(w, r, err)
		} else {
			http.Redirect(w, r, "/", http.StatusSeeOther)
		}
		return nil, false
	}
	return pc.engines.Attach(sid, username, post), true
}

// showPage renders the post view with the given form states.
func (pc *PostController) showPage(w http.ResponseWriter, r *http.Request, status int, data views.PostPage) {
	data.Page = page(r, "Post")
	if data.View.State == services.Editing && !data.Edit.Editing {
		data.Edit = forms.EditForm{}.Apply(forms.Begin(data.View.Post.Caption))
	}
	render(w, pc.views, status, views.PagePost, data)
}

// respond finishes an engine operation.
func (pc *PostController) respond(w http.ResponseWriter, r *http.Request, e *services.PostEngine, view services.PostView, err error, data views.PostPage) {
	switch {
	case err != nil && wantsJSON(r):
		sendError(w, r, err)
	case err != nil:
		if data.View.Post == nil {
			data.View = e.View()
		}
		pc.showPage(w, r, errorKind(err).StatusCode(), data)
	case view.Post == nil:
		// The session left this post while the call was in flight.
		if wantsJSON(r) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case wantsJSON(r):
		sendJSON(w, http.StatusOK, view)
	default:
		http.Redirect(w, r, postURL(view.Post.ID), http.StatusSeeOther)
	}
}

// Show handles displaying a single post
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	e, ok := pc.engine(w, r, true)
	if !ok {
		return
	}
	view := e.View()
	if wantsJSON(r) {
		sendJSON(w, http.StatusOK, view)
		return
	}
	pc.showPage(w, r, http.StatusOK, views.PostPage{View: view})
}

// Like toggles the current user's like
func (pc *PostController) Like(w http.ResponseWriter, r *http.Request) {
	e, ok := pc.engine(w, r, false)
	if !ok {
		return
	}
	view, err := e.ToggleLike(r.Context())
	pc.respond(w, r, e, view, err, views.PostPage{View: view, Error: apperrors.KindOf(err)})
}

// Comment appends a comment
func (pc *PostController) Comment(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(r, "text")
	if err != nil {
		sendError(w, r, err)
		return
	}
	e, ok := pc.engine(w, r, false)
	if !ok {
		return
	}
	form := forms.CommentForm{}.Apply(forms.Change(forms.FieldText, fields["text"])).Apply(forms.Submit())
	view, err := e.Comment(r.Context(), form.Text)
	if err != nil {
		form = form.Apply(forms.Fail(err))
	}
	pc.respond(w, r, e, view, err, views.PostPage{View: view, Comment: form})
}

// BeginEdit switches the post view into edit mode
func (pc *PostController) BeginEdit(w http.ResponseWriter, r *http.Request) {
	e, ok := pc.engine(w, r, false)
	if !ok {
		return
	}
	_, err := e.BeginEdit()
	pc.respond(w, r, e, e.View(), err, views.PostPage{Error: apperrors.KindOf(err)})
}

// SaveCaption stores an edited caption
func (pc *PostController) SaveCaption(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(r, "say")
	if err != nil {
		sendError(w, r, err)
		return
	}
	e, ok := pc.engine(w, r, false)
	if !ok {
		return
	}
	form := forms.EditForm{}.Apply(forms.Begin(fields["say"])).Apply(forms.Submit())
	view, err := e.SaveCaption(r.Context(), fields["say"])
	data := views.PostPage{View: view}
	if err != nil {
		if apperrors.Is(err, apperrors.RemoteStoreFailure) {
			data.Edit = form.Apply(forms.Fail(err))
		} else {
			data.Error = errorKind(err)
		}
	}
	pc.respond(w, r, e, view, err, data)
}

// CancelEdit leaves edit mode
func (pc *PostController) CancelEdit(w http.ResponseWriter, r *http.Request) {
	e, ok := pc.engine(w, r, false)
	if !ok {
		return
	}
	e.CancelEdit()
	pc.respond(w, r, e, e.View(), nil, views.PostPage{})
}

// Delete handles deleting a post
func (pc *PostController) Delete(w http.ResponseWriter, r *http.Request) {
	e, ok := pc.engine(w, r, false)
	if !ok {
		return
	}
	view, err := e.Delete(r.Context())
	if err != nil || view.Post == nil {
		pc.respond(w, r, e, view, err, views.PostPage{View: view, Error: apperrors.KindOf(err)})
		return
	}

	pc.engines.Detach(sessionID(r), view.Post.ID)
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
