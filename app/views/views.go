// Package views renders the HTML pages from templates embedded in the
// binary. Every page is parsed together with the layout and the shared
// partials and executed through the "layout" template.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"animehub/app/apperrors"
	"animehub/app/forms"
	"animehub/app/models"
	"animehub/app/services"
)

//go:embed templates/*.html
var files embed.FS

// Page names accepted by Render.
const (
	PageFeed     = "feed"
	PageLogin    = "login"
	PageRegister = "register"
	PageAdd      = "add"
	PagePost     = "post"
)

// Location is the zone dates are shown in.
var Location = time.Local

// Page carries what the layout needs.
type Page struct {
	Title string
	User  string
}

// SortOption is one entry of the feed sort selector.
type SortOption struct {
	Key   services.SortKey
	Label string
}

var SortOptions = []SortOption{
	{Key: services.SortLatest, Label: "Latest"},
	{Key: services.SortOldest, Label: "Oldest"},
	{Key: services.SortMostLiked, Label: "Most liked"},
}

type FeedPage struct {
	Page
	Feed  services.FeedView
	Sorts []SortOption
}

type LoginPage struct {
	Page
	Form forms.LoginForm
}

type RegisterPage struct {
	Page
	Form forms.RegisterForm
}

type AddPage struct {
	Page
	Form forms.AddForm
}

type PostPage struct {
	Page
	View    services.PostView
	Comment forms.CommentForm
	Edit    forms.EditForm
	Error   apperrors.Kind
}

var funcs = template.FuncMap{
	"postDate": func(t time.Time) string {
		return t.In(Location).Format("Jan 2, 2006, 3:04 PM")
	},
	"commentDate": func(c models.Comment) string {
		return c.Time().In(Location).Format("Jan 2, 3:04 PM")
	},
	"message": func(k apperrors.Kind) string {
		return k.Message()
	},
}

// Renderer holds the parsed page templates.
type Renderer struct {
	base  *template.Template
	pages map[string]*template.Template
}

// New parses every embedded template.
func New() (*Renderer, error) {
	base, err := template.New("views").Funcs(funcs).ParseFS(files, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	r := &Renderer{base: base, pages: make(map[string]*template.Template)}
	for _, name := range []string{PageFeed, PageLogin, PageRegister, PageAdd, PagePost} {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", name, err)
		}
		page, err := clone.ParseFS(files, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = page
	}
	return r, nil
}

// Render writes page name with data.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	page, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return page.ExecuteTemplate(w, "layout", data)
}

// Partial writes one shared partial such as "card" or "comment".
func (r *Renderer) Partial(w io.Writer, name string, data any) error {
	return r.base.ExecuteTemplate(w, name, data)
}
