// Package forms models every input form as a plain state struct with a
// single Apply transition, so form behaviour is testable without HTTP.
package forms

import (
	"strings"

	"animehub/app/apperrors"
)

// EventType enumerates form transitions.
type EventType int

const (
	// Changed replaces the value of Field.
	Changed EventType = iota
	// Submitted marks a submission in flight.
	Submitted
	// Failed ends a submission with Err.
	Failed
	// Succeeded ends a submission successfully.
	Succeeded
	// Began enters edit mode with Value as the draft.
	Began
	// Cancelled leaves edit mode.
	Cancelled
)

// Field names a form input.
type Field string

const (
	FieldUsername Field = "username"
	FieldPassword Field = "password"
	FieldImageURL Field = "imageurl"
	FieldCaption  Field = "say"
	FieldText     Field = "text"
)

// Event is one input to a form's Apply.
type Event struct {
	Type  EventType
	Field Field
	Value string
	Err   error
}

func Change(field Field, value string) Event { return Event{Type: Changed, Field: field, Value: value} }
func Submit() Event                          { return Event{Type: Submitted} }
func Fail(err error) Event                   { return Event{Type: Failed, Err: err} }
func Succeed() Event                         { return Event{Type: Succeeded} }

// kindOf maps an error to its display kind, defaulting to a store failure
// so unexpected errors still render a message.
func kindOf(err error) apperrors.Kind {
	if err == nil {
		return ""
	}
	if k := apperrors.KindOf(err); k != "" {
		return k
	}
	return apperrors.RemoteStoreFailure
}

// LoginForm is the /login form.
type LoginForm struct {
	Username   string         `json:"username"`
	Password   string         `json:"-"`
	Error      apperrors.Kind `json:"error,omitempty"`
	Submitting bool           `json:"submitting"`
}

func (f LoginForm) Apply(ev Event) LoginForm {
	switch ev.Type {
	case Changed:
		switch ev.Field {
		case FieldUsername:
			f.Username = ev.Value
			if f.Error == apperrors.UnknownUsername {
				f.Error = ""
			}
		case FieldPassword:
			f.Password = ev.Value
			if f.Error == apperrors.WrongPassword {
				f.Error = ""
			}
		}
	case Submitted:
		f.Submitting = true
		f.Error = ""
	case Failed:
		f.Submitting = false
		f.Error = kindOf(ev.Err)
		switch f.Error {
		case apperrors.UnknownUsername:
			f.Username = ""
		case apperrors.WrongPassword:
			f.Password = ""
		}
	case Succeeded:
		f = LoginForm{}
	}
	return f
}

// RegisterForm is the /register form.
type RegisterForm struct {
	Username   string         `json:"username"`
	Password   string         `json:"-"`
	Error      apperrors.Kind `json:"error,omitempty"`
	Submitting bool           `json:"submitting"`
}

func (f RegisterForm) Apply(ev Event) RegisterForm {
	switch ev.Type {
	case Changed:
		switch ev.Field {
		case FieldUsername:
			f.Username = ev.Value
			if f.Error == apperrors.UsernameTaken {
				f.Error = ""
			}
		case FieldPassword:
			f.Password = ev.Value
		}
	case Submitted:
		f.Submitting = true
		f.Error = ""
	case Failed:
		f.Submitting = false
		f.Error = kindOf(ev.Err)
		if f.Error == apperrors.UsernameTaken {
			f.Username = ""
		}
	case Succeeded:
		f = RegisterForm{}
	}
	return f
}

// AddForm is the /add form. Field values survive every failure.
type AddForm struct {
	ImageURL   string         `json:"imageurl"`
	Caption    string         `json:"say"`
	Error      apperrors.Kind `json:"error,omitempty"`
	Submitting bool           `json:"submitting"`
}

func (f AddForm) Apply(ev Event) AddForm {
	switch ev.Type {
	case Changed:
		switch ev.Field {
		case FieldImageURL:
			f.ImageURL = ev.Value
			if f.Error == apperrors.MissingImageURL {
				f.Error = ""
			}
		case FieldCaption:
			f.Caption = ev.Value
		}
	case Submitted:
		f.Submitting = true
		f.Error = ""
	case Failed:
		f.Submitting = false
		f.Error = kindOf(ev.Err)
	case Succeeded:
		f = AddForm{}
	}
	return f
}

// CommentForm is the comment box under a post.
type CommentForm struct {
	Text       string         `json:"text"`
	Error      apperrors.Kind `json:"error,omitempty"`
	Submitting bool           `json:"submitting"`
}

// Blank reports whether the text is empty after trimming.
func (f CommentForm) Blank() bool {
	return strings.TrimSpace(f.Text) == ""
}

func (f CommentForm) Apply(ev Event) CommentForm {
	switch ev.Type {
	case Changed:
		if ev.Field == FieldText {
			f.Text = ev.Value
		}
	case Submitted:
		f.Submitting = true
		f.Error = ""
	case Failed:
		f.Submitting = false
		f.Error = kindOf(ev.Err)
	case Succeeded:
		f = CommentForm{}
	}
	return f
}

// EditForm tracks caption edit mode on the single-post view.
type EditForm struct {
	Editing    bool           `json:"editing"`
	Draft      string         `json:"draft"`
	Error      apperrors.Kind `json:"error,omitempty"`
	Submitting bool           `json:"submitting"`
}

func Begin(caption string) Event { return Event{Type: Began, Value: caption} }
func Cancel() Event              { return Event{Type: Cancelled} }

func (f EditForm) Apply(ev Event) EditForm {
	switch ev.Type {
	case Began:
		f = EditForm{Editing: true, Draft: ev.Value}
	case Cancelled:
		f = EditForm{}
	case Changed:
		if ev.Field == FieldCaption && f.Editing {
			f.Draft = ev.Value
		}
	case Submitted:
		f.Submitting = true
		f.Error = ""
	case Failed:
		f.Submitting = false
		f.Error = kindOf(ev.Err)
	case Succeeded:
		f = EditForm{}
	}
	return f
}
