package controllers

import (
	"net/http"

	"animehub/app/forms"
	"animehub/app/models"
	"animehub/app/services"
	"animehub/app/session"
	"animehub/app/views"
)

// AuthController handles registration, login and logout. A successful
// login or registration moves the browser onto a new session id.
type AuthController struct {
	credentials *services.CredentialService
	sessions    *session.Store
	views       *views.Renderer
}

// NewAuthController creates a new AuthController
func NewAuthController(credentials *services.CredentialService, sessions *session.Store, v *views.Renderer) *AuthController {
	return &AuthController{credentials: credentials, sessions: sessions, views: v}
}

// authenticate runs attempt against a fresh session and swaps it in for
// the request's session once attempt succeeds.
func (ac *AuthController) authenticate(w http.ResponseWriter, r *http.Request, attempt func(*session.Session) (*models.User, error)) (*models.User, error) {
	fresh := ac.sessions.Create()
	user, err := attempt(fresh)
	if err == nil {
		err = ac.sessions.Replace(w, currentSession(r), fresh)
	}
	if err != nil {
		ac.sessions.Delete(fresh.ID())
		return nil, err
	}
	return user, nil
}

// ShowLogin displays the login form
func (ac *AuthController) ShowLogin(w http.ResponseWriter, r *http.Request) {
	render(w, ac.views, http.StatusOK, views.PageLogin, views.LoginPage{Page: page(r, "Login")})
}

// ShowRegister displays the registration form
func (ac *AuthController) ShowRegister(w http.ResponseWriter, r *http.Request) {
	render(w, ac.views, http.StatusOK, views.PageRegister, views.RegisterPage{Page: page(r, "Register")})
}

// Login handles a login submission
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(r, "username", "password")
	if err != nil {
		sendError(w, r, err)
		return
	}
	form := forms.LoginForm{}.
		Apply(forms.Change(forms.FieldUsername, fields["username"])).
		Apply(forms.Change(forms.FieldPassword, fields["password"])).
		Apply(forms.Submit())

	user, err := ac.authenticate(w, r, func(s *session.Session) (*models.User, error) {
		return ac.credentials.Login(r.Context(), s, form.Username, form.Password)
	})
	if err != nil {
		if wantsJSON(r) {
			sendError(w, r, err)
			return
		}
		form = form.Apply(forms.Fail(err))
		render(w, ac.views, form.Error.StatusCode(), views.PageLogin, views.LoginPage{Page: page(r, "Login"), Form: form})
		return
	}

	if wantsJSON(r) {
		sendJSON(w, http.StatusOK, user)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Register handles a registration submission
func (ac *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(r, "username", "password")
	if err != nil {
		sendError(w, r, err)
		return
	}
	form := forms.RegisterForm{}.
		Apply(forms.Change(forms.FieldUsername, fields["username"])).
		Apply(forms.Change(forms.FieldPassword, fields["password"])).
		Apply(forms.Submit())

	user, err := ac.authenticate(w, r, func(s *session.Session) (*models.User, error) {
		return ac.credentials.Register(r.Context(), s, form.Username, form.Password)
	})
	if err != nil {
		if wantsJSON(r) {
			sendError(w, r, err)
			return
		}
		form = form.Apply(forms.Fail(err))
		render(w, ac.views, form.Error.StatusCode(), views.PageRegister, views.RegisterPage{Page: page(r, "Register"), Form: form})
		return
	}

	if wantsJSON(r) {
		sendJSON(w, http.StatusCreated, user)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout clears and forgets the session. Its open post views go with it.
func (ac *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)
	ac.credentials.Logout(s)
	ac.sessions.Delete(s.ID())

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Current returns the logged in user, or null
func (ac *AuthController) Current(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, currentSession(r).Current())
}
