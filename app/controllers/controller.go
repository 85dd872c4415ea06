package controllers

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/http"

	"animehub/app/apperrors"
	"animehub/app/logger"
	"animehub/app/middleware"
	"animehub/app/session"
	"animehub/app/views"

	"go.uber.org/zap"
)

// wantsJSON reports whether the response should be JSON rather than HTML.
func wantsJSON(r *http.Request) bool {
	return r.Header.Get("Accept") == "application/json" || middleware.IsAPI(r)
}

// errorKind maps any error to a display kind.
func errorKind(err error) apperrors.Kind {
	if k := apperrors.KindOf(err); k != "" {
		return k
	}
	return apperrors.RemoteStoreFailure
}

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.Warn("Failed to encode response", zap.Error(err))
	}
}

// sendError answers API clients with the error kind and browsers with a
// plain text message.
func sendError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errorKind(err)
	if wantsJSON(r) {
		sendJSON(w, kind.StatusCode(), apperrors.New(kind))
		return
	}
	http.Error(w, kind.Message(), kind.StatusCode())
}

// render executes page into a buffer first so template failures turn into
// a clean 500.
func render(w http.ResponseWriter, v *views.Renderer, status int, page string, data any) {
	var buf bytes.Buffer
	if err := v.Render(&buf, page, data); err != nil {
		logger.Log.Error("Failed to render page", zap.String("page", page), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// readFields reads named string fields from a JSON object body or from
// form values, depending on the request content type.
func readFields(r *http.Request, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, apperrors.Wrap(apperrors.Validation, "decode body", err)
		}
		for _, name := range names {
			if s, ok := body[name].(string); ok {
				out[name] = s
			}
		}
		return out, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, apperrors.Wrap(apperrors.Validation, "parse form", err)
	}
	for _, name := range names {
		out[name] = r.FormValue(name)
	}
	return out, nil
}

// currentSession returns the session attached by middleware.Sessions.
func currentSession(r *http.Request) *session.Session {
	return session.FromContext(r.Context())
}

func sessionID(r *http.Request) string {
	if s := currentSession(r); s != nil {
		return s.ID()
	}
	return ""
}

func page(r *http.Request, title string) views.Page {
	return views.Page{Title: title, User: currentSession(r).Username()}
}
