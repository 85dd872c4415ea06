// Package routes wires controllers and middleware onto the router.
package routes

import (
	"net/http"
	"time"

	"animehub/app/auth"
	"animehub/app/controllers"
	"animehub/app/middleware"
	"animehub/app/repositories"
	"animehub/app/services"
	"animehub/app/session"
	"animehub/app/views"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the collaborators the router is built from.
type Dependencies struct {
	Users          repositories.UserRepository
	Posts          repositories.PostRepository
	Sessions       *session.Store
	Verifier       auth.Verifier
	RequestTimeout time.Duration
}

// SetupRoutes defines the application's routes and returns a router.
func SetupRoutes(deps Dependencies) (*mux.Router, error) {
	renderer, err := views.New()
	if err != nil {
		return nil, err
	}

	engines := services.NewEngineRegistry(deps.Posts)
	deps.Sessions.OnRemove(engines.DetachSession)
	authController := controllers.NewAuthController(services.NewCredentialService(deps.Users, deps.Verifier), deps.Sessions, renderer)
	feedController := controllers.NewFeedController(deps.Posts, engines, renderer)
	postController := controllers.NewPostController(services.NewPostService(deps.Posts), engines, renderer)

	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)
	router.Use(middleware.Metrics)

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	app := router.PathPrefix("/").Subrouter()
	app.Use(middleware.Sessions(deps.Sessions))
	app.Use(middleware.Timeout(deps.RequestTimeout))
	app.Use(middleware.ContentTypeJSON)

	guest := func(h http.HandlerFunc) http.Handler { return middleware.RedirectIfAuthenticated(h) }
	member := func(h http.HandlerFunc) http.Handler { return middleware.RequireAuth(h) }

	// API routes
	api := app.PathPrefix("/api").Subrouter()
	api.Handle("/register", guest(authController.Register)).Methods("POST")
	api.Handle("/login", guest(authController.Login)).Methods("POST")
	api.HandleFunc("/logout", authController.Logout).Methods("POST")
	api.HandleFunc("/session", authController.Current).Methods("GET")

	posts := api.PathPrefix("/posts").Subrouter()
	posts.Handle("", member(feedController.Index)).Methods("GET")
	posts.Handle("", member(postController.Create)).Methods("POST")
	posts.Handle("/{id}", member(postController.Show)).Methods("GET")
	posts.Handle("/{id}", member(postController.SaveCaption)).Methods("PUT")
	posts.Handle("/{id}", member(postController.Delete)).Methods("DELETE")
	posts.Handle("/{id}/like", member(postController.Like)).Methods("POST")
	posts.Handle("/{id}/comments", member(postController.Comment)).Methods("POST")
	posts.Handle("/{id}/edit", member(postController.BeginEdit)).Methods("POST")
	posts.Handle("/{id}/cancel", member(postController.CancelEdit)).Methods("POST")

	// Web routes
	app.Handle("/login", guest(authController.ShowLogin)).Methods("GET")
	app.Handle("/login", guest(authController.Login)).Methods("POST")
	app.Handle("/register", guest(authController.ShowRegister)).Methods("GET")
	app.Handle("/register", guest(authController.Register)).Methods("POST")
	app.HandleFunc("/logout", authController.Logout).Methods("POST")

	app.Handle("/", member(feedController.Index)).Methods("GET")
	app.Handle("/add", member(postController.New)).Methods("GET")
	app.Handle("/add", member(postController.Create)).Methods("POST")
	app.Handle("/post/{id}", member(postController.Show)).Methods("GET")
	app.Handle("/post/{id}/like", member(postController.Like)).Methods("POST")
	app.Handle("/post/{id}/comment", member(postController.Comment)).Methods("POST")
	app.Handle("/post/{id}/edit", member(postController.BeginEdit)).Methods("POST")
	app.Handle("/post/{id}/caption", member(postController.SaveCaption)).Methods("POST")
	app.Handle("/post/{id}/cancel", member(postController.CancelEdit)).Methods("POST")
	app.Handle("/post/{id}/delete", member(postController.Delete)).Methods("POST")

	return router, nil
}
