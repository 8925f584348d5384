package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (app *application) routes() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(app.realIP)
	router.Use(app.recoverPanic)
	router.Use(app.logRequest)
	router.Use(app.authenticate)

	router.NotFound(app.notFoundResponse)
	router.MethodNotAllowed(app.methodNotAllowedResponse)

	router.Get("/healthcheck", app.healthCheckHandler)

	// pages
	router.Get("/", app.indexHandler)
	router.Get("/about", app.aboutHandler)
	router.Get("/contact", app.contactFormHandler)
	router.With(app.rateLimit).Post("/contact", app.contactHandler)

	// identity
	router.Get("/register", app.registerFormHandler)
	router.With(app.rateLimit).Post("/register", app.registerHandler)
	router.Get("/login", app.loginFormHandler)
	router.With(app.rateLimit).Post("/login", app.loginHandler)
	router.Post("/logout", app.logoutHandler)

	// posts and comments
	router.Get("/post/{id}", app.showPostHandler)
	router.Post("/post/{id}/comments", app.createCommentHandler)
	router.Get("/new-post", app.newPostFormHandler)
	router.Post("/new-post", app.createPostHandler)
	router.Get("/edit-post/{id}", app.editPostFormHandler)
	router.Post("/edit-post/{id}", app.updatePostHandler)
	router.Post("/delete/{id}", app.deletePostHandler)
	router.Post("/delete/comment/{commentId}/{postId}", app.deleteCommentHandler)

	return router
}
