package main

import (
	"context"
	"net/http"

	"github.com/sushihentaime/quill/internal/authz"
	"github.com/sushihentaime/quill/internal/userservice"
)

type contextKey string

const sessionContextKey = contextKey("session")

// requestSession is who made the request, resolved once by the authenticate middleware.
type requestSession struct {
	actor authz.Actor
	user  *userservice.User
	token string
}

func (app *application) createSessionContext(r *http.Request, s *requestSession) *http.Request {
	ctx := context.WithValue(r.Context(), sessionContextKey, s)
	return r.WithContext(ctx)
}

func (app *application) getSessionContext(r *http.Request) *requestSession {
	s, ok := r.Context().Value(sessionContextKey).(*requestSession)
	if !ok {
		return &requestSession{actor: authz.Anonymous}
	}
	return s
}

func (app *application) currentActor(r *http.Request) authz.Actor {
	return app.getSessionContext(r).actor
}
