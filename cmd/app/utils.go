package main

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sushihentaime/quill/internal/authz"
	"github.com/sushihentaime/quill/internal/render"
)

const sessionCookieName = "session"

func (app *application) readIDParam(r *http.Request, key string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, key))
	if err != nil || id < 1 {
		return 0, errors.New("invalid ID parameter")
	}

	return id, nil
}

// parseForm reads an urlencoded body of at most 1MB.
func (app *application) parseForm(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)

	if err := r.ParseForm(); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return nil, errors.New("request body must not be larger than 1MB")
		}
		return nil, errors.New("request body contains a badly-formed form")
	}

	return r.PostForm, nil
}

func (app *application) newTemplateData(r *http.Request) *render.TemplateData {
	s := app.getSessionContext(r)

	return &render.TemplateData{
		CurrentUser: s.user,
		IsAdmin:     authz.Can(s.actor, authz.CreatePost, authz.Target{}),
	}
}

func (app *application) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(app.config.Session.TTL.Seconds()),
		HttpOnly: true,
		Secure:   app.config.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (app *application) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   app.config.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (app *application) readSessionCookie(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
