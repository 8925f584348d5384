package main

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sushihentaime/quill/internal/authz"
	"github.com/sushihentaime/quill/internal/common"
	"github.com/sushihentaime/quill/internal/render"
)

func (app *application) logError(r *http.Request, err error) {
	var (
		method  = r.Method
		url     = r.URL.RequestURI()
		message = err.Error()
	)

	app.logger.Error(message, slog.String("method", method), slog.String("url", url))
}

// errorResponse renders the error page. If that fails too, a plain text body is sent.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	data := app.newTemplateData(r)
	data.Status = status
	data.Message = message

	err := app.renderer.Render(w, status, render.PageError, data)
	if err != nil {
		app.logError(r, err)
		http.Error(w, message, status)
	}
}

func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	message := "the server encountered a problem and could not process your request"
	app.errorResponse(w, r, http.StatusInternalServerError, message)
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

func (app *application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func (app *application) forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	app.errorResponse(w, r, http.StatusForbidden, message)
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}

// denialResponse answers a request the gate refused. A signed-out visitor asking for a page is
// sent to the login form; a refused write is a plain 403.
func (app *application) denialResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrNotAuthenticated):
		if r.Method == http.MethodGet {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		app.forbiddenResponse(w, r, "you must be logged in to do that")
	case errors.Is(err, authz.ErrNotAdministrator):
		app.forbiddenResponse(w, r, "only the administrator can do that")
	case errors.Is(err, authz.ErrNotOwner):
		app.forbiddenResponse(w, r, "you can only delete your own comments")
	default:
		app.forbiddenResponse(w, r, "you do not have permission to do that")
	}
}

// serviceErrorResponse maps the errors every write can end with. Validation and unique violations
// are handled by the handlers, which re-render their forms.
func (app *application) serviceErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var verr common.ValidationError

	switch {
	case errors.Is(err, authz.ErrForbidden):
		app.denialResponse(w, r, err)
	case errors.Is(err, common.ErrRecordNotFound), errors.Is(err, common.ErrIntegrityViolation):
		app.notFoundResponse(w, r)
	case errors.As(err, &verr):
		app.errorResponse(w, r, http.StatusUnprocessableEntity, verr.Error())
	default:
		app.serverErrorResponse(w, r, err)
	}
}
