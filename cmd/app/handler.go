package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sushihentaime/quill/internal/authz"
	"github.com/sushihentaime/quill/internal/blogservice"
	"github.com/sushihentaime/quill/internal/common"
	"github.com/sushihentaime/quill/internal/mailservice"
	"github.com/sushihentaime/quill/internal/render"
	"github.com/sushihentaime/quill/internal/userservice"
)

func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data *render.TemplateData) {
	if err := app.renderer.Render(w, status, page, data); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) indexHandler(w http.ResponseWriter, r *http.Request) {
	posts, err := app.blogService.ListPosts(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	data := app.newTemplateData(r)
	data.Posts = posts
	app.render(w, r, http.StatusOK, render.PageIndex, data)
}

func (app *application) aboutHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, render.PageAbout, app.newTemplateData(r))
}

func (app *application) contactFormHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, render.PageContact, app.newTemplateData(r))
}

func validateContact(v *common.Validator, msg mailservice.ContactMessage) {
	v.Check(v.NotBlank(msg.Name), "name", "must be provided")
	v.Check(v.CheckStringLength(msg.Name, 0, 100), "name", "must not be more than 100 characters long")
	v.Check(userservice.EmailRX.MatchString(msg.Email), "email", "must be a valid email address")
	v.Check(v.CheckStringLength(msg.Phone, 0, 30), "phone", "must not be more than 30 characters long")
	v.Check(v.NotBlank(msg.Message), "message", "must be provided")
	v.Check(v.CheckStringLength(msg.Message, 0, 5000), "message", "must not be more than 5000 characters long")
}

// contactHandler queues the message for the mail service to forward.
func (app *application) contactHandler(w http.ResponseWriter, r *http.Request) {
	form, err := app.parseForm(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	msg := mailservice.ContactMessage{
		Name:    strings.TrimSpace(form.Get("name")),
		Email:   userservice.NormalizeEmail(form.Get("email")),
		Phone:   strings.TrimSpace(form.Get("phone")),
		Message: strings.TrimSpace(form.Get("message")),
	}

	v := common.NewValidator()
	validateContact(v, msg)
	if !v.Valid() {
		data := app.newTemplateData(r)
		data.Form = form
		data.Errors = v.Errors
		app.render(w, r, http.StatusUnprocessableEntity, render.PageContact, data)
		return
	}

	body, err := json.Marshal(msg)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.broker.Publish(r.Context(), body, common.ContactSubmittedKey, common.BlogExchange)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	data := app.newTemplateData(r)
	data.Flash = "Successfully sent your message"
	app.render(w, r, http.StatusOK, render.PageContact, data)
}

func (app *application) registerFormHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, render.PageRegister, app.newTemplateData(r))
}

// registerHandler creates the account and signs the new user in.
func (app *application) registerHandler(w http.ResponseWriter, r *http.Request) {
	form, err := app.parseForm(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, err := app.userService.Register(r.Context(), strings.TrimSpace(form.Get("name")), form.Get("email"), form.Get("password"))
	if err != nil {
		var verr common.ValidationError
		switch {
		case errors.Is(err, userservice.ErrDuplicateEmail):
			app.rerender(w, r, render.PageRegister, form, map[string]string{"email": "a user with this email address already exists, log in instead"})
		case errors.As(err, &verr):
			app.rerender(w, r, render.PageRegister, form, verr.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.startSession(w, r, user.ID)
}

func (app *application) loginFormHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, render.PageLogin, app.newTemplateData(r))
}

func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	form, err := app.parseForm(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user, err := app.userService.Authenticate(r.Context(), form.Get("email"), form.Get("password"))
	if err != nil {
		var verr common.ValidationError
		switch {
		case errors.Is(err, userservice.ErrInvalidCredentials):
			data := app.newTemplateData(r)
			data.Form = url.Values{"email": {form.Get("email")}}
			data.Errors = map[string]string{"credentials": "invalid email or password"}
			app.render(w, r, http.StatusUnauthorized, render.PageLogin, data)
		case errors.As(err, &verr):
			app.rerender(w, r, render.PageLogin, url.Values{"email": {form.Get("email")}}, verr.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.startSession(w, r, user.ID)
}

// startSession replaces any current session with a new one for userID and goes to the front page.
func (app *application) startSession(w http.ResponseWriter, r *http.Request, userID int) {
	if old := app.getSessionContext(r).token; old != "" {
		if err := app.userService.Logout(r.Context(), old); err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
	}

	token, err := app.userService.Login(r.Context(), userID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.setSessionCookie(w, token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if token := app.getSessionContext(r).token; token != "" {
		if err := app.userService.Logout(r.Context(), token); err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
	}

	app.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// showPostHandler renders a post; only the comments the viewer may delete get a delete button.
func (app *application) showPostHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	app.renderPost(w, r, http.StatusOK, id, nil, nil)
}

func (app *application) renderPost(w http.ResponseWriter, r *http.Request, status, id int, form url.Values, errs map[string]string) {
	post, err := app.blogService.GetPost(r.Context(), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	actor := app.currentActor(r)

	data := app.newTemplateData(r)
	data.Post = post
	data.Form = form
	data.Errors = errs
	for _, c := range post.Comments {
		data.Comments = append(data.Comments, render.CommentView{
			Comment:   c,
			CanDelete: authz.Can(actor, authz.DeleteComment, authz.Target{AuthorID: c.AuthorID}),
		})
	}

	app.render(w, r, status, render.PagePost, data)
}

func (app *application) createCommentHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := app.readIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	form, err := app.parseForm(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	_, err = app.blogService.CreateComment(r.Context(), app.currentActor(r).ID, postID, form.Get("comment"))
	if err != nil {
		var verr common.ValidationError
		if errors.As(err, &verr) {
			app.renderPost(w, r, http.StatusUnprocessableEntity, postID, form, verr.Errors)
			return
		}
		app.serviceErrorResponse(w, r, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/post/%d", postID), http.StatusSeeOther)
}

func (app *application) newPostFormHandler(w http.ResponseWriter, r *http.Request) {
	if err := authz.Authorize(app.currentActor(r), authz.CreatePost, authz.Target{}).Err(); err != nil {
		app.denialResponse(w, r, err)
		return
	}

	app.render(w, r, http.StatusOK, render.PageMakePost, app.newTemplateData(r))
}

func postInputFromForm(form url.Values) blogservice.PostInput {
	return blogservice.PostInput{
		Title:    form.Get("title"),
		Subtitle: form.Get("subtitle"),
		Body:     form.Get("body"),
		ImgURL:   form.Get("img_url"),
	}
}

func (app *application) createPostHandler(w http.ResponseWriter, r *http.Request) {
	form, err := app.parseForm(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	_, err = app.blogService.CreatePost(r.Context(), app.currentActor(r).ID, postInputFromForm(form))
	if err != nil {
		app.postFormError(w, r, form, nil, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (app *application) editPostFormHandler(w http.ResponseWriter, r *http.Request) {
	if err := authz.Authorize(app.currentActor(r), authz.EditPost, authz.Target{}).Err(); err != nil {
		app.denialResponse(w, r, err)
		return
	}

	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	post, err := app.blogService.GetPost(r.Context(), id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	data := app.newTemplateData(r)
	data.Edit = true
	data.Post = post
	data.Form = url.Values{
		"title":    {post.Title},
		"subtitle": {post.Subtitle},
		"body":     {post.Body},
		"img_url":  {post.ImgURL},
	}
	app.render(w, r, http.StatusOK, render.PageMakePost, data)
}

func (app *application) updatePostHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	form, err := app.parseForm(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	_, err = app.blogService.UpdatePost(r.Context(), app.currentActor(r).ID, id, postInputFromForm(form))
	if err != nil {
		app.postFormError(w, r, form, &blogservice.Post{ID: id}, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/post/%d", id), http.StatusSeeOther)
}

// postFormError re-renders the post form for input errors. editing is the post being edited, nil
// for a new post.
func (app *application) postFormError(w http.ResponseWriter, r *http.Request, form url.Values, editing *blogservice.Post, err error) {
	var verr common.ValidationError

	var errs map[string]string
	switch {
	case errors.Is(err, blogservice.ErrDuplicateTitle):
		errs = map[string]string{"title": "a post with this title already exists"}
	case errors.As(err, &verr):
		errs = verr.Errors
	default:
		app.serviceErrorResponse(w, r, err)
		return
	}

	data := app.newTemplateData(r)
	data.Form = form
	data.Errors = errs
	data.Edit = editing != nil
	data.Post = editing
	app.render(w, r, http.StatusUnprocessableEntity, render.PageMakePost, data)
}

func (app *application) deletePostHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	_, err = app.blogService.DeletePost(r.Context(), app.currentActor(r).ID, id)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (app *application) deleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	commentID, err := app.readIDParam(r, "commentId")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	postID, err := app.readIDParam(r, "postId")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	err = app.blogService.DeleteComment(r.Context(), app.currentActor(r).ID, commentID, postID)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/post/%d", postID), http.StatusSeeOther)
}

// rerender shows page again with the submitted values and the field errors.
func (app *application) rerender(w http.ResponseWriter, r *http.Request, page string, form url.Values, errs map[string]string) {
	data := app.newTemplateData(r)
	data.Form = form
	data.Errors = errs
	app.render(w, r, http.StatusUnprocessableEntity, page, data)
}
