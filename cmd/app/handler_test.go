package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/quill/internal/common"
	"github.com/sushihentaime/quill/internal/mailservice"
	"github.com/sushihentaime/quill/internal/render"
)

func postForm(title string) url.Values {
	return url.Values{
		"title":    {title},
		"subtitle": {"A first post"},
		"body":     {"<p>Body</p>"},
		"img_url":  {"https://images.example.com/hello.jpg"},
	}
}

func (app *testApplication) postID(t *testing.T, title string) int {
	t.Helper()

	var id int
	require.NoError(t, app.db.QueryRow("SELECT id FROM blog_posts WHERE title = $1", title).Scan(&id))
	return id
}

func (app *testApplication) count(t *testing.T, query string, args ...any) int {
	t.Helper()

	var n int
	require.NoError(t, app.db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestScenario(t *testing.T) {
	app := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	admin := ts.register(t, "Admin", "admin@example.com")
	reader := ts.register(t, "Reader", "reader@example.com")

	// the reader is not the administrator
	code, _, _ := ts.postForm(t, reader, "/new-post", postForm("Hello"))
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, 0, app.count(t, "SELECT COUNT(*) FROM blog_posts"))

	code, header, _ := ts.postForm(t, admin, "/new-post", postForm("Hello"))
	require.Equal(t, http.StatusSeeOther, code)
	assert.Equal(t, "/", header.Get("Location"))
	id := app.postID(t, "Hello")

	code, _, _ = ts.get(t, reader, "/")
	assert.Equal(t, http.StatusOK, code)
	page := app.renderer.last(t)
	assert.Equal(t, render.PageIndex, page.page)
	assert.False(t, page.data.IsAdmin)
	require.Len(t, page.data.Posts, 1)

	code, header, _ = ts.postForm(t, reader, fmt.Sprintf("/post/%d/comments", id), url.Values{"comment": {"Nice!"}})
	require.Equal(t, http.StatusSeeOther, code)
	assert.Equal(t, fmt.Sprintf("/post/%d", id), header.Get("Location"))

	// the administrator sees the comment without a delete button
	code, _, _ = ts.get(t, admin, fmt.Sprintf("/post/%d", id))
	require.Equal(t, http.StatusOK, code)
	page = app.renderer.last(t)
	assert.True(t, page.data.IsAdmin)
	require.Len(t, page.data.Comments, 1)
	assert.False(t, page.data.Comments[0].CanDelete)
	commentID := page.data.Comments[0].ID

	code, _, _ = ts.postForm(t, admin, fmt.Sprintf("/delete/comment/%d/%d", commentID, id), nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _, _ = ts.get(t, reader, fmt.Sprintf("/post/%d", id))
	require.Equal(t, http.StatusOK, code)
	page = app.renderer.last(t)
	require.Len(t, page.data.Comments, 1)
	assert.True(t, page.data.Comments[0].CanDelete)

	code, _, _ = ts.postForm(t, reader, fmt.Sprintf("/delete/comment/%d/%d", commentID, id), nil)
	require.Equal(t, http.StatusSeeOther, code)
	assert.Equal(t, 0, app.count(t, "SELECT COUNT(*) FROM comments"))

	code, _, _ = ts.postForm(t, reader, fmt.Sprintf("/post/%d/comments", id), url.Values{"comment": {"Nice!"}})
	require.Equal(t, http.StatusSeeOther, code)

	code, _, _ = ts.postForm(t, reader, fmt.Sprintf("/delete/%d", id), nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, header, _ = ts.postForm(t, admin, fmt.Sprintf("/delete/%d", id), nil)
	require.Equal(t, http.StatusSeeOther, code)
	assert.Equal(t, "/", header.Get("Location"))

	assert.Equal(t, 0, app.count(t, "SELECT COUNT(*) FROM blog_posts"))
	assert.Equal(t, 0, app.count(t, "SELECT COUNT(*) FROM comments"))
}

func TestAnonymousAccess(t *testing.T) {
	app := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	admin := ts.register(t, "Admin", "admin@example.com")
	code, _, _ := ts.postForm(t, admin, "/new-post", postForm("Hello"))
	require.Equal(t, http.StatusSeeOther, code)
	id := app.postID(t, "Hello")

	anon := ts.client(t)

	testCases := []struct {
		name         string
		method       string
		path         string
		form         url.Values
		expectedCode int
		location     string
	}{
		{name: "index", method: http.MethodGet, path: "/", expectedCode: http.StatusOK},
		{name: "post", method: http.MethodGet, path: fmt.Sprintf("/post/%d", id), expectedCode: http.StatusOK},
		{name: "about", method: http.MethodGet, path: "/about", expectedCode: http.StatusOK},
		{name: "contact", method: http.MethodGet, path: "/contact", expectedCode: http.StatusOK},
		{name: "new post form", method: http.MethodGet, path: "/new-post", expectedCode: http.StatusSeeOther, location: "/login"},
		{name: "edit post form", method: http.MethodGet, path: fmt.Sprintf("/edit-post/%d", id), expectedCode: http.StatusSeeOther, location: "/login"},
		{name: "create post", method: http.MethodPost, path: "/new-post", form: postForm("Other"), expectedCode: http.StatusForbidden},
		{name: "edit post", method: http.MethodPost, path: fmt.Sprintf("/edit-post/%d", id), form: postForm("Other"), expectedCode: http.StatusForbidden},
		{name: "delete post", method: http.MethodPost, path: fmt.Sprintf("/delete/%d", id), expectedCode: http.StatusForbidden},
		{name: "comment", method: http.MethodPost, path: fmt.Sprintf("/post/%d/comments", id), form: url.Values{"comment": {"hi"}}, expectedCode: http.StatusForbidden},
		{name: "delete missing comment", method: http.MethodPost, path: fmt.Sprintf("/delete/comment/999/%d", id), expectedCode: http.StatusForbidden},
		{name: "missing post", method: http.MethodGet, path: "/post/999", expectedCode: http.StatusNotFound},
		{name: "malformed id", method: http.MethodGet, path: "/post/abc", expectedCode: http.StatusNotFound},
		{name: "unknown route", method: http.MethodGet, path: "/nope", expectedCode: http.StatusNotFound},
		{name: "wrong method", method: http.MethodPut, path: "/new-post", expectedCode: http.StatusMethodNotAllowed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var (
				code   int
				header http.Header
			)

			switch tc.method {
			case http.MethodGet:
				code, header, _ = ts.get(t, anon, tc.path)
			case http.MethodPost:
				code, header, _ = ts.postForm(t, anon, tc.path, tc.form)
			default:
				req, err := http.NewRequest(tc.method, ts.URL+tc.path, nil)
				require.NoError(t, err)
				res, err := anon.Do(req)
				require.NoError(t, err)
				code, header, _ = readResponse(t, res)
			}

			assert.Equal(t, tc.expectedCode, code)
			if tc.location != "" {
				assert.Equal(t, tc.location, header.Get("Location"))
			}
		})
	}

	assert.Equal(t, 1, app.count(t, "SELECT COUNT(*) FROM blog_posts"))
	assert.Equal(t, 0, app.count(t, "SELECT COUNT(*) FROM comments"))
}

func TestRegisterHandler(t *testing.T) {
	app := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	ts.register(t, "Ada", "ada@example.com")

	messages := app.producer.published(common.UserRegisteredKey)
	require.Len(t, messages, 1)
	var event mailservice.RegisteredUser
	require.NoError(t, json.Unmarshal(messages[0].body, &event))
	assert.Equal(t, mailservice.RegisteredUser{Email: "ada@example.com", Name: "Ada"}, event)

	testCases := []struct {
		name         string
		form         url.Values
		expectedErrs map[string]string
	}{
		{
			name:         "duplicate email in another case",
			form:         url.Values{"name": {"Ada"}, "email": {"ADA@example.com"}, "password": {"Pa$$w0rd!"}},
			expectedErrs: map[string]string{"email": "a user with this email address already exists, log in instead"},
		},
		{
			name: "invalid",
			form: url.Values{"name": {""}, "email": {"not-an-email"}, "password": {"weak"}},
			expectedErrs: map[string]string{
				"name":     "must be provided",
				"email":    "must be a valid email address",
				"password": "must be between 8 and 72 characters long and contain at least one uppercase letter, one lowercase letter, one number, and one symbol",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, header, _ := ts.postForm(t, ts.client(t), "/register", tc.form)
			assert.Equal(t, http.StatusUnprocessableEntity, code)
			assert.Empty(t, header.Get("Set-Cookie"))

			page := app.renderer.last(t)
			assert.Equal(t, render.PageRegister, page.page)
			assert.Equal(t, tc.expectedErrs, page.data.Errors)
			assert.Equal(t, tc.form.Get("email"), page.data.Form.Get("email"))
		})
	}

	assert.Equal(t, 1, app.count(t, "SELECT COUNT(*) FROM users"))
}

func TestRegisterHandler_PublishFailureStillRegisters(t *testing.T) {
	app := newTestApplication(t)
	app.producer.Err = errors.New("broker down")
	ts := newTestServer(t, app.routes())

	ts.register(t, "Ada", "ada@example.com")
	assert.Equal(t, 1, app.count(t, "SELECT COUNT(*) FROM users"))
}

func TestLoginLogout(t *testing.T) {
	app := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	ts.register(t, "Admin", "admin@example.com")

	testCases := []struct {
		name         string
		form         url.Values
		expectedCode int
		expectedErrs map[string]string
	}{
		{
			name:         "wrong password",
			form:         url.Values{"email": {"admin@example.com"}, "password": {"Wr0ng!pass"}},
			expectedCode: http.StatusUnauthorized,
			expectedErrs: map[string]string{"credentials": "invalid email or password"},
		},
		{
			name:         "unknown email",
			form:         url.Values{"email": {"nobody@example.com"}, "password": {"Pa$$w0rd!"}},
			expectedCode: http.StatusUnauthorized,
			expectedErrs: map[string]string{"credentials": "invalid email or password"},
		},
		{
			name:         "missing fields",
			form:         url.Values{},
			expectedCode: http.StatusUnprocessableEntity,
			expectedErrs: map[string]string{"email": "must be provided", "password": "must be provided"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, _, _ := ts.postForm(t, ts.client(t), "/login", tc.form)
			assert.Equal(t, tc.expectedCode, code)

			page := app.renderer.last(t)
			assert.Equal(t, render.PageLogin, page.page)
			assert.Equal(t, tc.expectedErrs, page.data.Errors)
		})
	}

	c := ts.client(t)
	code, header, _ := ts.postForm(t, c, "/login", url.Values{"email": {" Admin@Example.com "}, "password": {"Pa$$w0rd!"}})
	require.Equal(t, http.StatusSeeOther, code)
	assert.Equal(t, "/", header.Get("Location"))

	code, _, _ = ts.get(t, c, "/new-post")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Admin", app.renderer.last(t).data.CurrentUser.Name)

	code, _, _ = ts.postForm(t, c, "/logout", nil)
	require.Equal(t, http.StatusSeeOther, code)

	code, header, _ = ts.get(t, c, "/new-post")
	assert.Equal(t, http.StatusSeeOther, code)
	assert.Equal(t, "/login", header.Get("Location"))
}

func TestPostForms(t *testing.T) {
	app := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	admin := ts.register(t, "Admin", "admin@example.com")

	code, _, _ := ts.postForm(t, admin, "/new-post", postForm("Hello"))
	require.Equal(t, http.StatusSeeOther, code)
	id := app.postID(t, "Hello")

	t.Run("duplicate title", func(t *testing.T) {
		code, _, _ := ts.postForm(t, admin, "/new-post", postForm("Hello"))
		assert.Equal(t, http.StatusUnprocessableEntity, code)

		page := app.renderer.last(t)
		assert.Equal(t, render.PageMakePost, page.page)
		assert.Equal(t, map[string]string{"title": "a post with this title already exists"}, page.data.Errors)
		assert.False(t, page.data.Edit)
	})

	t.Run("invalid", func(t *testing.T) {
		form := postForm("Other")
		form.Set("img_url", "javascript:alert(1)")

		code, _, _ := ts.postForm(t, admin, "/new-post", form)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, map[string]string{"img_url": "must be a valid http or https URL"}, app.renderer.last(t).data.Errors)
	})

	t.Run("edit form is prefilled", func(t *testing.T) {
		code, _, _ := ts.get(t, admin, fmt.Sprintf("/edit-post/%d", id))
		require.Equal(t, http.StatusOK, code)

		page := app.renderer.last(t)
		assert.True(t, page.data.Edit)
		assert.Equal(t, "Hello", page.data.Form.Get("title"))
		assert.Equal(t, "<p>Body</p>", page.data.Form.Get("body"))
	})

	t.Run("edit missing post", func(t *testing.T) {
		code, _, _ := ts.get(t, admin, "/edit-post/999")
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("update", func(t *testing.T) {
		code, header, _ := ts.postForm(t, admin, fmt.Sprintf("/edit-post/%d", id), postForm("Hello again"))
		require.Equal(t, http.StatusSeeOther, code)
		assert.Equal(t, fmt.Sprintf("/post/%d", id), header.Get("Location"))

		code, _, _ = ts.get(t, admin, fmt.Sprintf("/post/%d", id))
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Hello again", app.renderer.last(t).data.Post.Title)
	})

	t.Run("blank comment", func(t *testing.T) {
		code, _, _ := ts.postForm(t, admin, fmt.Sprintf("/post/%d/comments", id), url.Values{"comment": {"  "}})
		assert.Equal(t, http.StatusUnprocessableEntity, code)

		page := app.renderer.last(t)
		assert.Equal(t, render.PagePost, page.page)
		assert.Equal(t, map[string]string{"comment": "must be provided"}, page.data.Errors)
	})

	t.Run("comment on missing post", func(t *testing.T) {
		code, _, _ := ts.postForm(t, admin, "/post/999/comments", url.Values{"comment": {"hi"}})
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestContactHandler(t *testing.T) {
	app := newTestApplication(t)
	ts := newTestServer(t, app.routes())
	c := ts.client(t)

	code, _, _ := ts.postForm(t, c, "/contact", url.Values{"name": {""}, "email": {"nope"}, "message": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, map[string]string{
		"name":    "must be provided",
		"email":   "must be a valid email address",
		"message": "must be provided",
	}, app.renderer.last(t).data.Errors)
	assert.Empty(t, app.producer.published(common.ContactSubmittedKey))

	code, _, _ = ts.postForm(t, c, "/contact", url.Values{"name": {"Ada"}, "email": {"Ada@Example.com"}, "phone": {"555"}, "message": {"Hello"}})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Successfully sent your message", app.renderer.last(t).data.Flash)

	messages := app.producer.published(common.ContactSubmittedKey)
	require.Len(t, messages, 1)
	var msg mailservice.ContactMessage
	require.NoError(t, json.Unmarshal(messages[0].body, &msg))
	assert.Equal(t, mailservice.ContactMessage{Name: "Ada", Email: "ada@example.com", Phone: "555", Message: "Hello"}, msg)
}

func TestHealthCheck(t *testing.T) {
	app, _ := newUnitApplication(t)
	ts := newTestServer(t, http.HandlerFunc(app.healthCheckHandler))

	code, _, body := ts.get(t, ts.client(t), "/healthcheck")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "status: available")
	assert.Contains(t, body, "environment: testing")
}
