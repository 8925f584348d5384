package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/quill/internal/blogservice"
	"github.com/sushihentaime/quill/internal/common"
	"github.com/sushihentaime/quill/internal/render"
	"github.com/sushihentaime/quill/internal/userservice"
)

// stubRenderer records what each response would have shown.
type stubRenderer struct {
	mu    sync.Mutex
	pages []renderedPage
}

type renderedPage struct {
	status int
	page   string
	data   *render.TemplateData
}

func (s *stubRenderer) Render(w http.ResponseWriter, status int, page string, data *render.TemplateData) error {
	s.mu.Lock()
	s.pages = append(s.pages, renderedPage{status: status, page: page, data: data})
	s.mu.Unlock()

	w.WriteHeader(status)
	_, err := fmt.Fprint(w, page)
	return err
}

func (s *stubRenderer) last(t *testing.T) renderedPage {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()

	require.NotEmpty(t, s.pages, "nothing was rendered")
	return s.pages[len(s.pages)-1]
}

type publishedMessage struct {
	body []byte
	key  common.BindingKey
}

// stubProducer records every published message. Err, when set, fails every publish.
type stubProducer struct {
	mu       sync.Mutex
	messages []publishedMessage
	Err      error
}

func (p *stubProducer) Publish(ctx context.Context, msg []byte, key common.BindingKey, exchange common.Exchange) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return p.Err
	}
	p.messages = append(p.messages, publishedMessage{body: msg, key: key})
	return nil
}

func (p *stubProducer) published(key common.BindingKey) []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []publishedMessage
	for _, m := range p.messages {
		if m.key == key {
			out = append(out, m)
		}
	}
	return out
}

func testConfig() *Config {
	cfg := &Config{Environment: "testing"}
	cfg.Session.TTL = time.Hour
	return cfg
}

// newUnitApplication builds an application without a database, for middleware tests.
func newUnitApplication(t *testing.T) (*application, *stubRenderer) {
	renderer := &stubRenderer{}

	return &application{
		config:   testConfig(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		renderer: renderer,
		broker:   &stubProducer{},
	}, renderer
}

type testApplication struct {
	*application
	db       *sql.DB
	renderer *stubRenderer
	producer *stubProducer
}

func newTestApplication(t *testing.T) *testApplication {
	db := common.TestDB("file://../../migrations", t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer := &stubRenderer{}
	producer := &stubProducer{}
	sessions := userservice.NewMemorySessionStore(time.Hour)

	app := &application{
		config:      testConfig(),
		logger:      logger,
		userService: userservice.NewUserService(db, sessions, producer, logger),
		blogService: blogservice.NewBlogService(db, common.NewCache(time.Minute, 2*time.Minute)),
		broker:      producer,
		renderer:    renderer,
		limiter:     newIPLimiter(0, 0),
	}
	t.Cleanup(app.limiter.Close)

	return &testApplication{application: app, db: db, renderer: renderer, producer: producer}
}

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)

	t.Cleanup(ts.Close)

	return &testServer{ts}
}

// client returns a browser-like client with its own cookie jar that does not follow redirects.
func (ts *testServer) client(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func readResponse(t *testing.T, res *http.Response) (int, http.Header, string) {
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return res.StatusCode, res.Header, string(body)
}

func (ts *testServer) get(t *testing.T, c *http.Client, path string) (int, http.Header, string) {
	res, err := c.Get(ts.URL + path)
	require.NoError(t, err)

	return readResponse(t, res)
}

func (ts *testServer) postForm(t *testing.T, c *http.Client, path string, form url.Values) (int, http.Header, string) {
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.Do(req)
	require.NoError(t, err)

	return readResponse(t, res)
}

// register signs up through the form and returns a client holding the new session.
func (ts *testServer) register(t *testing.T, name, email string) *http.Client {
	t.Helper()

	c := ts.client(t)
	code, header, _ := ts.postForm(t, c, "/register", url.Values{
		"name":     {name},
		"email":    {email},
		"password": {"Pa$$w0rd!"},
	})
	require.Equal(t, http.StatusSeeOther, code)
	require.Equal(t, "/", header.Get("Location"))

	return c
}
