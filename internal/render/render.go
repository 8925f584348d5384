package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/sushihentaime/quill/internal/blogservice"
	"github.com/sushihentaime/quill/internal/userservice"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	PageIndex    = "index"
	PagePost     = "post"
	PageMakePost = "make-post"
	PageRegister = "register"
	PageLogin    = "login"
	PageAbout    = "about"
	PageContact  = "contact"
	PageError    = "error"
)

const layoutFile = "templates/layout.html"

// Renderer writes a named page to w with the given status code.
type Renderer interface {
	Render(w http.ResponseWriter, status int, page string, data *TemplateData) error
}

// TemplateData is everything a page can show. Handlers fill only what the page needs.
type TemplateData struct {
	CurrentUser *userservice.User
	IsAdmin     bool

	Posts    []blogservice.Post
	Post     *blogservice.Post
	Comments []CommentView

	// Form holds submitted values so a rejected form is re-rendered as typed.
	Form   url.Values
	Errors map[string]string
	Flash  string
	Edit   bool

	Status  int
	Message string
}

// CommentView is a comment plus whether the viewer may delete it.
type CommentView struct {
	blogservice.Comment
	CanDelete bool
}

// HTML renders pages from the embedded templates. Every page is parsed together with the layout.
type HTML struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	// safeHTML marks text that was sanitised before it was stored.
	"safeHTML": func(s string) template.HTML {
		return template.HTML(s)
	},
	"year": func() int {
		return time.Now().Year()
	},
	"fieldError": func(errs map[string]string, field string) string {
		return errs[field]
	},
}

func NewHTML() (*HTML, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == layoutFile {
			continue
		}

		t, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("could not parse template %s: %w", file, err)
		}

		pages[strings.TrimSuffix(path.Base(file), ".html")] = t
	}

	return &HTML{pages: pages}, nil
}

// Render executes the page into a buffer first, so a template failure never leaves a
// half-written response behind.
func (h *HTML) Render(w http.ResponseWriter, status int, page string, data *TemplateData) error {
	t, ok := h.pages[page]
	if !ok {
		return fmt.Errorf("the template %s does not exist", page)
	}

	if data == nil {
		data = &TemplateData{}
	}

	buf := new(bytes.Buffer)
	if err := t.ExecuteTemplate(buf, "layout", data); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
