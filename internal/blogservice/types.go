package blogservice

import (
	"database/sql"
	"sync"
	"time"

	"github.com/sushihentaime/quill/internal/common"
	"github.com/sushihentaime/quill/internal/userservice"
)

// DateLayout is the display format of Post.Date.
const DateLayout = "January 02, 2006"

type Post struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	// Date is a display string set at creation, e.g. "March 04, 2025".
	Date string `json:"date"`
	// Body is sanitised HTML produced by the rich text editor.
	Body string `json:"body"`
	// Author is the author's display name copied at creation.
	Author    string    `json:"author"`
	ImgURL    string    `json:"img_url"`
	AuthorID  int       `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`

	Comments []Comment `json:"comments,omitempty"`
}

type Comment struct {
	ID          int       `json:"id"`
	Text        string    `json:"text"`
	AuthorID    int       `json:"author_id"`
	PostID      int       `json:"post_id"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c Comment) AvatarURL() string {
	return userservice.GravatarURL(c.AuthorEmail, userservice.AvatarSize)
}

// PostInput holds the editable fields of a post.
type PostInput struct {
	Title    string
	Subtitle string
	Body     string
	ImgURL   string
}

type BlogModel struct {
	db *sql.DB
}

type BlogService struct {
	m *BlogModel
	c *common.Cache

	// mu orders cache fills against invalidations. gen counts invalidations.
	mu  sync.Mutex
	gen uint64
}
