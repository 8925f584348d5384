package blogservice

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/sushihentaime/quill/internal/authz"
	"github.com/sushihentaime/quill/internal/common"
	"github.com/sushihentaime/quill/internal/userservice"
)

// NewBlogService creates the service. cache may be nil to disable read caching.
func NewBlogService(db *sql.DB, cache *common.Cache) *BlogService {
	return &BlogService{m: newBlogModel(db), c: cache}
}

// guard resolves the actor inside tx and asks the gate once. Nothing is written before it returns nil.
func guard(tx *sql.Tx, ctx context.Context, userID int, action authz.Action) error {
	actor, err := userservice.LoadActor(ctx, tx, userID)
	if err != nil {
		return err
	}

	return authz.Authorize(actor, action, authz.Target{}).Err()
}

// ListPosts returns all posts, newest first.
func (s *BlogService) ListPosts(ctx context.Context) ([]Post, error) {
	if s.c != nil {
		if v, ok := s.c.Get(common.CacheKeyPosts); ok {
			return v.([]Post), nil
		}
	}

	gen := s.generation()

	posts, err := s.m.getPosts(ctx)
	if err != nil {
		return nil, err
	}

	s.fill(gen, common.CacheKeyPosts, posts)

	return posts, nil
}

// GetPost returns a post with its comments in the order they were written.
func (s *BlogService) GetPost(ctx context.Context, id int) (*Post, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if s.c != nil {
		if cached, ok := s.c.Get(common.CacheKeyPost(id)); ok {
			p := cached.(Post)
			return &p, nil
		}
	}

	gen := s.generation()

	p, err := s.m.getPostByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Comments, err = s.m.getComments(ctx, id)
	if err != nil {
		return nil, err
	}

	s.fill(gen, common.CacheKeyPost(id), *p)

	return p, nil
}

// CreatePost publishes a new post by userID, who must be the administrator.
func (s *BlogService) CreatePost(ctx context.Context, userID int, in PostInput) (*Post, error) {
	var p *Post

	err := common.WithTx(ctx, s.m.db, func(tx *sql.Tx) error {
		if err := guard(tx, ctx, userID, authz.CreatePost); err != nil {
			return err
		}

		in = normalizeInput(in)

		v := common.NewValidator()
		validatePostInput(v, in)
		if !v.Valid() {
			return v.ValidationError()
		}

		p = &Post{
			Title:    in.Title,
			Subtitle: in.Subtitle,
			Date:     time.Now().Format(DateLayout),
			Body:     in.Body,
			ImgURL:   in.ImgURL,
			AuthorID: userID,
		}

		return insertPost(tx, ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate()

	return p, nil
}

// UpdatePost replaces the editable fields of post id. userID must be the administrator.
func (s *BlogService) UpdatePost(ctx context.Context, userID, id int, in PostInput) (*Post, error) {
	var p *Post

	err := common.WithTx(ctx, s.m.db, func(tx *sql.Tx) error {
		if err := guard(tx, ctx, userID, authz.EditPost); err != nil {
			return err
		}

		in = normalizeInput(in)

		v := common.NewValidator()
		validateInt(v, id, "id")
		validatePostInput(v, in)
		if !v.Valid() {
			return v.ValidationError()
		}

		p = &Post{
			ID:       id,
			Title:    in.Title,
			Subtitle: in.Subtitle,
			Body:     in.Body,
			ImgURL:   in.ImgURL,
		}

		return updatePost(tx, ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(id)

	return p, nil
}

// DeletePost removes post id and every comment on it. userID must be the administrator.
// It returns the number of comments removed with the post.
func (s *BlogService) DeletePost(ctx context.Context, userID, id int) (int, error) {
	var removed int

	err := common.WithTx(ctx, s.m.db, func(tx *sql.Tx) error {
		if err := guard(tx, ctx, userID, authz.DeletePost); err != nil {
			return err
		}

		var err error
		removed, err = deletePost(tx, ctx, id)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.invalidate(id)

	return removed, nil
}

// CreateComment adds a comment by userID, who must be signed in, to post postID.
func (s *BlogService) CreateComment(ctx context.Context, userID, postID int, text string) (*Comment, error) {
	var c *Comment

	err := common.WithTx(ctx, s.m.db, func(tx *sql.Tx) error {
		if err := guard(tx, ctx, userID, authz.CreateComment); err != nil {
			return err
		}

		text = sanitizeHTML(text)

		v := common.NewValidator()
		validateComment(v, text)
		if !v.Valid() {
			return v.ValidationError()
		}

		c = &Comment{
			Text:     text,
			AuthorID: userID,
			PostID:   postID,
		}

		return insertComment(tx, ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.invalidatePost(postID)

	return c, nil
}

// DeleteComment removes comment commentID from post postID. Only the comment's author may do
// this; being the administrator or the post's author grants nothing.
func (s *BlogService) DeleteComment(ctx context.Context, userID, commentID, postID int) error {
	err := common.WithTx(ctx, s.m.db, func(tx *sql.Tx) error {
		actor, err := userservice.LoadActor(ctx, tx, userID)
		if err != nil {
			return err
		}

		var target authz.Target
		if actor.Authenticated() {
			c, err := getCommentForUpdate(tx, ctx, commentID)
			if err != nil {
				return err
			}
			if c.PostID != postID {
				return ErrRecordNotFound
			}
			target.AuthorID = c.AuthorID
		}

		if err := authz.Authorize(actor, authz.DeleteComment, target).Err(); err != nil {
			return err
		}

		return deleteComment(tx, ctx, commentID)
	})
	if err != nil {
		return err
	}

	s.invalidatePost(postID)

	return nil
}

// normalizeInput trims the plain fields and sanitises the body, so validation sees what will be stored.
func normalizeInput(in PostInput) PostInput {
	in.Body = sanitizeHTML(in.Body)
	in.Title = strings.TrimSpace(in.Title)
	in.Subtitle = strings.TrimSpace(in.Subtitle)
	in.ImgURL = strings.TrimSpace(in.ImgURL)
	return in
}

// invalidate drops the listing and the given posts from the cache.
func (s *BlogService) invalidate(ids ...int) {
	if s.c == nil {
		return
	}

	keys := []string{common.CacheKeyPosts}
	for _, id := range ids {
		keys = append(keys, common.CacheKeyPost(id))
	}

	s.mu.Lock()
	s.gen++
	s.c.Delete(keys...)
	s.mu.Unlock()
}

func (s *BlogService) invalidatePost(id int) {
	if s.c == nil {
		return
	}

	s.mu.Lock()
	s.gen++
	s.c.Delete(common.CacheKeyPost(id))
	s.mu.Unlock()
}

// generation is taken before a read that may later fill the cache.
func (s *BlogService) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// fill stores value under key unless an invalidation ran since gen was taken, in which case the
// value may predate a committed write and is dropped.
func (s *BlogService) fill(gen uint64, key string, value any) {
	if s.c == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.c.Set(key, value)
}
