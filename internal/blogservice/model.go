package blogservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sushihentaime/quill/internal/common"
)

var (
	ErrRecordNotFound = common.ErrRecordNotFound
	ErrDuplicateTitle = fmt.Errorf("%w: duplicate title", common.ErrUniqueViolation)
	ErrUserForeignKey = fmt.Errorf("%w: author does not exist", common.ErrIntegrityViolation)
	ErrPostForeignKey = fmt.Errorf("%w: post does not exist", common.ErrIntegrityViolation)
)

func newBlogModel(db *sql.DB) *BlogModel {
	return &BlogModel{db: db}
}

func postWriteError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrRecordNotFound
	case common.UniqueViolation(err, "blog_posts_title_key"):
		return ErrDuplicateTitle
	case common.ForeignKeyViolation(err, "blog_posts_author_id_fkey"):
		return ErrUserForeignKey
	default:
		return err
	}
}

// insertPost copies the author's display name from the users row in the same statement.
func insertPost(tx *sql.Tx, ctx context.Context, p *Post) error {
	query := `
		INSERT INTO blog_posts (title, subtitle, date, body, author, img_url, author_id)
		SELECT $1, $2, $3, $4, u.name, $5, u.id
		FROM users u
		WHERE u.id = $6
		RETURNING id, author, created_at, updated_at, version`

	args := []any{p.Title, p.Subtitle, p.Date, p.Body, p.ImgURL, p.AuthorID}

	err := tx.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.Author, &p.CreatedAt, &p.UpdatedAt, &p.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserForeignKey
		}
		return postWriteError(err)
	}

	return nil
}

// updatePost leaves date, author and author_id as they were at creation.
func updatePost(tx *sql.Tx, ctx context.Context, p *Post) error {
	query := `
		UPDATE blog_posts
		SET title = $1, subtitle = $2, body = $3, img_url = $4, updated_at = NOW(), version = version + 1
		WHERE id = $5
		RETURNING date, author, author_id, created_at, updated_at, version`

	args := []any{p.Title, p.Subtitle, p.Body, p.ImgURL, p.ID}

	err := tx.QueryRowContext(ctx, query, args...).Scan(&p.Date, &p.Author, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt, &p.Version)
	if err != nil {
		return postWriteError(err)
	}

	return nil
}

// deletePost removes the post; its comments go with it through ON DELETE CASCADE.
// It returns how many comments were removed.
func deletePost(tx *sql.Tx, ctx context.Context, id int) (int, error) {
	var comments int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments WHERE post_id = $1", id).Scan(&comments)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM blog_posts WHERE id = $1", id)
	if err != nil {
		return 0, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if rows != 1 {
		switch {
		case rows == 0:
			return 0, ErrRecordNotFound
		default:
			return 0, fmt.Errorf("expected 1 row to be affected, got %d", rows)
		}
	}

	return comments, nil
}

func (m *BlogModel) getPostByID(ctx context.Context, id int) (*Post, error) {
	query := `
		SELECT id, title, subtitle, date, body, author, img_url, author_id, created_at, updated_at, version
		FROM blog_posts
		WHERE id = $1`

	var p Post
	err := m.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Title, &p.Subtitle, &p.Date, &p.Body, &p.Author, &p.ImgURL, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt, &p.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &p, nil
}

// getPosts returns every post, newest first.
func (m *BlogModel) getPosts(ctx context.Context) ([]Post, error) {
	query := `
		SELECT id, title, subtitle, date, body, author, img_url, author_id, created_at, updated_at, version
		FROM blog_posts
		ORDER BY id DESC`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		var p Post
		err := rows.Scan(&p.ID, &p.Title, &p.Subtitle, &p.Date, &p.Body, &p.Author, &p.ImgURL, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt, &p.Version)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return posts, nil
}

// getComments joins the commenter so the page can show a name and avatar.
func (m *BlogModel) getComments(ctx context.Context, postID int) ([]Comment, error) {
	query := `
		SELECT c.id, c.text, c.author_id, c.post_id, c.created_at, u.name, u.email
		FROM comments c
		JOIN users u ON c.author_id = u.id
		WHERE c.post_id = $1
		ORDER BY c.id ASC`

	rows, err := m.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		var c Comment
		err := rows.Scan(&c.ID, &c.Text, &c.AuthorID, &c.PostID, &c.CreatedAt, &c.AuthorName, &c.AuthorEmail)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return comments, nil
}

func insertComment(tx *sql.Tx, ctx context.Context, c *Comment) error {
	query := `
		INSERT INTO comments (text, author_id, post_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := tx.QueryRowContext(ctx, query, c.Text, c.AuthorID, c.PostID).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		switch {
		case common.ForeignKeyViolation(err, "comments_post_id_fkey"):
			return ErrPostForeignKey
		case common.ForeignKeyViolation(err, "comments_author_id_fkey"):
			return ErrUserForeignKey
		default:
			return err
		}
	}

	return nil
}

// getCommentForUpdate locks the comment row until the transaction ends.
func getCommentForUpdate(tx *sql.Tx, ctx context.Context, id int) (*Comment, error) {
	query := `
		SELECT id, text, author_id, post_id, created_at
		FROM comments
		WHERE id = $1
		FOR UPDATE`

	var c Comment
	err := tx.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Text, &c.AuthorID, &c.PostID, &c.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &c, nil
}

func deleteComment(tx *sql.Tx, ctx context.Context, id int) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM comments WHERE id = $1", id)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrRecordNotFound
	}

	return nil
}
