package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/blog-api/internal/model"
)

// CommentRepo stores comments and keeps blogs.comments_count in step.
type CommentRepo struct{ DB *sql.DB }

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{DB: db} }

// Create adds a comment to a blog and bumps the blog's comment counter in
// the same transaction.  It returns the new counter value.
func (r *CommentRepo) Create(ctx context.Context, blogID, userID, content string) (model.Comment, int, error) {
	ts := now()
	c := model.Comment{ID: newID(), BlogID: blogID, UserID: userID, Content: content, CreatedAt: ts, UpdatedAt: ts}
	var count int
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := lockBlog(ctx, r.DB, tx, blogID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO comments (id,blog_id,user_id,content,created_at,updated_at) VALUES (?,?,?,?,?,?)",
			c.ID, c.BlogID, c.UserID, c.Content, c.CreatedAt, c.UpdatedAt); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE blogs SET comments_count = comments_count + 1 WHERE id=?", blogID); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, "SELECT comments_count FROM blogs WHERE id=?", blogID).Scan(&count)
	})
	if err != nil {
		return model.Comment{}, 0, err
	}
	return c, count, nil
}

// GetByID fetches a single comment.
func (r *CommentRepo) GetByID(ctx context.Context, id string) (model.Comment, error) {
	var c model.Comment
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,blog_id,user_id,content,created_at,updated_at FROM comments WHERE id=? LIMIT 1", id,
	).Scan(&c.ID, &c.BlogID, &c.UserID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Comment{}, notFound(err)
	}
	return c, nil
}

// ListByBlog returns a blog's comments, newest first.
func (r *CommentRepo) ListByBlog(ctx context.Context, blogID string) ([]model.Comment, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,blog_id,user_id,content,created_at,updated_at FROM comments WHERE blog_id=? ORDER BY created_at DESC, id",
		blogID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.BlogID, &c.UserID, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// Delete removes a comment and decrements its blog's counter, never below
// zero.  It returns the blog id and the new counter value.
func (r *CommentRepo) Delete(ctx context.Context, id string) (string, int, error) {
	var (
		blogID string
		count  int
	)
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, "SELECT blog_id FROM comments WHERE id=?", id).Scan(&blogID); err != nil {
			return notFound(err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM comments WHERE id=?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE blogs SET comments_count = comments_count - 1 WHERE id=? AND comments_count > 0", blogID); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, "SELECT comments_count FROM blogs WHERE id=?", blogID).Scan(&count)
	})
	if err != nil {
		return "", 0, err
	}
	return blogID, count, nil
}

// lockBlog checks the blog exists inside tx.  On MySQL the row stays locked
// until the transaction ends so counter updates are serialised per blog.
func lockBlog(ctx context.Context, db *sql.DB, tx *sql.Tx, blogID string) error {
	var id string
	if err := tx.QueryRowContext(ctx, "SELECT id FROM blogs WHERE id=?"+lockClause(db), blogID).Scan(&id); err != nil {
		return notFound(err)
	}
	return nil
}
