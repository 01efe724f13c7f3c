package repository

import (
	"context"
	"database/sql"
)

// LikeRepo stores likes and keeps blogs.likes_count in step.
type LikeRepo struct{ DB *sql.DB }

func NewLikeRepo(db *sql.DB) *LikeRepo { return &LikeRepo{DB: db} }

// Like records userID liking blogID and returns the new likes counter.  The
// unique (blog_id, user_id) key turns a second like, concurrent or not, into
// ErrAlreadyLiked.
func (r *LikeRepo) Like(ctx context.Context, blogID, userID string) (int, error) {
	var count int
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := lockBlog(ctx, r.DB, tx, blogID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO likes (id,blog_id,user_id,created_at) VALUES (?,?,?,?)",
			newID(), blogID, userID, now()); err != nil {
			if isDuplicate(err) {
				return ErrAlreadyLiked
			}
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE blogs SET likes_count = likes_count + 1 WHERE id=?", blogID); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, "SELECT likes_count FROM blogs WHERE id=?", blogID).Scan(&count)
	})
	return count, err
}

// Unlike removes userID's like of blogID and returns the new counter.
func (r *LikeRepo) Unlike(ctx context.Context, blogID, userID string) (int, error) {
	var count int
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := lockBlog(ctx, r.DB, tx, blogID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM likes WHERE blog_id=? AND user_id=?", blogID, userID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNotLiked
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE blogs SET likes_count = likes_count - 1 WHERE id=? AND likes_count > 0", blogID); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, "SELECT likes_count FROM blogs WHERE id=?", blogID).Scan(&count)
	})
	return count, err
}
