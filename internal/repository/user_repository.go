package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/utils"
)

const userColumns = "id,username,email,password_hash,role,first_name,last_name,website,facebook,instagram,x,youtube,created_at,updated_at"

// UserRepo stores users.  Emails are kept lowercase.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user with a generated username.  A username collision is
// retried with a fresh name; an email collision returns ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, password string, role model.Role, cost int) (model.User, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	ts := now()
	u := model.User{
		ID:           newID(),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	for attempt := 0; attempt < 3; attempt++ {
		u.Username = utils.GenUsername()
		_, err = r.DB.ExecContext(ctx,
			"INSERT INTO users (id,username,email,password_hash,role,created_at,updated_at) VALUES (?,?,?,?,?,?,?)",
			u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt)
		switch {
		case err == nil:
			return u, nil
		case duplicateOn(err, "email"):
			return model.User{}, ErrEmailExists
		case duplicateOn(err, "username"):
			continue
		default:
			return model.User{}, err
		}
	}
	return model.User{}, ErrUsernameExists
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email))
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// GetRole loads only the role of a user.
func (r *UserRepo) GetRole(ctx context.Context, id string) (model.Role, error) {
	var role string
	err := r.DB.QueryRowContext(ctx, "SELECT role FROM users WHERE id=? LIMIT 1", id).Scan(&role)
	if err != nil {
		return "", notFound(err)
	}
	return model.Role(role), nil
}

// List returns a page of users, newest first, and the total count.
func (r *UserRepo) List(ctx context.Context, p Page) ([]model.User, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id LIMIT ? OFFSET ?", p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// UserUpdate lists the profile fields to change; nil means unchanged.
type UserUpdate struct {
	Username     *string
	Email        *string
	PasswordHash *string
	FirstName    *string
	LastName     *string
	Website      *string
	Facebook     *string
	Instagram    *string
	X            *string
	YouTube      *string
}

// Update applies u to the user and returns the stored result.
func (r *UserRepo) Update(ctx context.Context, id string, u UserUpdate) (model.User, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+"=?")
			args = append(args, *v)
		}
	}
	if u.Email != nil {
		email := normalizeEmail(*u.Email)
		u.Email = &email
	}
	set("username", u.Username)
	set("email", u.Email)
	set("password_hash", u.PasswordHash)
	set("first_name", u.FirstName)
	set("last_name", u.LastName)
	set("website", u.Website)
	set("facebook", u.Facebook)
	set("instagram", u.Instagram)
	set("x", u.X)
	set("youtube", u.YouTube)
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at=?")
	args = append(args, now(), id)

	if _, err := r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ",")+" WHERE id=?", args...); err != nil {
		switch {
		case duplicateOn(err, "email"):
			return model.User{}, ErrEmailExists
		case duplicateOn(err, "username"):
			return model.User{}, ErrUsernameExists
		}
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// UpdateRole changes a user's role.
func (r *UserRepo) UpdateRole(ctx context.Context, id string, role model.Role) (model.User, error) {
	if !role.Valid() {
		return model.User{}, fmt.Errorf("invalid role %q", role)
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE users SET role=?, updated_at=? WHERE id=?", string(role), now(), id); err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a user.  Blogs, comments, likes and refresh tokens go with
// it through ON DELETE CASCADE; before that, the comment and like counters
// of other authors' blogs are reduced by what this user contributed.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", id).Scan(&exists); err != nil {
			return notFound(err)
		}
		if err := releaseCounters(ctx, tx, "comments", "comments_count", id); err != nil {
			return err
		}
		if err := releaseCounters(ctx, tx, "likes", "likes_count", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
		return err
	})
}

// releaseCounters subtracts userID's rows in table from counter on every blog
// they touched.  Rows are collected before updating: MySQL cannot run a
// statement while a result set is open on the same connection.
func releaseCounters(ctx context.Context, tx *sql.Tx, table, counter, userID string) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT blog_id, COUNT(*) FROM "+table+" WHERE user_id=? GROUP BY blog_id", userID)
	if err != nil {
		return err
	}
	type tally struct {
		blogID string
		n      int
	}
	var tallies []tally
	for rows.Next() {
		var t tally
		if err := rows.Scan(&t.blogID, &t.n); err != nil {
			rows.Close()
			return err
		}
		tallies = append(tallies, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	if err := rows.Close(); err != nil {
		return err
	}
	for _, t := range tallies {
		if _, err := tx.ExecContext(ctx,
			"UPDATE blogs SET "+counter+" = CASE WHEN "+counter+" > ? THEN "+counter+" - ? ELSE 0 END WHERE id=?",
			t.n, t.n, t.blogID); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role,
		&u.FirstName, &u.LastName,
		&u.SocialLinks.Website, &u.SocialLinks.Facebook, &u.SocialLinks.Instagram,
		&u.SocialLinks.X, &u.SocialLinks.YouTube,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, notFound(err)
	}
	u.Role = model.Role(role)
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
