package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/blog-api/internal/model"
)

const blogColumns = "b.id,b.title,b.slug,b.content,b.banner_key,b.banner_url,b.banner_width,b.banner_height," +
	"b.author_id,b.status,b.views_count,b.likes_count,b.comments_count,b.published_at,b.created_at,b.updated_at"

// BlogRepo stores blogs and their banner metadata.
type BlogRepo struct{ DB *sql.DB }

func NewBlogRepo(db *sql.DB) *BlogRepo { return &BlogRepo{DB: db} }

// Create inserts b, filling in its id and timestamps.  A taken slug returns
// ErrConflict.
func (r *BlogRepo) Create(ctx context.Context, b *model.Blog) error {
	ts := now()
	b.ID = newID()
	b.CreatedAt, b.UpdatedAt = ts, ts
	if b.Status == "" {
		b.Status = model.BlogDraft
	}
	if b.Status == model.BlogPublished {
		b.PublishedAt = &ts
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO blogs (id,title,slug,content,banner_key,banner_url,banner_width,banner_height,
			author_id,status,published_at,created_at,updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.ID, b.Title, b.Slug, b.Content, b.Banner.Key, b.Banner.URL, b.Banner.Width, b.Banner.Height,
		b.AuthorID, string(b.Status), nullTime(b.PublishedAt), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// GetByID fetches a blog without its author.
func (r *BlogRepo) GetByID(ctx context.Context, id string) (model.Blog, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+blogColumns+" FROM blogs b WHERE b.id=? LIMIT 1", id)
	return scanBlog(row)
}

// GetBySlug fetches a blog together with its author's public profile.
func (r *BlogRepo) GetBySlug(ctx context.Context, slug string) (model.Blog, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+blogColumns+",u.username,u.email,u.role,u.first_name,u.last_name,"+
			"u.website,u.facebook,u.instagram,u.x,u.youtube"+
			" FROM blogs b JOIN users u ON u.id = b.author_id WHERE b.slug=? LIMIT 1", slug)

	var (
		a    model.Author
		role string
	)
	b, err := scanBlog(row, &a.Username, &a.Email, &role, &a.FirstName, &a.LastName,
		&a.SocialLinks.Website, &a.SocialLinks.Facebook, &a.SocialLinks.Instagram,
		&a.SocialLinks.X, &a.SocialLinks.YouTube)
	if err != nil {
		return model.Blog{}, err
	}
	a.ID = b.AuthorID
	a.Role = model.Role(role)
	b.Author = &a
	return b, nil
}

// BlogFilter narrows List.  Zero values do not filter.
type BlogFilter struct {
	AuthorID string
	Status   model.BlogStatus
	Page
}

// List returns a page of blogs, newest first, and the total matching count.
func (r *BlogRepo) List(ctx context.Context, f BlogFilter) ([]model.Blog, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.AuthorID != "" {
		conds = append(conds, "b.author_id=?")
		args = append(args, f.AuthorID)
	}
	if f.Status != "" {
		conds = append(conds, "b.status=?")
		args = append(args, string(f.Status))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM blogs b"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+blogColumns+" FROM blogs b"+where+" ORDER BY b.created_at DESC, b.id LIMIT ? OFFSET ?",
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	blogs := []model.Blog{}
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, 0, err
		}
		blogs = append(blogs, b)
	}
	return blogs, total, rows.Err()
}

// BlogUpdate lists the fields to change; nil means unchanged.
type BlogUpdate struct {
	Title   *string
	Content *string
	Status  *model.BlogStatus
	Banner  *model.Banner
}

// Update applies u and returns the stored blog.  Publishing a blog for the
// first time stamps published_at.
func (r *BlogRepo) Update(ctx context.Context, id string, u BlogUpdate) (model.Blog, error) {
	var (
		sets []string
		args []any
	)
	if u.Title != nil {
		sets = append(sets, "title=?")
		args = append(args, *u.Title)
	}
	if u.Content != nil {
		sets = append(sets, "content=?")
		args = append(args, *u.Content)
	}
	ts := now()
	if u.Status != nil {
		sets = append(sets, "status=?")
		args = append(args, string(*u.Status))
		if *u.Status == model.BlogPublished {
			sets = append(sets, "published_at=COALESCE(published_at, ?)")
			args = append(args, ts)
		}
	}
	if u.Banner != nil {
		sets = append(sets, "banner_key=?", "banner_url=?", "banner_width=?", "banner_height=?")
		args = append(args, u.Banner.Key, u.Banner.URL, u.Banner.Width, u.Banner.Height)
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at=?")
		args = append(args, ts, id)
		if _, err := r.DB.ExecContext(ctx, "UPDATE blogs SET "+strings.Join(sets, ",")+" WHERE id=?", args...); err != nil {
			return model.Blog{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes a blog; its comments and likes cascade.
func (r *BlogRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM blogs WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViews bumps the view counter of a blog.
func (r *BlogRepo) IncrementViews(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE blogs SET views_count = views_count + 1 WHERE id=?", id)
	return err
}

// BannerKeysByAuthor lists the storage keys of every banner owned by authorID.
func (r *BlogRepo) BannerKeysByAuthor(ctx context.Context, authorID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT banner_key FROM blogs WHERE author_id=?", authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys, rows.Err()
}

// scanBlog reads blogColumns followed by any extra destinations.
func scanBlog(s rowScanner, extra ...any) (model.Blog, error) {
	var (
		b         model.Blog
		status    string
		published sql.NullTime
	)
	dest := append([]any{
		&b.ID, &b.Title, &b.Slug, &b.Content,
		&b.Banner.Key, &b.Banner.URL, &b.Banner.Width, &b.Banner.Height,
		&b.AuthorID, &status, &b.ViewsCount, &b.LikesCount, &b.CommentsCount,
		&published, &b.CreatedAt, &b.UpdatedAt,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		return model.Blog{}, notFound(err)
	}
	b.Status = model.BlogStatus(status)
	if published.Valid {
		t := published.Time
		b.PublishedAt = &t
	}
	return b, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
