package model

import "time"

// BlogStatus controls visibility: drafts are only readable by admins.
type BlogStatus string

const (
	BlogDraft     BlogStatus = "draft"
	BlogPublished BlogStatus = "published"
)

// Banner is the hosted cover image of a blog.  Key is the object key in the
// bucket and is kept server side.
type Banner struct {
	Key    string `json:"-"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Blog mirrors the `blogs` table.  LikesCount and CommentsCount are
// denormalized counters maintained alongside the child rows.
type Blog struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Content       string     `json:"content"`
	Banner        Banner     `json:"banner"`
	AuthorID      string     `json:"authorId"`
	Author        *Author    `json:"author,omitempty"`
	Status        BlogStatus `json:"status"`
	ViewsCount    int        `json:"viewsCount"`
	LikesCount    int        `json:"likesCount"`
	CommentsCount int        `json:"commentsCount"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Author is the public projection of a user embedded in a blog.
type Author struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Role        Role        `json:"role"`
	FirstName   string      `json:"firstName,omitempty"`
	LastName    string      `json:"lastName,omitempty"`
	SocialLinks SocialLinks `json:"socialLinks"`
}
