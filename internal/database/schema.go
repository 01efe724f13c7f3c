package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is written in the subset of SQL shared by MySQL and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            VARCHAR(36)  NOT NULL PRIMARY KEY,
		username      VARCHAR(20)  NOT NULL UNIQUE,
		email         VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(10)  NOT NULL DEFAULT 'user',
		first_name    VARCHAR(20)  NOT NULL DEFAULT '',
		last_name     VARCHAR(20)  NOT NULL DEFAULT '',
		website       VARCHAR(100) NOT NULL DEFAULT '',
		facebook      VARCHAR(100) NOT NULL DEFAULT '',
		instagram     VARCHAR(100) NOT NULL DEFAULT '',
		x             VARCHAR(100) NOT NULL DEFAULT '',
		youtube       VARCHAR(100) NOT NULL DEFAULT '',
		created_at    DATETIME     NOT NULL,
		updated_at    DATETIME     NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         VARCHAR(36) NOT NULL PRIMARY KEY,
		user_id    VARCHAR(36) NOT NULL,
		token_hash CHAR(64)    NOT NULL UNIQUE,
		expires_at DATETIME    NOT NULL,
		revoked_at DATETIME    NULL,
		created_at DATETIME    NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS blogs (
		id             VARCHAR(36)   NOT NULL PRIMARY KEY,
		title          VARCHAR(180)  NOT NULL,
		slug           VARCHAR(200)  NOT NULL UNIQUE,
		content        TEXT          NOT NULL,
		banner_key     VARCHAR(255)  NOT NULL,
		banner_url     VARCHAR(1024) NOT NULL,
		banner_width   INT           NOT NULL DEFAULT 0,
		banner_height  INT           NOT NULL DEFAULT 0,
		author_id      VARCHAR(36)   NOT NULL,
		status         VARCHAR(10)   NOT NULL DEFAULT 'draft',
		views_count    INT           NOT NULL DEFAULT 0,
		likes_count    INT           NOT NULL DEFAULT 0,
		comments_count INT           NOT NULL DEFAULT 0,
		published_at   DATETIME      NULL,
		created_at     DATETIME      NOT NULL,
		updated_at     DATETIME      NOT NULL,
		FOREIGN KEY (author_id) REFERENCES users (id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id         VARCHAR(36) NOT NULL PRIMARY KEY,
		blog_id    VARCHAR(36) NOT NULL,
		user_id    VARCHAR(36) NOT NULL,
		content    TEXT        NOT NULL,
		created_at DATETIME    NOT NULL,
		updated_at DATETIME    NOT NULL,
		FOREIGN KEY (blog_id) REFERENCES blogs (id) ON DELETE CASCADE,
		FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS likes (
		id         VARCHAR(36) NOT NULL PRIMARY KEY,
		blog_id    VARCHAR(36) NOT NULL,
		user_id    VARCHAR(36) NOT NULL,
		created_at DATETIME    NOT NULL,
		UNIQUE (blog_id, user_id),
		FOREIGN KEY (blog_id) REFERENCES blogs (id) ON DELETE CASCADE,
		FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	)`,
}

// Migrate creates missing tables.  It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
