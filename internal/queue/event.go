// Package queue defines the activity events exchanged over RabbitMQ and the
// background consumer that records them.
package queue

import "time"

// ActivityQueue is the durable queue every state change is published to.
const ActivityQueue = "blog.activity"

// Event types.
const (
	EventUserRegistered = "user.registered"
	EventUserLoggedIn   = "user.logged_in"
	EventUserLoggedOut  = "user.logged_out"
	EventUserUpdated    = "user.updated"
	EventUserRoleChange = "user.role_changed"
	EventUserDeleted    = "user.deleted"
	EventBlogCreated    = "blog.created"
	EventBlogUpdated    = "blog.updated"
	EventBlogDeleted    = "blog.deleted"
	EventBlogLiked      = "blog.liked"
	EventBlogUnliked    = "blog.unliked"
	EventCommentCreated = "comment.created"
	EventCommentDeleted = "comment.deleted"
)

// ActivityEvent describes one state-changing operation.  It carries enough
// for downstream consumers to log or notify without querying the database.
type ActivityEvent struct {
	Type         string            `json:"type"`
	ActorID      string            `json:"actorId"`
	ResourceType string            `json:"resourceType"`
	ResourceID   string            `json:"resourceId"`
	OccurredAt   time.Time         `json:"occurredAt"`
	Meta         map[string]string `json:"meta,omitempty"`
}
