package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/blog-api/internal/logging"
	"github.com/iliyamo/blog-api/internal/queue"
)

const publishTimeout = 3 * time.Second

// Activity records state-changing operations: one info audit entry plus one
// published event per call.
type Activity struct {
	pub Publisher
	log logrus.FieldLogger
	now func() time.Time
}

// NewActivity records through pub; a nil pub publishes nothing.
func NewActivity(pub Publisher, log logrus.FieldLogger) *Activity {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Activity{pub: pub, log: log, now: time.Now}
}

// Record audits and publishes one event.  The request context only bounds
// the publish; cancellation by a disconnecting client does not drop it.
func (a *Activity) Record(ctx context.Context, typ, actorID, resourceType, resourceID string, meta map[string]string) {
	logging.Succeeded(a.log, actorID, typ, resourceType+":"+resourceID)

	ev := queue.ActivityEvent{
		Type:         typ,
		ActorID:      actorID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		OccurredAt:   a.now().UTC(),
		Meta:         meta,
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := a.pub.Publish(ctx, ev); err != nil {
		a.log.WithError(err).WithField("type", typ).Warn("publish activity event failed")
	}
}
