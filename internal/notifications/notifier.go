// Package notifications publishes project activity onto Redis pub/sub channels.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"fieldcase/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Event types carried on project and user channels.
const (
	EventInvitationIssued   = "invitation.issued"
	EventInvitationAccepted = "invitation.accepted"
	EventInvitationRevoked  = "invitation.revoked"
	EventCollaboratorAdded  = "collaborator.added"
	EventCollaboratorLeft   = "collaborator.removed"
)

const (
	projectChannelPrefix = "fieldcase:project:"
	userChannelPrefix    = "fieldcase:user:"
)

// Event is a project activity notification. Invitation tokens are never included.
type Event struct {
	Type         string    `json:"type"`
	ProjectID    uint      `json:"project_id"`
	ActorID      uint      `json:"actor_id,omitempty"`
	RecipientID  uint      `json:"recipient_id,omitempty"`
	InvitationID uint      `json:"invitation_id,omitempty"`
	Email        string    `json:"email,omitempty"`
	Role         string    `json:"role,omitempty"`
	At           time.Time `json:"at"`
}

// Notifier publishes events into Redis channels. A Notifier without a client
// drops events silently.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// ProjectChannel derives the Redis channel name for a project.
func ProjectChannel(projectID uint) string {
	return projectChannelPrefix + strconv.FormatUint(uint64(projectID), 10)
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// Publish sends ev to the project channel and, when set, to the recipient's channel.
func (n *Notifier) Publish(ctx context.Context, ev Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := n.rdb.Publish(ctx, ProjectChannel(ev.ProjectID), payload).Err(); err != nil {
		return fmt.Errorf("publish project event: %w", err)
	}
	if ev.RecipientID != 0 {
		if err := n.rdb.Publish(ctx, UserChannel(ev.RecipientID), payload).Err(); err != nil {
			return fmt.Errorf("publish user event: %w", err)
		}
	}
	return nil
}

// StartSubscriber subscribes to every project and user channel and calls
// onEvent for each decodable message until ctx is cancelled.
func (n *Notifier) StartSubscriber(ctx context.Context, onEvent func(channel string, ev Event)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, projectChannelPrefix+"*", userChannelPrefix+"*")
	// Wait for the subscription to be confirmed so callers can publish right away.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					middleware.Logger.Warn("dropping malformed event",
						slog.String("channel", msg.Channel),
						slog.String("error", err.Error()),
					)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in event subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onEvent(msg.Channel, ev)
				}()
			}
		}
	}()

	return nil
}
