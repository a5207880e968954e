package event

import "time"

type Type string

const (
	TypePostReplied     Type = "post.replied"
	TypeContentLiked    Type = "content.liked"
	TypeContentDisliked Type = "content.disliked"
	TypeUserWarned      Type = "user.warned"
)

// Event is a domain fact published after a write has committed.
type Event struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	ActorID     string    `json:"actor_id,omitempty"`
	RecipientID string    `json:"recipient_id"`
	TargetType  string    `json:"target_type,omitempty"`
	TargetID    string    `json:"target_id,omitempty"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
