package model

import "time"

const (
	TargetPost   = "post"
	TargetThread = "thread"
	TargetUser   = "user"
)

const (
	ReportPending  = "pending"
	ReportReviewed = "reviewed"
	ReportResolved = "resolved"
	ReportRejected = "rejected"
)

const (
	NotificationReply   = "reply"
	NotificationLike    = "like"
	NotificationDislike = "dislike"
	NotificationWarning = "warning"
)

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Thread struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name,omitempty"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username,omitempty"`
	PostCount    int       `json:"post_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Post struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	Content    string    `json:"content"`
	Attachment string    `json:"attachment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Like struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	Value      int       `json:"value"`
	CreatedAt  time.Time `json:"created_at"`
}

type LikeCounts struct {
	Likes        int  `json:"likes"`
	Dislikes     int  `json:"dislikes"`
	UserReaction *int `json:"user_reaction"`
}

// LikeOutcome describes what a toggle did.
type LikeOutcome struct {
	Action string      `json:"action"`
	Like   *Like       `json:"like,omitempty"`
	Counts *LikeCounts `json:"counts,omitempty"`
}

type Report struct {
	ID         string    `json:"id"`
	ReporterID string    `json:"reporter_id"`
	Reporter   string    `json:"reporter,omitempty"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	AdminNotes string    `json:"admin_notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ReportQuery struct {
	Status     string
	TargetType string
}

type Notification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ActorID    string    `json:"actor_id,omitempty"`
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	TargetType string    `json:"target_type,omitempty"`
	TargetID   string    `json:"target_id,omitempty"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

type NotificationQuery struct {
	UserID     string
	UnreadOnly bool
	Limit      int
	Offset     int
}

type ActivityEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Action    string    `json:"action"`
	IPAddress string    `json:"ip_address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ActivityQuery struct {
	UserID string
	Action string
	Page   int
	Limit  int
}

// StoredFile describes an uploaded blob.
type StoredFile struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}
