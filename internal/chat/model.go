package chat

import (
	"time"
)

const MaxMessageLength = 2000

type SenderKind string

const (
	SenderMember  SenderKind = "member"
	SenderTrainer SenderKind = "trainer"
)

// Access is the unlock window of one trainer/member pair.
type Access struct {
	ID             int64     `db:"id" json:"id"`
	TrainerID      int64     `db:"trainer_id" json:"trainer_id"`
	MemberID       int64     `db:"member_id" json:"member_id"`
	ExpiresAt      time.Time `db:"expires_at" json:"expires_at"`
	LastUnlockedAt time.Time `db:"last_unlocked_at" json:"last_unlocked_at"`
	Reason         string    `db:"reason" json:"reason"`
}

// OpenAt reports whether the window is still open at t.
func (a *Access) OpenAt(t time.Time) bool {
	return a.ExpiresAt.After(t)
}

type Message struct {
	ID         int64      `db:"id" json:"id"`
	TrainerID  int64      `db:"trainer_id" json:"trainer_id"`
	MemberID   int64      `db:"member_id" json:"member_id"`
	SenderKind SenderKind `db:"sender_kind" json:"sender_kind"`
	SenderID   int64      `db:"sender_id" json:"sender_id"`
	Text       string     `db:"text" json:"text"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Thread is one conversation of a trainer, summarised by its latest message.
type Thread struct {
	MemberID        int64      `db:"member_id" json:"member_id"`
	MemberName      string     `db:"member_name" json:"member_name"`
	LastMessage     string     `db:"last_message" json:"last_message"`
	LastSenderKind  SenderKind `db:"last_sender_kind" json:"last_sender_kind"`
	LastMessageAt   time.Time  `db:"last_message_at" json:"last_message_at"`
	AccessExpiresAt *time.Time `db:"access_expires_at" json:"access_expires_at,omitempty"`
}

type SendMessageRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

// AccessStatus is what callers see about a pair's unlock window.
type AccessStatus struct {
	TrainerID      int64      `json:"trainer_id"`
	MemberID       int64      `json:"member_id"`
	Unlocked       bool       `json:"unlocked"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	LastUnlockedAt *time.Time `json:"last_unlocked_at,omitempty"`
	Message        string     `json:"message,omitempty"`
}

// Event is pushed to connected websocket clients.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
