package session

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"fitstudio/internal/auth"

	"github.com/lib/pq"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// transitions lists the legal targets of every non-terminal status.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusInProgress, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// predecessors returns every status from which to is reachable.
func predecessors(to Status) []string {
	var from []string
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusInProgress} {
		if CanTransition(s, to) {
			from = append(from, string(s))
		}
	}
	return from
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Date is a calendar date stored in a DATE column.
type Date struct {
	time.Time
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = v
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("session: cannot scan %T into Date", src)
	}
}

func (d *Date) parse(s string) error {
	parsed, err := ParseDate(s[:min(len(s), len(DateLayout))])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type Session struct {
	ID              int64         `db:"id" json:"id"`
	TrainerID       int64         `db:"trainer_id" json:"trainer_id"`
	Date            Date          `db:"session_date" json:"date"`
	Time            string        `db:"session_time" json:"time"`
	Type            string        `db:"type" json:"type"`
	Status          Status        `db:"status" json:"status"`
	MaxClients      int           `db:"max_clients" json:"max_clients"`
	ClientsEnrolled pq.Int64Array `db:"clients_enrolled" json:"clients_enrolled"`
	PriceCents      int64         `db:"price_cents" json:"price_cents"`
	StartAt         *time.Time    `db:"start_at" json:"start_at,omitempty"`
	EndAt           *time.Time    `db:"end_at" json:"end_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

func (s *Session) IsEnrolled(memberID int64) bool {
	for _, id := range s.ClientsEnrolled {
		if id == memberID {
			return true
		}
	}
	return false
}

func (s *Session) IsFull() bool {
	return len(s.ClientsEnrolled) >= s.MaxClients
}

// Joinable reports whether the status still accepts enrollments.
func (s *Session) Joinable() bool {
	return s.Status == StatusPending || s.Status == StatusConfirmed
}

// OwnedBy reports whether actor may manage the session.
func (s *Session) OwnedBy(actor auth.Identity) bool {
	return actor.IsAdmin() || actor.ID == s.TrainerID
}

type CreateSessionRequest struct {
	Date       string `json:"date" binding:"required"`
	Time       string `json:"time" binding:"required"`
	Type       string `json:"type" binding:"required,max=60"`
	MaxClients int    `json:"max_clients" binding:"required,min=1"`
	PriceCents int64  `json:"price_cents" binding:"gte=0"`
	TrainerID  *int64 `json:"trainer_id,omitempty"`
}

type UpdateSessionRequest struct {
	Date       *string `json:"date,omitempty"`
	Time       *string `json:"time,omitempty"`
	Type       *string `json:"type,omitempty" binding:"omitempty,max=60"`
	MaxClients *int    `json:"max_clients,omitempty" binding:"omitempty,min=1"`
	PriceCents *int64  `json:"price_cents,omitempty" binding:"omitempty,gte=0"`
}

type ListFilter struct {
	Type string
	Date *Date
}
