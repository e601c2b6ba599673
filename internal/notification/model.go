package notification

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"fitstudio/internal/auth"
)

const (
	TypeSessionJoined    = "session_joined"
	TypeNewBooking       = "new_booking"
	TypeSessionCancelled = "session_cancelled"
	TypePaymentReceived  = "payment_received"
	TypeRevenue          = "revenue"
)

// Data is free-form JSON context attached to a notification.
type Data map[string]any

func (d Data) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

func (d *Data) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*d = Data{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("notification: unsupported data type")
	}
	return json.Unmarshal(b, d)
}

// Notification is addressed to one account, or to every account of Role when
// RecipientUserID is nil.
type Notification struct {
	ID              int64     `db:"id" json:"id"`
	RecipientUserID *int64    `db:"recipient_user_id" json:"recipient_user_id"`
	Role            auth.Role `db:"role" json:"role"`
	Type            string    `db:"type" json:"type"`
	Title           string    `db:"title" json:"title"`
	Message         string    `db:"message" json:"message"`
	Data            Data      `db:"data" json:"data"`
	IsRead          bool      `db:"is_read" json:"is_read"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// To builds a personal notification.
func To(recipientID int64, role auth.Role, typ, title, message string, data Data) Notification {
	return Notification{
		RecipientUserID: &recipientID,
		Role:            role,
		Type:            typ,
		Title:           title,
		Message:         message,
		Data:            data,
	}
}

// Broadcast builds a notification visible to every account with role.
func Broadcast(role auth.Role, typ, title, message string, data Data) Notification {
	return Notification{
		Role:    role,
		Type:    typ,
		Title:   title,
		Message: message,
		Data:    data,
	}
}

type job struct {
	Notification Notification `json:"notification"`
	Tries        int          `json:"tries"`
	Created      time.Time    `json:"created"`
}
