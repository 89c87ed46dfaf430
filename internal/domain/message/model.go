package message

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("message request not found")
	ErrInvalid  = errors.New("invalid message request")
)

// Kinds of generated messages.
const (
	KindFollowUp    = "follow_up"
	KindReminder    = "appointment_reminder"
	KindAftercare   = "aftercare"
	KindCustom      = "custom"
	maxStatusLookup = 100
)

var validKinds = map[string]bool{KindFollowUp: true, KindReminder: true, KindAftercare: true, KindCustom: true}

// Request asks the external worker to generate a message for a patient.
type Request struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ResidentID     string     `db:"resident_id" json:"resident_id"`
	ConsultationID *uuid.UUID `db:"consultation_id" json:"consultation_id,omitempty"`
	Kind           string     `db:"kind" json:"kind"`
	Prompt         *string    `db:"prompt" json:"prompt,omitempty"`
	RequestedBy    *string    `db:"requested_by" json:"requested_by,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Stored is the text the worker produced for a request.
type Stored struct {
	ID        uuid.UUID `db:"id" json:"id"`
	RequestID uuid.UUID `db:"request_id" json:"request_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Status reports whether a request has been fulfilled.
type Status struct {
	RequestID   uuid.UUID  `json:"request_id"`
	Done        bool       `json:"done"`
	Content     string     `json:"content,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func statusOf(id uuid.UUID, s *Stored) Status {
	if s == nil {
		return Status{RequestID: id}
	}
	at := s.CreatedAt
	return Status{RequestID: id, Done: true, Content: s.Content, CompletedAt: &at}
}
