package model

import (
	"strings"
	"time"

	"github.com/greecode/admin-portal/internal/errs"
)

// ConcernStatus is the workflow stage: pending → active → closed.
type ConcernStatus string

const (
	ConcernStatusPending ConcernStatus = "pending"
	ConcernStatusActive  ConcernStatus = "active"
	ConcernStatusClosed  ConcernStatus = "closed"
)

// ParseConcernStatus accepts only the three workflow states.
func ParseConcernStatus(s string) (ConcernStatus, bool) {
	switch st := ConcernStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case ConcernStatusPending, ConcernStatusActive, ConcernStatusClosed:
		return st, true
	}
	return "", false
}

// CloseReason is why an admin closed a concern.
type CloseReason string

const (
	CloseReasonUserNotResponding CloseReason = "user-not-responding"
	CloseReasonConcernSolved     CloseReason = "concern-solved"
	CloseReasonDuplicateRequest  CloseReason = "duplicate-request"
	CloseReasonOutOfScope        CloseReason = "out-of-scope"
)

// Valid reports whether r is one of the four known reasons.
func (r CloseReason) Valid() bool {
	switch r {
	case CloseReasonUserNotResponding, CloseReasonConcernSolved, CloseReasonDuplicateRequest, CloseReasonOutOfScope:
		return true
	}
	return false
}

// Sender is who wrote a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAdmin Sender = "admin"
)

// Valid accepts user and admin only.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAdmin
}

// Concern is a customer support request. Status only moves pending -> active -> closed.
type Concern struct {
	ID      uint64        `gorm:"primaryKey" json:"id"`
	UserID  string        `gorm:"index;not null" json:"user_id"`
	Name    string        `gorm:"type:varchar(255);not null" json:"name"`
	Email   string        `gorm:"type:varchar(255);index;not null" json:"email"`
	Subject string        `gorm:"type:varchar(255)" json:"subject"`
	Status  ConcernStatus `gorm:"type:varchar(32);index;not null" json:"status"`
	Version int64         `gorm:"not null;default:0" json:"version"`

	Messages []Message `gorm:"foreignKey:ConcernID" json:"messages"`

	ClosedReason  *CloseReason `gorm:"type:varchar(32)" json:"closed_reason,omitempty"`
	ClosedSummary *string      `gorm:"type:text" json:"closed_summary,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// Message is one entry of a concern thread. Seq is the 1-based insertion position.
type Message struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ConcernID uint64    `gorm:"uniqueIndex:idx_concern_messages_seq;not null" json:"concern_id"`
	Seq       int       `gorm:"uniqueIndex:idx_concern_messages_seq;not null" json:"seq"`
	Sender    Sender    `gorm:"type:varchar(16);not null" json:"sender"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
}

// TableName keeps messages in concern_messages.
func (Message) TableName() string { return "concern_messages" }

// Accept moves a pending concern to active.
func (c *Concern) Accept() error {
	if c.Status != ConcernStatusPending {
		return errs.ErrInvalidTransition
	}
	c.Status = ConcernStatusActive
	return nil
}

// AppendMessage adds m to the end of the thread and assigns its Seq.
func (c *Concern) AppendMessage(m *Message) error {
	if c.Status != ConcernStatusActive {
		return errs.ErrInvalidTransition
	}
	if !m.Sender.Valid() {
		return errs.ErrInvalidSender
	}
	if strings.TrimSpace(m.Content) == "" {
		return errs.ErrEmptyMessage
	}
	m.ConcernID = c.ID
	m.Seq = len(c.Messages) + 1
	c.Messages = append(c.Messages, *m)
	return nil
}

// Close is terminal. Reason and summary are both mandatory.
func (c *Concern) Close(reason CloseReason, summary string, now time.Time) error {
	if c.Status != ConcernStatusActive {
		return errs.ErrInvalidTransition
	}
	if !reason.Valid() {
		return errs.ErrCloseReasonRequired
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return errs.ErrCloseSummaryRequired
	}
	c.Status = ConcernStatusClosed
	c.ClosedReason = &reason
	c.ClosedSummary = &summary
	c.ClosedAt = &now
	return nil
}

// Clone returns a deep copy, so callers may mutate it without touching shared state.
func (c *Concern) Clone() *Concern {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = append([]Message(nil), c.Messages...)
	if c.ClosedReason != nil {
		r := *c.ClosedReason
		out.ClosedReason = &r
	}
	if c.ClosedSummary != nil {
		s := *c.ClosedSummary
		out.ClosedSummary = &s
	}
	if c.ClosedAt != nil {
		t := *c.ClosedAt
		out.ClosedAt = &t
	}
	return &out
}
