package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greecode/admin-portal/internal/errs"
)

func pendingConcern() *Concern {
	return &Concern{ID: 7, UserID: "u-1", Name: "Asha", Email: "asha@example.com", Subject: "Billing", Status: ConcernStatusPending}
}

func TestConcern_Accept(t *testing.T) {
	c := pendingConcern()
	require.NoError(t, c.Accept())
	assert.Equal(t, ConcernStatusActive, c.Status)

	err := c.Accept()
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	assert.Equal(t, ConcernStatusActive, c.Status)
}

func TestConcern_AppendMessage(t *testing.T) {
	t.Run("pending concern rejects messages", func(t *testing.T) {
		c := pendingConcern()
		err := c.AppendMessage(&Message{Sender: SenderAdmin, Content: "hi"})
		assert.ErrorIs(t, err, errs.ErrInvalidTransition)
		assert.Empty(t, c.Messages)
	})

	t.Run("keeps insertion order", func(t *testing.T) {
		c := pendingConcern()
		require.NoError(t, c.Accept())
		require.NoError(t, c.AppendMessage(&Message{ID: "a", Sender: SenderAdmin, Content: "A"}))
		require.NoError(t, c.AppendMessage(&Message{ID: "b", Sender: SenderUser, Content: "B"}))

		require.Len(t, c.Messages, 2)
		assert.Equal(t, "A", c.Messages[0].Content)
		assert.Equal(t, 1, c.Messages[0].Seq)
		assert.Equal(t, "B", c.Messages[1].Content)
		assert.Equal(t, 2, c.Messages[1].Seq)
		assert.Equal(t, uint64(7), c.Messages[1].ConcernID)
	})

	t.Run("validates sender and content", func(t *testing.T) {
		c := pendingConcern()
		require.NoError(t, c.Accept())
		assert.ErrorIs(t, c.AppendMessage(&Message{Sender: "bot", Content: "x"}), errs.ErrInvalidSender)
		assert.ErrorIs(t, c.AppendMessage(&Message{Sender: SenderAdmin, Content: "  "}), errs.ErrEmptyMessage)
		assert.Empty(t, c.Messages)
	})
}

func TestConcern_Close(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		reason  CloseReason
		summary string
		wantErr error
	}{
		{name: "missing reason", reason: "", summary: "summary", wantErr: errs.ErrCloseReasonRequired},
		{name: "unknown reason", reason: "bored", summary: "summary", wantErr: errs.ErrCloseReasonRequired},
		{name: "blank summary", reason: CloseReasonConcernSolved, summary: "   ", wantErr: errs.ErrCloseSummaryRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := pendingConcern()
			require.NoError(t, c.Accept())
			err := c.Close(tt.reason, tt.summary, now)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, ConcernStatusActive, c.Status)
			assert.Nil(t, c.ClosedReason)
			assert.Nil(t, c.ClosedSummary)
			assert.Nil(t, c.ClosedAt)
		})
	}

	t.Run("pending concern cannot be closed", func(t *testing.T) {
		c := pendingConcern()
		assert.ErrorIs(t, c.Close(CloseReasonConcernSolved, "done", now), errs.ErrInvalidTransition)
		assert.Equal(t, ConcernStatusPending, c.Status)
	})

	t.Run("active concern closes and becomes immutable", func(t *testing.T) {
		c := pendingConcern()
		require.NoError(t, c.Accept())
		require.NoError(t, c.Close(CloseReasonConcernSolved, "done", now))

		assert.Equal(t, ConcernStatusClosed, c.Status)
		require.NotNil(t, c.ClosedReason)
		assert.Equal(t, CloseReasonConcernSolved, *c.ClosedReason)
		require.NotNil(t, c.ClosedSummary)
		assert.Equal(t, "done", *c.ClosedSummary)
		require.NotNil(t, c.ClosedAt)
		assert.True(t, c.ClosedAt.Equal(now))

		assert.ErrorIs(t, c.AppendMessage(&Message{Sender: SenderAdmin, Content: "late"}), errs.ErrInvalidTransition)
		assert.ErrorIs(t, c.Close(CloseReasonOutOfScope, "again", now.Add(time.Hour)), errs.ErrInvalidTransition)
		assert.Equal(t, CloseReasonConcernSolved, *c.ClosedReason)
		assert.True(t, c.ClosedAt.Equal(now))
		assert.Empty(t, c.Messages)
	})
}

func TestConcern_Clone(t *testing.T) {
	c := pendingConcern()
	require.NoError(t, c.Accept())
	require.NoError(t, c.AppendMessage(&Message{Sender: SenderUser, Content: "hello"}))

	cp := c.Clone()
	require.NoError(t, cp.AppendMessage(&Message{Sender: SenderAdmin, Content: "reply"}))
	assert.Len(t, c.Messages, 1)
	assert.Len(t, cp.Messages, 2)
}

func TestParseConcernStatus(t *testing.T) {
	st, ok := ParseConcernStatus(" Active ")
	assert.True(t, ok)
	assert.Equal(t, ConcernStatusActive, st)

	_, ok = ParseConcernStatus("in_progress")
	assert.False(t, ok)
}
