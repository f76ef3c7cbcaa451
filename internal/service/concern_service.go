package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/greecode/admin-portal/internal/errs"
	"github.com/greecode/admin-portal/internal/model"
	"github.com/greecode/admin-portal/internal/repository"
)

// ConcernServicer is what the HTTP layer depends on.
type ConcernServicer interface {
	Create(ctx context.Context, in Intake) (*model.Concern, error)
	Get(ctx context.Context, id uint64) (*model.Concern, error)
	ListByStatus(ctx context.Context, status model.ConcernStatus) ([]model.Concern, error)
	Partition(ctx context.Context) (*Partition, error)
	Summary(ctx context.Context) (map[model.ConcernStatus]int64, error)
	Accept(ctx context.Context, id uint64) (*model.Concern, error)
	SendMessage(ctx context.Context, id uint64, content string, sender model.Sender) (*model.Concern, error)
	Close(ctx context.Context, id uint64, reason model.CloseReason, summary string) (*model.Concern, error)
}

// EventProducer receives best-effort notifications about concern changes.
type EventProducer interface {
	ProduceEvent(ctx context.Context, event string, payload map[string]interface{})
}

// Indexer pushes concerns to the search service.
type Indexer interface {
	IndexConcernAsync(c *model.Concern)
}

// Intake is a new concern as submitted by a requester.
type Intake struct {
	UserID  string
	Name    string
	Email   string
	Subject string
	Message string
}

// Partition splits the collection by workflow state.
type Partition struct {
	Pending []model.Concern `json:"pending"`
	Active  []model.Concern `json:"active"`
	Closed  []model.Concern `json:"closed"`
}

// ConcernService runs the support concern workflow on top of a ConcernRepository.
type ConcernService struct {
	repo     repository.ConcernRepository
	producer EventProducer
	search   Indexer
	now      func() time.Time
}

// NewConcernService wires the workflow. producer and search may be nil.
func NewConcernService(repo repository.ConcernRepository, producer EventProducer, search Indexer) *ConcernService {
	return &ConcernService{
		repo:     repo,
		producer: producer,
		search:   search,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a pending concern; a non-empty intake message becomes the first user message.
func (s *ConcernService) Create(ctx context.Context, in Intake) (*model.Concern, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.UserID == "" || in.Name == "" || in.Email == "" {
		return nil, fmt.Errorf("intake: %w", errs.ErrIncompleteIntake)
	}
	c := &model.Concern{
		UserID:    in.UserID,
		Name:      in.Name,
		Email:     in.Email,
		Subject:   strings.TrimSpace(in.Subject),
		Status:    model.ConcernStatusPending,
		CreatedAt: s.now(),
	}
	if msg := strings.TrimSpace(in.Message); msg != "" {
		c.Messages = []model.Message{{
			ID:        uuid.NewString(),
			Seq:       1,
			Sender:    model.SenderUser,
			Content:   msg,
			Timestamp: c.CreatedAt,
		}}
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create concern: %w", err)
	}
	log.Printf("concern-service: created concern %d (%s)", c.ID, c.Email)
	s.notify(ctx, "concern.created", c)
	return c, nil
}

func (s *ConcernService) Get(ctx context.Context, id uint64) (*model.Concern, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ConcernService) ListByStatus(ctx context.Context, status model.ConcernStatus) ([]model.Concern, error) {
	return s.repo.ListByStatus(ctx, status)
}

// Partition lists all three statuses.
func (s *ConcernService) Partition(ctx context.Context) (*Partition, error) {
	var p Partition
	var err error
	if p.Pending, err = s.repo.ListByStatus(ctx, model.ConcernStatusPending); err != nil {
		return nil, err
	}
	if p.Active, err = s.repo.ListByStatus(ctx, model.ConcernStatusActive); err != nil {
		return nil, err
	}
	if p.Closed, err = s.repo.ListByStatus(ctx, model.ConcernStatusClosed); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ConcernService) Summary(ctx context.Context) (map[model.ConcernStatus]int64, error) {
	return s.repo.CountByStatus(ctx)
}

// Accept moves a pending concern to active. A second accept returns errs.ErrInvalidTransition.
func (s *ConcernService) Accept(ctx context.Context, id uint64) (*model.Concern, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	version := c.Version
	if err := c.Accept(); err != nil {
		return nil, err
	}
	if err := s.repo.SaveTransition(ctx, c, version); err != nil {
		return nil, staleAsInvalid(err)
	}
	log.Printf("concern-service: accepted concern %d", id)
	s.notify(ctx, "concern.accepted", c)
	return c, nil
}

// SendMessage appends a message to an active concern.
func (s *ConcernService) SendMessage(ctx context.Context, id uint64, content string, sender model.Sender) (*model.Concern, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	version := c.Version
	m := &model.Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Content:   content,
		Timestamp: s.now(),
	}
	if err := c.AppendMessage(m); err != nil {
		return nil, err
	}
	if err := s.repo.AppendMessage(ctx, c, m, version); err != nil {
		return nil, staleAsInvalid(err)
	}
	s.notify(ctx, "concern.message", c)
	return c, nil
}

// Close is irreversible. Reason and summary are validated before anything is written.
func (s *ConcernService) Close(ctx context.Context, id uint64, reason model.CloseReason, summary string) (*model.Concern, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	version := c.Version
	if err := c.Close(reason, summary, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.SaveTransition(ctx, c, version); err != nil {
		return nil, staleAsInvalid(err)
	}
	log.Printf("concern-service: closed concern %d (%s)", id, reason)
	s.notify(ctx, "concern.closed", c)
	return c, nil
}

func staleAsInvalid(err error) error {
	if errors.Is(err, errs.ErrConcurrentUpdate) {
		return fmt.Errorf("%w: %w", errs.ErrInvalidTransition, err)
	}
	return err
}

func (s *ConcernService) notify(ctx context.Context, event string, c *model.Concern) {
	if s.producer != nil {
		// Detached from the request so the event survives client cancellation.
		eventCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		payload := ConcernEventPayload(c)
		go func() {
			defer cancel()
			s.producer.ProduceEvent(eventCtx, event, payload)
		}()
	}
	if s.search != nil {
		s.search.IndexConcernAsync(c.Clone())
	}
}

// ConcernEventPayload is the event body shared by the Kafka producer and the reindex command.
func ConcernEventPayload(c *model.Concern) map[string]interface{} {
	if c == nil {
		return nil
	}
	payload := map[string]interface{}{
		"concern_id":    int64(c.ID),
		"user_id":       c.UserID,
		"email":         c.Email,
		"subject":       c.Subject,
		"status":        string(c.Status),
		"message_count": len(c.Messages),
		"version":       c.Version,
	}
	if c.ClosedReason != nil {
		payload["closed_reason"] = string(*c.ClosedReason)
	}
	if c.ClosedAt != nil {
		payload["closed_at"] = c.ClosedAt.Format(time.RFC3339)
	}
	return payload
}
