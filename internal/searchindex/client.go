package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/greecode/admin-portal/internal/model"
)

// Client pushes concerns to the search service. Best-effort; an empty baseURL disables it.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client with a 5s timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Enabled reports whether SEARCH_SERVICE_URL was set.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// IndexConcernPayload is the body of POST /search/index/concern.
type IndexConcernPayload struct {
	ConcernID    int64  `json:"concern_id"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Subject      string `json:"subject"`
	Status       string `json:"status"`
	ClosedReason string `json:"closed_reason,omitempty"`
	Text         string `json:"text"`
}

func payloadFor(cn *model.Concern) IndexConcernPayload {
	var text bytes.Buffer
	for _, m := range cn.Messages {
		if text.Len() > 0 {
			text.WriteByte('\n')
		}
		text.WriteString(m.Content)
	}
	p := IndexConcernPayload{
		ConcernID: int64(cn.ID),
		UserID:    cn.UserID,
		Name:      cn.Name,
		Email:     cn.Email,
		Subject:   cn.Subject,
		Status:    string(cn.Status),
		Text:      text.String(),
	}
	if cn.ClosedReason != nil {
		p.ClosedReason = string(*cn.ClosedReason)
	}
	return p
}

// IndexConcern posts one concern and returns any transport or status error.
func (c *Client) IndexConcern(ctx context.Context, cn *model.Concern) error {
	if c.baseURL == "" {
		return nil
	}
	body, err := json.Marshal(payloadFor(cn))
	if err != nil {
		return fmt.Errorf("searchindex: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search/index/concern", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("searchindex: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("searchindex: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("searchindex: status %d for concern %d", resp.StatusCode, cn.ID)
	}
	return nil
}

// IndexConcernAsync runs IndexConcern in a goroutine and logs failures.
func (c *Client) IndexConcernAsync(cn *model.Concern) {
	if c.baseURL == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.IndexConcern(ctx, cn); err != nil {
			log.Print(err)
		}
	}()
}
