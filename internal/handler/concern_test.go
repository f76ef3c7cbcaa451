package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greecode/admin-portal/internal/model"
	"github.com/greecode/admin-portal/internal/repository"
	"github.com/greecode/admin-portal/internal/service"
)

func newConcernClient(t *testing.T) *testClient {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewConcernHandler(service.NewConcernService(repository.NewMemoryConcernRepository(), nil, nil))
	r := gin.New()
	r.POST("/concerns", h.Create)
	r.GET("/concerns", h.List)
	r.GET("/concerns/summary", h.Summary)
	r.GET("/concerns/:id", h.Get)
	r.POST("/concerns/:id/accept", h.Accept)
	r.POST("/concerns/:id/messages", h.SendMessage)
	r.POST("/concerns/:id/close", h.Close)
	r.POST("/support/concerns/:id/messages", h.RequesterReply)
	return &testClient{h: r}
}

func createConcern(t *testing.T, c *testClient, name string) model.Concern {
	t.Helper()
	w := c.do(t, http.MethodPost, "/concerns", gin.H{
		"user_id": "u-" + name,
		"name":    name,
		"email":   name + "@example.com",
		"subject": "Billing",
		"message": "Hello, I need help",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var concern model.Concern
	decodeBody(t, w, &concern)
	return concern
}

func TestConcernHandler_Create(t *testing.T) {
	c := newConcernClient(t)
	concern := createConcern(t, c, "alice")
	assert.NotZero(t, concern.ID)
	assert.Equal(t, model.ConcernStatusPending, concern.Status)
	require.Len(t, concern.Messages, 1)
	assert.Equal(t, model.SenderUser, concern.Messages[0].Sender)

	w := c.do(t, http.MethodPost, "/concerns", gin.H{"user_id": "u", "name": "n", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConcernHandler_Workflow(t *testing.T) {
	c := newConcernClient(t)
	concern := createConcern(t, c, "bob")
	base := fmt.Sprintf("/concerns/%d", concern.ID)

	w := c.do(t, http.MethodPost, base+"/messages", gin.H{"content": "too early"})
	assert.Equal(t, http.StatusConflict, w.Code, "messages need an active concern")

	require.Equal(t, http.StatusOK, c.do(t, http.MethodPost, base+"/accept", nil).Code)
	assert.Equal(t, http.StatusConflict, c.do(t, http.MethodPost, base+"/accept", nil).Code)

	w = c.do(t, http.MethodPost, base+"/messages", gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(t, http.MethodPost, base+"/messages", gin.H{"content": "We are on it"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated model.Concern
	decodeBody(t, w, &updated)
	require.Len(t, updated.Messages, 2)
	assert.Equal(t, model.SenderAdmin, updated.Messages[1].Sender)
	assert.Equal(t, 2, updated.Messages[1].Seq)

	w = c.do(t, http.MethodPost, base+"/close", gin.H{"reason": "concern-solved"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = c.do(t, http.MethodPost, base+"/close", gin.H{"reason": "because", "summary": "done"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(t, http.MethodGet, base, nil)
	decodeBody(t, w, &updated)
	assert.Equal(t, model.ConcernStatusActive, updated.Status, "failed close leaves the concern active")

	w = c.do(t, http.MethodPost, base+"/close", gin.H{"reason": "concern-solved", "summary": "Refund issued"})
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &updated)
	assert.Equal(t, model.ConcernStatusClosed, updated.Status)
	require.NotNil(t, updated.ClosedReason)
	assert.Equal(t, model.CloseReasonConcernSolved, *updated.ClosedReason)

	assert.Equal(t, http.StatusConflict, c.do(t, http.MethodPost, base+"/close", gin.H{"reason": "concern-solved", "summary": "again"}).Code)
	assert.Equal(t, http.StatusConflict, c.do(t, http.MethodPost, base+"/messages", gin.H{"content": "late"}).Code)
}

func TestConcernHandler_NotFoundAndBadID(t *testing.T) {
	c := newConcernClient(t)
	assert.Equal(t, http.StatusNotFound, c.do(t, http.MethodGet, "/concerns/99", nil).Code)
	assert.Equal(t, http.StatusNotFound, c.do(t, http.MethodPost, "/concerns/99/accept", nil).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(t, http.MethodGet, "/concerns/abc", nil).Code)
}

func TestConcernHandler_ListAndSummary(t *testing.T) {
	c := newConcernClient(t)
	first := createConcern(t, c, "carol")
	createConcern(t, c, "dave")
	require.Equal(t, http.StatusOK, c.do(t, http.MethodPost, fmt.Sprintf("/concerns/%d/accept", first.ID), nil).Code)

	var byStatus struct {
		Concerns []model.Concern `json:"concerns"`
		Total    int             `json:"total"`
	}
	decodeBody(t, c.do(t, http.MethodGet, "/concerns?status=pending", nil), &byStatus)
	assert.Equal(t, 1, byStatus.Total)
	assert.Equal(t, "dave", byStatus.Concerns[0].Name)

	assert.Equal(t, http.StatusBadRequest, c.do(t, http.MethodGet, "/concerns?status=archived", nil).Code)

	var partition service.Partition
	decodeBody(t, c.do(t, http.MethodGet, "/concerns", nil), &partition)
	assert.Len(t, partition.Pending, 1)
	assert.Len(t, partition.Active, 1)
	assert.Empty(t, partition.Closed)

	var summary map[string]int64
	decodeBody(t, c.do(t, http.MethodGet, "/concerns/summary", nil), &summary)
	assert.Equal(t, map[string]int64{"pending": 1, "active": 1, "closed": 0}, summary)
}

func TestConcernHandler_RequesterReply(t *testing.T) {
	c := newConcernClient(t)
	concern := createConcern(t, c, "erin")
	reply := fmt.Sprintf("/support/concerns/%d/messages", concern.ID)

	w := c.do(t, http.MethodPost, reply, gin.H{"user_id": "u-erin", "content": "Any news?"})
	assert.Equal(t, http.StatusConflict, w.Code, "pending concerns take no replies")

	require.Equal(t, http.StatusOK, c.do(t, http.MethodPost, fmt.Sprintf("/concerns/%d/accept", concern.ID), nil).Code)

	w = c.do(t, http.MethodPost, reply, gin.H{"user_id": "u-mallory", "content": "Hijack"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = c.do(t, http.MethodPost, reply, gin.H{"content": "no owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(t, http.MethodPost, reply, gin.H{"user_id": "u-erin", "content": "Any news?"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated model.Concern
	decodeBody(t, w, &updated)
	require.Len(t, updated.Messages, 2)
	assert.Equal(t, model.SenderUser, updated.Messages[1].Sender)
	assert.Equal(t, "Any news?", updated.Messages[1].Content)
}
