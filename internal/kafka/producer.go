package kafka

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes concern and session events to one topic. Best-effort: failures are logged
// and never reach the caller.
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer returns a no-op producer when brokers or topic are empty.
func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 || topic == "" {
		return &Producer{}
	}
	return &Producer{
		topic: topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Enabled is false for the no-op producer.
func (p *Producer) Enabled() bool {
	return p.writer != nil
}

// ProduceEvent sends {"event": event, ...payload}. Keyed by concern_id or session_id when present
// so events of one entity stay ordered within a partition.
func (p *Producer) ProduceEvent(ctx context.Context, event string, payload map[string]interface{}) {
	if p.writer == nil {
		return
	}
	msg := map[string]interface{}{"event": event}
	for k, v := range payload {
		msg[k] = v
	}
	body, err := json.Marshal(msg)
	if err != nil {
		log.Printf("kafka: marshal %s: %v", event, err)
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: eventKey(payload), Value: body}); err != nil {
		log.Printf("kafka: write %s: %v", event, err)
	}
}

func eventKey(payload map[string]interface{}) []byte {
	for _, k := range []string{"concern_id", "session_id"} {
		if v, ok := payload[k]; ok {
			b, err := json.Marshal(v)
			if err == nil {
				return b
			}
		}
	}
	return nil
}

// Close flushes pending messages.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// ParseBrokers splits "host1:9092,host2:9092".
func ParseBrokers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
