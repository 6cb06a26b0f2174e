package retry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DeadLetter is a message that exhausted its retries
type DeadLetter struct {
	ID             string            `json:"id"`
	OriginalTopic  string            `json:"original_topic"`
	OriginalKey    string            `json:"original_key"`
	Payload        json.RawMessage   `json:"payload"`
	Headers        map[string]string `json:"headers,omitempty"`
	Error          string            `json:"error"`
	Attempts       int               `json:"attempts"`
	FirstAttemptAt time.Time         `json:"first_attempt_at"`
	DeadAt         time.Time         `json:"dead_at"`
	Source         string            `json:"source"`
}

// DeadLetterSink receives messages that could not be processed
type DeadLetterSink interface {
	Send(ctx context.Context, msg *DeadLetter) error
}

// DeadLetterTopic is the naming convention for dead-letter topics
func DeadLetterTopic(topic string) string {
	return topic + ".dlq"
}

// Envelope identifies the message being processed
type Envelope struct {
	ID      string
	Topic   string
	Key     string
	Payload json.RawMessage
	Headers map[string]string
}

// DeadLetterHandler retries an operation and parks the message on failure
type DeadLetterHandler struct {
	retrier *Retrier
	sink    DeadLetterSink
	source  string
}

// NewDeadLetterHandler creates a handler. A nil sink drops failed messages.
func NewDeadLetterHandler(cfg *Config, sink DeadLetterSink, source string) *DeadLetterHandler {
	return &DeadLetterHandler{retrier: New(cfg), sink: sink, source: source}
}

// Process runs op with retry. When every attempt fails the message is sent to
// the sink and the original error is returned.
func (h *DeadLetterHandler) Process(ctx context.Context, env *Envelope, op Operation) error {
	first := time.Now()
	res := h.retrier.Do(ctx, op)
	if res.Err == nil {
		return nil
	}
	if h.sink == nil {
		return res.Err
	}

	cause := res.Err
	if res.LastError != nil {
		cause = res.LastError
	}
	msg := &DeadLetter{
		ID:             env.ID,
		OriginalTopic:  env.Topic,
		OriginalKey:    env.Key,
		Payload:        env.Payload,
		Headers:        env.Headers,
		Error:          cause.Error(),
		Attempts:       res.Attempts,
		FirstAttemptAt: first,
		DeadAt:         time.Now(),
		Source:         h.source,
	}
	if err := h.sink.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to dead-letter message %s: %w (cause: %v)", env.ID, err, cause)
	}
	return res.Err
}
