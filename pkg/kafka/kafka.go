package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is an outgoing record
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Record is a consumed record
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time

	raw *kgo.Record
}

// ProducerConfig configures a Producer
type ProducerConfig struct {
	Brokers       []string
	ClientID      string
	MaxRetries    int
	RetryInterval time.Duration
}

// Producer publishes records synchronously
type Producer struct {
	client *kgo.Client
}

// NewProducer connects and pings the cluster
func NewProducer(ctx context.Context, cfg *ProducerConfig) (*Producer, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka producer requires brokers")
	}
	client, err := connect(ctx, cfg.MaxRetries, cfg.RetryInterval,
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}
	return &Producer{client: client}, nil
}

// Produce writes one message and waits for the broker ack
func (p *Producer) Produce(ctx context.Context, msg *Message) error {
	rec := &kgo.Record{Topic: msg.Topic, Key: msg.Key, Value: msg.Value}
	for k, v := range msg.Headers {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", msg.Topic, err)
	}
	return nil
}

// ProduceJSON marshals v and produces it
func (p *Producer) ProduceJSON(ctx context.Context, topic, key string, v interface{}, headers map[string]string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if headers == nil {
		headers = map[string]string{}
	}
	headers["content_type"] = "application/json"
	return p.Produce(ctx, &Message{Topic: topic, Key: []byte(key), Value: data, Headers: headers})
}

// Close flushes and closes the client
func (p *Producer) Close() {
	p.client.Close()
}

// ConsumerConfig configures a group Consumer
type ConsumerConfig struct {
	Brokers        []string
	GroupID        string
	Topics         []string
	ClientID       string
	MaxRetries     int
	RetryInterval  time.Duration
	SessionTimeout time.Duration
}

// Consumer reads from a consumer group with manual commits
type Consumer struct {
	client *kgo.Client
}

// NewConsumer joins the group. Offsets are committed explicitly via CommitRecords.
func NewConsumer(ctx context.Context, cfg *ConsumerConfig) (*Consumer, error) {
	if cfg == nil || len(cfg.Brokers) == 0 || cfg.GroupID == "" || len(cfg.Topics) == 0 {
		return nil, errors.New("kafka consumer requires brokers, group and topics")
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	}
	if cfg.SessionTimeout > 0 {
		opts = append(opts, kgo.SessionTimeout(cfg.SessionTimeout))
	}
	client, err := connect(ctx, cfg.MaxRetries, cfg.RetryInterval, opts...)
	if err != nil {
		return nil, err
	}
	return &Consumer{client: client}, nil
}

// Poll blocks until records arrive or ctx ends
func (c *Consumer) Poll(ctx context.Context) ([]*Record, error) {
	fetches := c.client.PollFetches(ctx)
	if fetches.IsClientClosed() {
		return nil, errors.New("kafka client closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if errs := fetches.Errors(); len(errs) > 0 {
		e := errs[0]
		return nil, fmt.Errorf("fetch %s[%d]: %w", e.Topic, e.Partition, e.Err)
	}

	var out []*Record
	fetches.EachRecord(func(r *kgo.Record) {
		rec := &Record{
			Topic:     r.Topic,
			Partition: r.Partition,
			Offset:    r.Offset,
			Key:       r.Key,
			Value:     r.Value,
			Timestamp: r.Timestamp,
			Headers:   make(map[string]string, len(r.Headers)),
			raw:       r,
		}
		for _, h := range r.Headers {
			rec.Headers[h.Key] = string(h.Value)
		}
		out = append(out, rec)
	})
	return out, nil
}

// CommitRecords commits the offsets of the given records
func (c *Consumer) CommitRecords(ctx context.Context, records []*Record) error {
	raws := make([]*kgo.Record, 0, len(records))
	for _, r := range records {
		if r.raw != nil {
			raws = append(raws, r.raw)
		}
	}
	if len(raws) == 0 {
		return nil
	}
	return c.client.CommitRecords(ctx, raws...)
}

// Close leaves the group and closes the client
func (c *Consumer) Close() {
	c.client.Close()
}

func connect(ctx context.Context, maxRetries int, interval time.Duration, opts ...kgo.Opt) (*kgo.Client, error) {
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	if interval <= 0 {
		interval = time.Second
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(interval)
		}
		if lastErr = client.Ping(ctx); lastErr == nil {
			return client, nil
		}
	}
	client.Close()
	return nil, fmt.Errorf("failed to reach kafka after %d attempts: %w", maxRetries+1, lastErr)
}
