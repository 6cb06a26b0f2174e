package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/pkg/kafka"
)

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) Produce(ctx context.Context, msg *kafka.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := &mockProducer{}
	var sent *kafka.Message
	producer.On("Produce", mock.Anything, mock.AnythingOfType("*kafka.Message")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*kafka.Message) }).
		Return(nil)

	p := NewKafkaPublisher(producer, &Config{Source: "api"})
	event := domain.NewDomainEvent(domain.CheckinRecorded, "event-1", time.Now(), map[string]interface{}{"tier": "GA"})
	require.NoError(t, p.Publish(context.Background(), event))

	require.NotNil(t, sent)
	assert.Equal(t, DefaultDomainEventTopic, sent.Topic)
	assert.Equal(t, "event-1", string(sent.Key))
	assert.Equal(t, "checkin.recorded", sent.Headers["event_type"])
	assert.Equal(t, "api", sent.Headers["source"])

	var decoded domain.DomainEvent
	require.NoError(t, json.Unmarshal(sent.Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.NoError(t, p.Close())
	producer.AssertExpectations(t)
}

func TestKafkaPublisher_WrapsProduceError(t *testing.T) {
	producer := &mockProducer{}
	producer.On("Produce", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	p := NewKafkaPublisher(producer, nil)
	err := p.Publish(context.Background(), domain.NewDomainEvent(domain.VenueUpdated, "v", time.Now(), nil))
	assert.ErrorContains(t, err, "broker down")
}

func TestKafkaStatsDispatcher_ProducesEveryJob(t *testing.T) {
	producer := &mockProducer{}
	producer.On("Produce", mock.Anything, mock.Anything).Return(errors.New("first fails")).Once()
	producer.On("Produce", mock.Anything, mock.Anything).Return(nil).Once()

	d := NewKafkaStatsDispatcher(producer, "")
	d.Dispatch(context.Background(),
		domain.StatsJob{Kind: domain.JobEventAttendance, TargetID: "e1"},
		domain.StatsJob{Kind: domain.JobVenueHostingStats, TargetID: "v1"},
	)

	producer.AssertNumberOfCalls(t, "Produce", 2)
	last := producer.Calls[1].Arguments.Get(1).(*kafka.Message)
	assert.Equal(t, DefaultStatsTopic, last.Topic)
	assert.Equal(t, "v1", string(last.Key))
}

func TestNoOpPublisher(t *testing.T) {
	p := NewNoOpPublisher()
	assert.NoError(t, p.Publish(context.Background(), nil))
	assert.NoError(t, p.Close())
}
