package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/eventhub/internal/clock"
	"github.com/prohmpiriya/eventhub/internal/domain"
	"github.com/prohmpiriya/eventhub/internal/dto"
	"github.com/prohmpiriya/eventhub/internal/handler"
	"github.com/prohmpiriya/eventhub/internal/publisher"
	"github.com/prohmpiriya/eventhub/internal/service"
	"github.com/prohmpiriya/eventhub/internal/worker"
	"github.com/prohmpiriya/eventhub/pkg/config"
)

func testConfig(dispatch string) *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "eventhub"
	cfg.Storage.Driver = "memory"
	cfg.Stats.Dispatch = dispatch
	cfg.Stats.Workers = 2
	cfg.Stats.QueueSize = 16
	cfg.Booking.MaxRetries = 2
	cfg.Booking.InitialInterval = time.Millisecond
	cfg.Booking.MaxInterval = 5 * time.Millisecond
	cfg.Booking.Timeout = time.Second
	return cfg
}

func TestNewContainer_MemoryInline(t *testing.T) {
	c, err := NewContainer(context.Background(), &ContainerConfig{
		Config: testConfig("inline"),
		Clock:  clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	assert.IsType(t, &service.InlineDispatcher{}, c.Dispatcher)
	assert.IsType(t, &publisher.NoOpPublisher{}, c.Publisher)
	assert.Nil(t, c.EventCache)
	assert.Nil(t, c.StatsPool)
	require.NotNil(t, c.Handlers)

	rc := c.RouterConfig()
	assert.Nil(t, rc.Idempotency.Store)
	assert.Empty(t, rc.JWT.Secret)

	u, err := c.UserService.CreateUser(context.Background(), &dto.CreateUserRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	got, err := c.UserService.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
}

func TestNewContainer_AsyncPool(t *testing.T) {
	c, err := NewContainer(context.Background(), &ContainerConfig{Config: testConfig("async")})
	require.NoError(t, err)

	require.NotNil(t, c.StatsPool)
	assert.IsType(t, &worker.StatsPool{}, c.Dispatcher)

	c.Dispatcher.Dispatch(context.Background(), domain.StatsJob{Kind: domain.JobEventAttendance, TargetID: "missing"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, c.Close(ctx))
}

func TestNewContainer_Errors(t *testing.T) {
	_, err := NewContainer(context.Background(), nil)
	assert.Error(t, err)

	cfg := testConfig("kafka")
	_, err = NewContainer(context.Background(), &ContainerConfig{Config: cfg})
	assert.ErrorContains(t, err, "kafka producer")

	cfg = testConfig("inline")
	cfg.Storage.Driver = "postgres"
	_, err = NewContainer(context.Background(), &ContainerConfig{Config: cfg})
	assert.ErrorContains(t, err, "database connection")

	cfg = testConfig("inline")
	cfg.Storage.Driver = "sqlite"
	_, err = NewContainer(context.Background(), &ContainerConfig{Config: cfg})
	assert.Error(t, err)

	cfg = testConfig("carrier-pigeon")
	_, err = NewContainer(context.Background(), &ContainerConfig{Config: cfg})
	assert.Error(t, err)
}

func TestContainer_ServesRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, err := NewContainer(context.Background(), &ContainerConfig{Config: testConfig("inline")})
	require.NoError(t, err)

	router := handler.NewRouter(c.Handlers, c.RouterConfig())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/venues", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
