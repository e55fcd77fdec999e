package redisstore

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-reports-dashboard/components/dashboard"
)

func TestStoreRoundTrip(t *testing.T) {
	client := newFakeClient()
	store := New(client, WithTTL(time.Hour))
	ctx := context.Background()

	_, err := store.Get(ctx, "user-1")
	require.ErrorIs(t, err, dashboard.ErrDocumentNotFound)

	doc := dashboard.Document{
		Layouts: dashboard.Layouts{dashboard.BreakpointLarge: {{ID: "report-1", W: 4, H: 4}}},
		Reports: map[string]dashboard.Report{"report-1": {DataSource: dashboard.DataSourceCompanies, Visualization: dashboard.VisualizationCount}},
		Version: 2,
	}
	require.NoError(t, store.Put(ctx, "user-1", doc))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, doc.Layouts, got.Layouts)
	assert.Equal(t, doc.Reports, got.Reports)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, time.Hour, client.ttl["reportboard:dashboard:user-1"])
}

func TestStorePrefixAndErrors(t *testing.T) {
	client := newFakeClient()
	store := New(client, WithPrefix("test:"))
	assert.Equal(t, "test:user-1", store.Key("user-1"))

	client.data["test:user-1"] = "{not json"
	_, err := store.Get(context.Background(), "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")

	client.err = errors.New("connection refused")
	err = store.Put(context.Background(), "user-1", dashboard.Document{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	_, err = store.Get(context.Background(), "")
	assert.ErrorIs(t, err, dashboard.ErrMissingUser)
}

func TestStoreAgainstLiveRedis(t *testing.T) {
	addr := os.Getenv("REPORTBOARD_REDIS_ADDR")
	if addr == "" {
		t.Skip("REPORTBOARD_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, client, err := Dial(ctx, addr, os.Getenv("REPORTBOARD_REDIS_PASSWORD"), 0, WithPrefix("reportboard:test:"), WithTTL(time.Minute))
	require.NoError(t, err)
	defer client.Close()

	doc := dashboard.Document{Reports: map[string]dashboard.Report{"r": {DataSource: dashboard.DataSourceGraduates, Visualization: dashboard.VisualizationPie}}}
	require.NoError(t, store.Put(ctx, "live", doc))
	got, err := store.Get(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, doc.Reports, got.Reports)
}

type fakeClient struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
	err  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	val, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}
