package mongostore

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/goliatone/go-reports-dashboard/components/dashboard"
)

func TestStoreRoundTripsThroughBSON(t *testing.T) {
	coll := newFakeCollection()
	store := NewWithCollection(coll)
	ctx := context.Background()

	_, err := store.Get(ctx, "user-1")
	require.ErrorIs(t, err, dashboard.ErrDocumentNotFound)

	doc := sampleDocument()
	require.NoError(t, store.Put(ctx, "user-1", doc))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, doc.Layouts, got.Layouts)
	assert.Equal(t, doc.Reports, got.Reports)
	assert.Equal(t, uint64(5), got.Version)

	raw := coll.raw("user-1")
	assert.Equal(t, "report-1", raw.Lookup("layouts", "lg", "0", "i").StringValue())
	assert.Equal(t, "graduates", raw.Lookup("reports", "report-1", "data_source").StringValue())
}

func TestStorePutOverwritesWholeDocument(t *testing.T) {
	coll := newFakeCollection()
	store := NewWithCollection(coll)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "user-1", sampleDocument()))
	require.NoError(t, store.Put(ctx, "user-1", dashboard.Document{Version: 6}))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, got.Reports)
	assert.Empty(t, got.Layouts)
	assert.True(t, coll.upserts > 0)
}

func TestStoreWrapsDriverErrors(t *testing.T) {
	coll := newFakeCollection()
	coll.err = errors.New("server selection timeout")
	store := NewWithCollection(coll)

	err := store.Put(context.Background(), "user-1", sampleDocument())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server selection timeout")

	_, err = store.Get(context.Background(), "user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, dashboard.ErrDocumentNotFound)

	assert.ErrorIs(t, store.Put(context.Background(), "", dashboard.Document{}), dashboard.ErrMissingUser)
}

func TestStoreAgainstLiveMongo(t *testing.T) {
	uri := os.Getenv("REPORTBOARD_MONGO_URI")
	if uri == "" {
		t.Skip("REPORTBOARD_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, disconnect, err := Connect(ctx, uri, "reportboard_test", "report_dashboards_test")
	require.NoError(t, err)
	defer disconnect(context.Background())

	user := "live-" + time.Now().Format("150405.000000")
	require.NoError(t, store.Put(ctx, user, sampleDocument()))
	got, err := store.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, sampleDocument().Reports, got.Reports)
}

func sampleDocument() dashboard.Document {
	return dashboard.Document{
		Layouts: dashboard.Layouts{
			dashboard.BreakpointLarge: {{ID: "report-1", X: 0, Y: 0, W: 4, H: 4}},
			dashboard.BreakpointSmall: {{ID: "report-1", X: 0, Y: 0, W: 4, H: 4}},
		},
		Reports: map[string]dashboard.Report{
			"report-1": {DataSource: dashboard.DataSourceGraduates, Visualization: dashboard.VisualizationBar, Title: "Graduates"},
		},
		Version: 5,
	}
}

type fakeCollection struct {
	mu      sync.Mutex
	docs    map[string]bson.Raw
	err     error
	upserts int
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{docs: map[string]bson.Raw{}}
}

func (f *fakeCollection) FindOne(_ context.Context, filter any, _ ...*options.FindOneOptions) *mongo.SingleResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, f.err, nil)
	}
	raw, ok := f.docs[userFilter(filter)]
	if !ok {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(raw, nil, nil)
}

func (f *fakeCollection) ReplaceOne(_ context.Context, filter any, replacement any, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	data, err := bson.Marshal(replacement)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if opt != nil && opt.Upsert != nil && *opt.Upsert {
			f.upserts++
		}
	}
	f.docs[userFilter(filter)] = bson.Raw(data)
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (f *fakeCollection) raw(userID string) bson.Raw {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[userID]
}

func userFilter(filter any) string {
	m, _ := filter.(bson.M)
	id, _ := m["user_id"].(string)
	return id
}
