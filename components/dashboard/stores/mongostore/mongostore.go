// Package mongostore persists report dashboards in MongoDB, one document per
// user in the report_dashboards collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/goliatone/go-reports-dashboard/components/dashboard"
)

// DefaultCollection is the collection used when none is configured.
const DefaultCollection = "report_dashboards"

// Collection is the subset of *mongo.Collection the store needs.
type Collection interface {
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	ReplaceOne(ctx context.Context, filter any, replacement any, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
}

// Store implements dashboard.LayoutStore on a Mongo collection.
type Store struct {
	c   Collection
	now func() time.Time
}

var _ dashboard.LayoutStore = (*Store)(nil)

// New creates a store on db.Collection(collection).
func New(db *mongo.Database, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return NewWithCollection(db.Collection(collection))
}

// NewWithCollection wraps an existing collection.
func NewWithCollection(c Collection) *Store {
	return &Store{c: c, now: func() time.Time { return time.Now().UTC() }}
}

// Connect dials uri, verifies the connection and returns a store with a
// disconnect func.
func Connect(ctx context.Context, uri, database, collection string) (*Store, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("mongostore: ping: %w", err)
	}
	db := client.Database(database)
	store := New(db, collection)
	if err := EnsureIndexes(ctx, db.Collection(collectionName(collection))); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	return store, client.Disconnect, nil
}

// EnsureIndexes creates the unique user_id index.
func EnsureIndexes(ctx context.Context, c *mongo.Collection) error {
	_, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongostore: create user_id index: %w", err)
	}
	return nil
}

type record struct {
	UserID    string                        `bson:"user_id"`
	Layouts   map[string][]layoutItemRecord `bson:"layouts"`
	Reports   map[string]reportRecord       `bson:"reports"`
	Version   int64                         `bson:"version"`
	UpdatedAt time.Time                     `bson:"updated_at"`
}

type layoutItemRecord struct {
	ID string `bson:"i"`
	X  int    `bson:"x"`
	Y  int    `bson:"y"`
	W  int    `bson:"w"`
	H  int    `bson:"h"`
}

type reportRecord struct {
	DataSource    string `bson:"data_source"`
	Visualization string `bson:"visualization"`
	Title         string `bson:"title,omitempty"`
}

// Get returns the dashboard of userID or dashboard.ErrDocumentNotFound.
func (s *Store) Get(ctx context.Context, userID string) (dashboard.Document, error) {
	if userID == "" {
		return dashboard.Document{}, dashboard.ErrMissingUser
	}
	var rec record
	err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return dashboard.Document{}, dashboard.ErrDocumentNotFound
	}
	if err != nil {
		return dashboard.Document{}, fmt.Errorf("mongostore: find dashboard %s: %w", userID, err)
	}
	return fromRecord(rec), nil
}

// Put replaces the whole dashboard of userID, inserting it when missing.
func (s *Store) Put(ctx context.Context, userID string, doc dashboard.Document) error {
	if userID == "" {
		return dashboard.ErrMissingUser
	}
	doc.UserID = userID
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = s.now()
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.c.ReplaceOne(ctx, bson.M{"user_id": userID}, toRecord(doc), opts); err != nil {
		return fmt.Errorf("mongostore: replace dashboard %s: %w", userID, err)
	}
	return nil
}

func toRecord(doc dashboard.Document) record {
	rec := record{
		UserID:    doc.UserID,
		Layouts:   make(map[string][]layoutItemRecord, len(doc.Layouts)),
		Reports:   make(map[string]reportRecord, len(doc.Reports)),
		Version:   int64(doc.Version),
		UpdatedAt: doc.UpdatedAt,
	}
	for bp, items := range doc.Layouts {
		out := make([]layoutItemRecord, len(items))
		for i, item := range items {
			out[i] = layoutItemRecord{ID: item.ID, X: item.X, Y: item.Y, W: item.W, H: item.H}
		}
		rec.Layouts[string(bp)] = out
	}
	for id, report := range doc.Reports {
		rec.Reports[id] = reportRecord{
			DataSource:    string(report.DataSource),
			Visualization: string(report.Visualization),
			Title:         report.Title,
		}
	}
	return rec
}

func fromRecord(rec record) dashboard.Document {
	doc := dashboard.Document{
		UserID:    rec.UserID,
		Layouts:   make(dashboard.Layouts, len(rec.Layouts)),
		Reports:   make(map[string]dashboard.Report, len(rec.Reports)),
		UpdatedAt: rec.UpdatedAt,
	}
	if rec.Version > 0 {
		doc.Version = uint64(rec.Version)
	}
	for bp, items := range rec.Layouts {
		out := make([]dashboard.LayoutItem, len(items))
		for i, item := range items {
			out[i] = dashboard.LayoutItem{ID: item.ID, X: item.X, Y: item.Y, W: item.W, H: item.H}
		}
		doc.Layouts[dashboard.Breakpoint(bp)] = out
	}
	for id, report := range rec.Reports {
		doc.Reports[id] = dashboard.Report{
			DataSource:    dashboard.DataSource(report.DataSource),
			Visualization: dashboard.Visualization(report.Visualization),
			Title:         report.Title,
		}
	}
	return doc
}

func collectionName(name string) string {
	if name == "" {
		return DefaultCollection
	}
	return name
}
