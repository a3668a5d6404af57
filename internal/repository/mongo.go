package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"phishing-admin/internal/config"
	"phishing-admin/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	reviewsCollection = "unsafe_reviews"
	metricsCollection = "admin"
)

// The analyzer writes reviewed as a boolean, the console as a number.
var (
	pendingValues  = bson.A{models.ReviewPending, false}
	resolvedValues = bson.A{models.ReviewResolved, true}
)

// MongoStore talks to the analyzer's MongoDB deployment directly.
type MongoStore struct {
	uri         string
	dbName      string
	maxPoolSize int
	logger      *zap.Logger

	mu     sync.RWMutex
	client *mongo.Client
}

func NewMongoStore(cfg config.DatabaseConfig, logger *zap.Logger) *MongoStore {
	return &MongoStore{
		uri:         cfg.DSN(),
		dbName:      config.DatabaseName,
		maxPoolSize: cfg.MaxOpenConns,
		logger:      logger,
	}
}

func (s *MongoStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	opts := options.Client().
		ApplyURI(s.uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	if s.maxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(s.maxPoolSize))
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s.client = client
	s.logger.Info("Successfully connected to the database!", zap.String("driver", config.DriverMongo), zap.String("database", s.dbName))
	return nil
}

func (s *MongoStore) database() (*mongo.Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, ErrNotConnected
	}
	return s.client.Database(s.dbName), nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return ErrNotConnected
	}
	return client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.client.Disconnect(ctx)
	s.client = nil
	return err
}

// MigrateDB has no schema to apply; it makes sure the lookups are indexed.
func (s *MongoStore) MigrateDB() error {
	db, err := s.database()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err = db.Collection(reviewsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "raw_url", Value: 1}}},
		{Keys: bson.D{{Key: "reviewed", Value: 1}, {Key: "timestamp", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("couldn't create review indexes: %w", err)
	}

	s.logger.Info("Database indexes are in place")
	return nil
}

func (s *MongoStore) Reviews() ReviewRepository {
	return NewMongoReviewRepository(s, s.logger)
}

type mongoReviewRepository struct {
	store  *MongoStore
	logger *zap.Logger
}

func NewMongoReviewRepository(store *MongoStore, logger *zap.Logger) ReviewRepository {
	return &mongoReviewRepository{store: store, logger: logger}
}

func (r *mongoReviewRepository) ListPending(ctx context.Context, limit int) ([]*models.ReviewEntry, error) {
	db, err := r.store.database()
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := db.Collection(reviewsCollection).Find(ctx, bson.M{"reviewed": bson.M{"$in": pendingValues}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := []*models.ReviewEntry{}
	for cursor.Next(ctx) {
		entries = append(entries, reviewFromBSON(cursor.Current))
	}
	return entries, cursor.Err()
}

func (r *mongoReviewRepository) GetByRawURL(ctx context.Context, rawURL string) (*models.ReviewEntry, error) {
	db, err := r.store.database()
	if err != nil {
		return nil, err
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "reviewed", Value: -1}, {Key: "_id", Value: 1}})
	raw, err := db.Collection(reviewsCollection).FindOne(ctx, bson.M{"raw_url": rawURL}, opts).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return reviewFromBSON(raw), nil
}

func (r *mongoReviewRepository) MarkReviewed(ctx context.Context, rawURL string, safe int) (int64, error) {
	db, err := r.store.database()
	if err != nil {
		return 0, err
	}

	filter := bson.M{"raw_url": rawURL, "reviewed": bson.M{"$in": pendingValues}}
	update := bson.M{"$set": bson.M{"reviewed": models.ReviewResolved, "safe": safe}}
	result, err := db.Collection(reviewsCollection).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.MatchedCount, nil
}

func (r *mongoReviewRepository) CountByReviewed(ctx context.Context, reviewed int) (int64, error) {
	db, err := r.store.database()
	if err != nil {
		return 0, err
	}

	values := pendingValues
	if reviewed == models.ReviewResolved {
		values = resolvedValues
	}
	return db.Collection(reviewsCollection).CountDocuments(ctx, bson.M{"reviewed": bson.M{"$in": values}})
}

func (r *mongoReviewRepository) ListMetrics(ctx context.Context) ([]models.Metric, error) {
	db, err := r.store.database()
	if err != nil {
		return nil, err
	}

	cursor, err := db.Collection(metricsCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	metrics := []models.Metric{}
	for cursor.Next(ctx) {
		if m, ok := metricFromBSON(cursor.Current); ok {
			metrics = append(metrics, m)
		}
	}
	return metrics, cursor.Err()
}

func (r *mongoReviewRepository) InsertEntry(ctx context.Context, entry *models.ReviewEntry) error {
	db, err := r.store.database()
	if err != nil {
		return err
	}

	if !entry.Timestamp.Valid {
		entry.Timestamp = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	doc, err := reviewToBSON(entry)
	if err != nil {
		return err
	}
	_, err = db.Collection(reviewsCollection).InsertOne(ctx, doc)
	return err
}

func (r *mongoReviewRepository) UpsertMetric(ctx context.Context, name string, value float64) error {
	db, err := r.store.database()
	if err != nil {
		return err
	}

	_, err = db.Collection(metricsCollection).UpdateOne(ctx,
		bson.M{"metric": name},
		bson.M{"$set": bson.M{"value": value}},
		options.Update().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to upsert metric", zap.String("metric", name), zap.Error(err))
	}
	return err
}

// reviewFromBSON maps an analyzer document onto ReviewEntry. Fields with an
// unexpected type are treated as absent.
func reviewFromBSON(doc bson.Raw) *models.ReviewEntry {
	entry := &models.ReviewEntry{}

	if s, ok := doc.Lookup("raw_url").StringValueOK(); ok {
		entry.RawURL = s
	}
	if s, ok := doc.Lookup("domain").StringValueOK(); ok {
		entry.Domain = sql.NullString{String: s, Valid: true}
	}
	if s, ok := doc.Lookup("llm_output").StringValueOK(); ok {
		entry.LLMOutput = sql.NullString{String: s, Valid: true}
	}

	switch analysis := doc.Lookup("analysis"); analysis.Type {
	case bson.TypeEmbeddedDocument:
		if raw, err := bson.MarshalExtJSON(analysis.Document(), false, false); err == nil {
			entry.Analysis = sql.NullString{String: string(raw), Valid: true}
		}
	case bson.TypeString:
		// some writers store the analysis pre-encoded
		entry.Analysis = sql.NullString{String: analysis.StringValue(), Valid: true}
	}

	if ts, ok := timeValue(doc.Lookup("timestamp")); ok {
		entry.Timestamp = sql.NullTime{Time: ts, Valid: true}
	}
	if n, ok := numberValue(doc.Lookup("reviewed")); ok && n != 0 {
		entry.Reviewed = models.ReviewResolved
	}
	if n, ok := numberValue(doc.Lookup("safe")); ok {
		entry.Safe = sql.NullInt64{Int64: int64(n), Valid: true}
	}
	return entry
}

func reviewToBSON(entry *models.ReviewEntry) (bson.D, error) {
	doc := bson.D{{Key: "raw_url", Value: entry.RawURL}}
	if entry.Domain.Valid {
		doc = append(doc, bson.E{Key: "domain", Value: entry.Domain.String})
	}
	if entry.Analysis.Valid {
		var analysis map[string]any
		if err := json.Unmarshal([]byte(entry.Analysis.String), &analysis); err != nil {
			return nil, fmt.Errorf("encode analysis: %w", err)
		}
		doc = append(doc, bson.E{Key: "analysis", Value: analysis})
	}
	if entry.LLMOutput.Valid {
		doc = append(doc, bson.E{Key: "llm_output", Value: entry.LLMOutput.String})
	}
	doc = append(doc,
		bson.E{Key: "timestamp", Value: entry.Timestamp.Time},
		bson.E{Key: "reviewed", Value: entry.Reviewed},
	)
	if entry.Safe.Valid {
		doc = append(doc, bson.E{Key: "safe", Value: entry.Safe.Int64})
	}
	return doc, nil
}

func metricFromBSON(doc bson.Raw) (models.Metric, bool) {
	name, ok := doc.Lookup("metric").StringValueOK()
	if !ok || name == "" {
		return models.Metric{}, false
	}
	m := models.Metric{Name: name}
	if v, ok := numberValue(doc.Lookup("value")); ok {
		m.Value = sql.NullFloat64{Float64: v, Valid: true}
	}
	return m, true
}

func numberValue(v bson.RawValue) (float64, bool) {
	switch v.Type {
	case bson.TypeInt32:
		return float64(v.Int32()), true
	case bson.TypeInt64:
		return float64(v.Int64()), true
	case bson.TypeDouble:
		return v.Double(), true
	case bson.TypeBoolean:
		if v.Boolean() {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"}

func timeValue(v bson.RawValue) (time.Time, bool) {
	switch v.Type {
	case bson.TypeDateTime:
		return time.UnixMilli(v.DateTime()).UTC(), true
	case bson.TypeString:
		s := strings.TrimSpace(v.StringValue())
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), true
			}
		}
	}
	return time.Time{}, false
}
