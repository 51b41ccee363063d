package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Audit actions recorded for order lifecycle events
const (
	AuditOrderRequestCreated   = "order_request.created"
	AuditOrderRequestUpdated   = "order_request.updated"
	AuditOrderRequestCompleted = "order_request.completed"
	AuditOrderRequestAccepted  = "order_request.accepted"
	AuditOrderRequestRemoved   = "order_request.removed"
	AuditOrderCreated          = "order.created"
	AuditOrderUpdated          = "order.updated"
	AuditOrderStatusChanged    = "order.status_changed"
	AuditOrderRemoved          = "order.removed"
)

// AuditEntry is a single lifecycle event
type AuditEntry struct {
	ID        string    `bson:"_id,omitempty" json:"id,omitempty"`
	Action    string    `bson:"action" json:"action"`
	EntityID  string    `bson:"entity_id" json:"entityId"`
	Actor     string    `bson:"actor,omitempty" json:"actor,omitempty"`
	Data      bson.M    `bson:"data" json:"data"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// AuditLogger stores and retrieves lifecycle events
type AuditLogger interface {
	Record(ctx context.Context, entry *AuditEntry) error
	History(ctx context.Context, entityID string, limit int64) ([]*AuditEntry, error)
}

type nopAuditLogger struct{}

func (nopAuditLogger) Record(context.Context, *AuditEntry) error { return nil }

func (nopAuditLogger) History(context.Context, string, int64) ([]*AuditEntry, error) {
	return []*AuditEntry{}, nil
}

// NopAuditLogger discards every entry
var NopAuditLogger AuditLogger = nopAuditLogger{}

// MongoAuditLogger writes entries to a MongoDB collection
type MongoAuditLogger struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoAuditLogger connects to MongoDB and verifies the connection
func NewMongoAuditLogger(ctx context.Context, uri, database, collection string) (*MongoAuditLogger, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoAuditLogger{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// Record inserts the entry, stamping its creation time
func (m *MongoAuditLogger) Record(ctx context.Context, entry *AuditEntry) error {
	entry.CreatedAt = time.Now().UTC()
	if _, err := m.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// History returns the newest entries for an entity first
func (m *MongoAuditLogger) History(ctx context.Context, entityID string, limit int64) ([]*AuditEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := m.collection.Find(ctx, bson.M{"entity_id": entityID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []*AuditEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}
	return entries, nil
}

// Close disconnects from MongoDB
func (m *MongoAuditLogger) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

type actorKey struct{}

// WithActor attaches the acting username to ctx for audit entries
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the username attached by WithActor
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

// recordAudit writes an entry and logs instead of failing the caller
func recordAudit(ctx context.Context, audit AuditLogger, logger *zap.Logger, action, entityID string, data bson.M) {
	if audit == nil {
		return
	}
	entry := &AuditEntry{
		Action:   action,
		EntityID: entityID,
		Actor:    ActorFromContext(ctx),
		Data:     data,
	}
	if err := audit.Record(ctx, entry); err != nil {
		logger.Warn("failed to record audit entry", zap.String("action", action), zap.String("entity_id", entityID), zap.Error(err))
	}
}
