package repository

import (
	"context"
	"time"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/config"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	database *mongo.Database
	config   *config.MongoDBConfig
}

func NewMongoRepository(cfg *config.MongoDBConfig) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	return NewMongoRepositoryWithDatabase(client.Database(cfg.Database), cfg), nil
}

// NewMongoRepositoryWithDatabase wraps an already connected database.
func NewMongoRepositoryWithDatabase(db *mongo.Database, cfg *config.MongoDBConfig) *MongoRepository {
	return &MongoRepository{database: db, config: cfg}
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.database.Client().Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.database.Client().Disconnect(ctx)
}

// AuditLog represents an audit log entry
type AuditLog struct {
	ID        string    `bson:"_id" json:"id"`
	Service   string    `bson:"service" json:"service"`
	Action    string    `bson:"action" json:"action"`
	EntityID  string    `bson:"entity_id" json:"entity_id"`
	ActorID   string    `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	Data      bson.M    `bson:"data" json:"data"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

func (m *MongoRepository) CreateAuditLog(ctx context.Context, log *AuditLog) error {
	collection := m.database.Collection(m.config.Collection)
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	log.CreatedAt = time.Now()
	_, err := collection.InsertOne(ctx, log)
	return err
}

// GetAuditLogs returns the newest entries for entityID first.
func (m *MongoRepository) GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*AuditLog, error) {
	collection := m.database.Collection(m.config.Collection)

	filter := bson.M{"entity_id": entityID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []*AuditLog{}
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}

// NotificationLog records the final outcome of one notification delivery.
type NotificationLog struct {
	ID        string    `bson:"_id"`
	Kind      string    `bson:"kind"`
	OrderID   string    `bson:"order_id,omitempty"`
	Recipient string    `bson:"recipient"`
	Channel   string    `bson:"channel"`
	Delivered bool      `bson:"delivered"`
	Attempts  int       `bson:"attempts"`
	Error     string    `bson:"error,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func (m *MongoRepository) CreateNotificationLog(ctx context.Context, log *NotificationLog) error {
	collection := m.database.Collection(m.config.NotificationsCollection)
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	log.CreatedAt = time.Now()
	_, err := collection.InsertOne(ctx, log)
	return err
}
