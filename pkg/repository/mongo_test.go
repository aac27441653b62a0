package repository

import (
	"context"
	"testing"
	"time"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	cfg := &config.MongoDBConfig{Collection: "audit_logs", NotificationsCollection: "notifications"}

	mt.Run("create audit log assigns id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewMongoRepositoryWithDatabase(mt.DB, cfg)

		entry := &AuditLog{Service: "order-service", Action: "order.placed", EntityID: "o-1"}
		require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
		assert.NotEmpty(t, entry.ID)
		assert.False(t, entry.CreatedAt.IsZero())
	})

	mt.Run("get audit logs", func(mt *mtest.T) {
		ns := mt.DB.Name() + ".audit_logs"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "a-2"},
				{Key: "action", Value: "order.status_changed"},
				{Key: "entity_id", Value: "o-1"},
				{Key: "created_at", Value: time.Now()},
			},
			bson.D{
				{Key: "_id", Value: "a-1"},
				{Key: "action", Value: "order.placed"},
				{Key: "entity_id", Value: "o-1"},
				{Key: "created_at", Value: time.Now().Add(-time.Minute)},
			},
		))
		repo := NewMongoRepositoryWithDatabase(mt.DB, cfg)

		logs, err := repo.GetAuditLogs(context.Background(), "o-1", 10)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, "order.status_changed", logs[0].Action)
	})

	mt.Run("create notification log surfaces write errors", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}))
		repo := NewMongoRepositoryWithDatabase(mt.DB, cfg)

		err := repo.CreateNotificationLog(context.Background(), &NotificationLog{Kind: "order_placed", Channel: "email"})
		assert.Error(t, err)
	})
}
