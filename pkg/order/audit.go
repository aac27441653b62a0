package order

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/InfiniteGosi/YolmaFoodApp/pkg/errors"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const (
	ActionOrderPlaced     = "order.placed"
	ActionPaymentRecorded = "payment.recorded"
	ActionStatusChanged   = "order.status_changed"
)

// AuditStore is satisfied by repository.MongoRepository.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, log *repository.AuditLog) error
	GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*repository.AuditLog, error)
}

// Auditor writes lifecycle events to the audit trail. Writes happen in the
// background and never fail the operation that produced them.
type Auditor struct {
	store   AuditStore
	service string
	logger  *zap.Logger
	pending sync.WaitGroup
}

// NewAuditor returns an auditor. A nil store disables auditing.
func NewAuditor(store AuditStore, service string, logger *zap.Logger) *Auditor {
	return &Auditor{store: store, service: service, logger: logger.Named("audit")}
}

func (a *Auditor) Record(action, orderID, actorID string, data bson.M) {
	if a == nil || a.store == nil {
		return
	}
	entry := &repository.AuditLog{
		Service:  a.service,
		Action:   action,
		EntityID: orderID,
		ActorID:  actorID,
		Data:     data,
	}
	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.store.CreateAuditLog(ctx, entry); err != nil {
			a.logger.Error("Failed to write audit log",
				zap.String("action", action),
				zap.String("order_id", orderID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every audit write started so far has finished. Call
// it before closing the audit store.
func (a *Auditor) Wait() {
	if a == nil {
		return
	}
	a.pending.Wait()
}

// Trail returns up to limit entries for an order, newest first.
func (a *Auditor) Trail(ctx context.Context, orderID string, limit int64) ([]*repository.AuditLog, error) {
	if a == nil || a.store == nil {
		return nil, apperrors.Unavailable("audit log is not configured", nil)
	}
	logs, err := a.store.GetAuditLogs(ctx, orderID, limit)
	if err != nil {
		return nil, apperrors.Unavailable("audit log unavailable", err)
	}
	return logs, nil
}
