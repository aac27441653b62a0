package repository

import (
	"context"
	"fmt"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/models"
)

func (s *Store) CreatePayment(ctx context.Context, p *models.Payment) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create payment: %w", translate(err))
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// ListOrderPayments returns every attempt recorded for an order, oldest first.
func (s *Store) ListOrderPayments(ctx context.Context, orderID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at").Order("id").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("list order payments: %w", err)
	}
	return payments, nil
}

type PaymentFilter struct {
	Status *models.PaymentStatus
	Offset int
	Limit  int
}

func (s *Store) ListPayments(ctx context.Context, f PaymentFilter) ([]models.Payment, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Payment{})
	if f.Status != nil {
		query = query.Where("payment_status = ?", *f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	var payments []models.Payment
	err := query.
		Order("created_at DESC").Order("id DESC").
		Offset(f.Offset).Limit(f.Limit).
		Find(&payments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	return payments, total, nil
}
