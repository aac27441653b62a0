// Package account exposes the slice of the customer directory the order
// engine needs: profile reads and self-service deactivation.
package account

import (
	"context"
	"errors"

	apperrors "github.com/InfiniteGosi/YolmaFoodApp/pkg/errors"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/models"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/notification"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/repository"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/view"
	"go.uber.org/zap"
)

type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	DeactivateUser(ctx context.Context, id string) error
}

type Service struct {
	store     Store
	composer  *notification.Composer
	publisher notification.Publisher
	logger    *zap.Logger
}

func NewService(store Store, composer *notification.Composer, publisher notification.Publisher, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		composer:  composer,
		publisher: publisher,
		logger:    logger.Named("account"),
	}
}

func (s *Service) Profile(ctx context.Context, userID string) (view.Profile, error) {
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return view.Profile{}, apperrors.NotFound("user not found")
	}
	if err != nil {
		return view.Profile{}, err
	}
	return view.FromUser(u), nil
}

// Deactivate marks the caller's account inactive and notifies them.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("user not found")
	}
	if err != nil {
		return err
	}

	err = s.store.DeactivateUser(ctx, userID)
	if errors.Is(err, repository.ErrConflict) {
		return apperrors.InvalidTransition("account is already deactivated")
	}
	if err != nil {
		return err
	}

	s.logger.Info("Account deactivated", zap.String("user_id", userID))
	s.publisher.Publish(s.composer.AccountDeactivated(u))
	return nil
}
