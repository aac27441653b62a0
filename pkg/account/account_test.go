package account

import (
	"context"
	"sync"
	"testing"

	apperrors "github.com/InfiniteGosi/YolmaFoodApp/pkg/errors"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/notification"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/repository"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []notification.Message
}

func (p *recordingPublisher) Publish(msg notification.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()
	db := testkit.NewTestDB(t)
	user := testkit.SeedUser(t, db, "1 Main St")

	composer, err := notification.NewComposer("", "")
	require.NoError(t, err)
	pub := &recordingPublisher{}
	svc := NewService(repository.NewStore(db), composer, pub, zap.NewNop())

	profile, err := svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, profile.Active)
	assert.Equal(t, "1 Main St", profile.Address)

	require.NoError(t, svc.Deactivate(ctx, user.ID))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, notification.KindAccountDeactivated, pub.msgs[0].Kind)
	assert.Equal(t, user.Email, pub.msgs[0].Recipient)

	profile, err = svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, profile.Active)

	err = svc.Deactivate(ctx, user.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Len(t, pub.msgs, 1)

	assert.ErrorIs(t, svc.Deactivate(ctx, "missing"), apperrors.ErrNotFound)
	_, err = svc.Profile(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
