package notification

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/repository"
	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

var errDroppedOnShutdown = errors.New("dropped on shutdown")

// Recorder persists the final outcome of each delivery.
type Recorder interface {
	CreateNotificationLog(ctx context.Context, log *repository.NotificationLog) error
}

type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Backoff is the wait before attempt+1: InitialDelay doubled per failed
// attempt, capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.InitialDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

type Options struct {
	Retry       RetryPolicy
	SendTimeout time.Duration
	// Recorder may be nil.
	Recorder Recorder
}

// Dispatcher owns one actor per sender. Publish never blocks the caller.
type Dispatcher struct {
	system  *actor.ActorSystem
	pids    []*actor.PID
	stopped atomic.Bool
	logger  *zap.Logger
}

func NewDispatcher(senders []Sender, opts Options, logger *zap.Logger) (*Dispatcher, error) {
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 15 * time.Second
	}

	d := &Dispatcher{
		system: actor.NewActorSystem(),
		logger: logger.Named("dispatcher"),
	}
	for _, s := range senders {
		sender := s
		props := actor.PropsFromProducer(func() actor.Actor {
			return &deliveryActor{
				sender: sender,
				opts:   opts,
				logger: d.logger.With(zap.String("channel", sender.Channel())),
			}
		})
		pid, err := d.system.Root.SpawnNamed(props, "notification-"+sender.Channel())
		if err != nil {
			return nil, fmt.Errorf("failed to spawn %s notification actor: %w", sender.Channel(), err)
		}
		d.pids = append(d.pids, pid)
	}
	return d, nil
}

func (d *Dispatcher) Publish(msg Message) {
	if d.stopped.Load() {
		d.logger.Warn("Dispatcher stopped, dropping notification",
			zap.String("kind", string(msg.Kind)), zap.String("order_id", msg.OrderID))
		return
	}
	for _, pid := range d.pids {
		d.system.Root.Send(pid, &delivery{msg: msg, attempt: 1})
	}
}

// Stop delivers everything already queued, then stops the actors. Retries
// still waiting on their backoff are dropped.
func (d *Dispatcher) Stop() {
	if !d.stopped.CompareAndSwap(false, true) {
		return
	}
	for _, pid := range d.pids {
		if err := d.system.Root.PoisonFuture(pid).Wait(); err != nil {
			d.logger.Error("Failed to stop notification actor", zap.String("pid", pid.Id), zap.Error(err))
		}
	}
}

type delivery struct {
	msg     Message
	attempt int
}

type retryDue struct {
	id       uint64
	delivery *delivery
}

type deliveryActor struct {
	sender    Sender
	opts      Options
	logger    *zap.Logger
	timers    map[uint64]*time.Timer
	pending   map[uint64]*delivery
	nextTimer uint64
}

func (a *deliveryActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		a.timers = make(map[uint64]*time.Timer)
		a.pending = make(map[uint64]*delivery)
		a.logger.Info("Notification actor started")

	case *delivery:
		a.deliver(ctx, msg)

	case *retryDue:
		delete(a.timers, msg.id)
		delete(a.pending, msg.id)
		a.deliver(ctx, msg.delivery)

	case *actor.Stopping:
		for id, t := range a.timers {
			t.Stop()
			d := a.pending[id]
			a.logger.Warn("Dropping notification retry on shutdown",
				zap.String("kind", string(d.msg.Kind)),
				zap.String("recipient", d.msg.Recipient),
				zap.Int("attempt", d.attempt))
			a.record(&delivery{msg: d.msg, attempt: d.attempt - 1}, errDroppedOnShutdown)
		}
	}
}

func (a *deliveryActor) deliver(ctx actor.Context, d *delivery) {
	sendCtx, cancel := context.WithTimeout(context.Background(), a.opts.SendTimeout)
	err := a.sender.Send(sendCtx, d.msg)
	cancel()

	if err == nil {
		a.record(d, nil)
		return
	}
	if d.attempt >= a.opts.Retry.MaxAttempts {
		a.logger.Error("Notification delivery failed",
			zap.String("kind", string(d.msg.Kind)),
			zap.String("recipient", d.msg.Recipient),
			zap.String("order_id", d.msg.OrderID),
			zap.Int("attempts", d.attempt),
			zap.Error(err))
		a.record(d, err)
		return
	}

	delay := a.opts.Retry.Backoff(d.attempt)
	a.logger.Warn("Notification delivery failed, retrying",
		zap.String("kind", string(d.msg.Kind)),
		zap.Int("attempt", d.attempt),
		zap.Duration("delay", delay),
		zap.Error(err))

	next := &delivery{msg: d.msg, attempt: d.attempt + 1}
	id := a.nextTimer
	a.nextTimer++
	self, root := ctx.Self(), ctx.ActorSystem().Root
	a.pending[id] = next
	a.timers[id] = time.AfterFunc(delay, func() {
		root.Send(self, &retryDue{id: id, delivery: next})
	})
}

func (a *deliveryActor) record(d *delivery, sendErr error) {
	if a.opts.Recorder == nil {
		return
	}
	entry := &repository.NotificationLog{
		Kind:      string(d.msg.Kind),
		OrderID:   d.msg.OrderID,
		Recipient: d.msg.Recipient,
		Channel:   a.sender.Channel(),
		Delivered: sendErr == nil,
		Attempts:  d.attempt,
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.opts.Recorder.CreateNotificationLog(ctx, entry); err != nil {
		a.logger.Error("Failed to record notification", zap.Error(err))
	}
}
