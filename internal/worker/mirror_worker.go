// Package worker copies the primary portfolio store into a mirror.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rendita/internal/amqp"
	"rendita/internal/log"
	"rendita/internal/store"
)

// Consumer delivers change feed messages until ctx is cancelled.
type Consumer interface {
	ConsumePortfolioSaved(ctx context.Context, handler func(context.Context, *amqp.PortfolioSavedMessage) error) error
}

// MirrorWorker copies the primary store into the mirror whenever the stored
// document changes, and periodically in case a message was lost.
type MirrorWorker struct {
	source store.PortfolioReader
	target store.PortfolioWriter
	logger *log.Logger

	mu           sync.Mutex
	lastMirrored int64
	lastUpdated  time.Time
	mirrored     bool
}

func NewMirrorWorker(source store.PortfolioReader, target store.PortfolioWriter, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		source: source,
		target: target,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// LastMirrored returns the last revision written to the mirror.
func (w *MirrorWorker) LastMirrored() (int64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastMirrored, w.mirrored
}

// HandlePortfolioSaved processes one change feed message. The primary store is
// the source of truth, so the message revision is only logged: a message for a
// document that is already mirrored is acknowledged without touching the mirror.
func (w *MirrorWorker) HandlePortfolioSaved(ctx context.Context, msg *amqp.PortfolioSavedMessage) error {
	w.logger.InfoContext(ctx, "Processing portfolio saved message", log.FieldRevision, msg.Revision)
	return w.Mirror(ctx)
}

// Mirror loads the primary store and writes it to the mirror unless it is the
// document mirrored last. A revision that goes backwards (a recreated store)
// counts as a change.
func (w *MirrorWorker) Mirror(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	state, err := w.source.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		w.logger.DebugContext(ctx, "Nothing stored yet, mirror skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load portfolio: %w", err)
	}

	if w.mirrored && state.Revision == w.lastMirrored && state.UpdatedAt.Equal(w.lastUpdated) {
		w.logger.DebugContext(ctx, "Portfolio already mirrored", log.FieldRevision, state.Revision)
		return nil
	}
	if w.mirrored && state.Revision < w.lastMirrored {
		w.logger.WarnContext(ctx, "Primary revision went backwards, mirroring anyway",
			log.FieldRevision, state.Revision, "last_mirrored", w.lastMirrored)
	}

	if err := w.target.Save(ctx, state); err != nil {
		return fmt.Errorf("mirror portfolio revision %d: %w", state.Revision, err)
	}
	w.lastMirrored = state.Revision
	w.lastUpdated = state.UpdatedAt
	w.mirrored = true

	w.logger.InfoContext(ctx, "Portfolio mirrored",
		log.FieldOperation, log.OpMirror,
		log.FieldRevision, state.Revision,
		log.FieldAccounts, len(state.Accounts))
	return nil
}

// Run mirrors once, then keeps mirroring on every message from consumer and on
// every tick of interval until ctx is cancelled. consumer may be nil.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			err := consumer.ConsumePortfolioSaved(ctx, w.HandlePortfolioSaved)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if err := w.Mirror(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Periodic mirror failed",
					log.FieldOperation, log.OpMirror, log.FieldError, err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	return g.Wait()
}
