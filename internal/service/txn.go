package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pkordes/campusride/internal/domain"
)

// TxPolicy bounds the read-modify-write retry loop. A write that loses a
// version race is retried up to MaxRetries times with exponential backoff
// starting at BaseDelay.
type TxPolicy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}

// DefaultTxPolicy returns the policy used when none is configured.
func DefaultTxPolicy() TxPolicy {
	return TxPolicy{MaxRetries: 5, BaseDelay: 10 * time.Millisecond}
}

func (p TxPolicy) backoff() retry.Backoff {
	return retry.WithMaxRetries(p.MaxRetries, retry.NewExponential(p.BaseDelay))
}

// errUnchanged is returned by a mutate func whose document needs no write.
var errUnchanged = errors.New("unchanged")

// casTx describes one optimistic transaction over a versioned document.
// mutate may run more than once, each time against a fresh read, so it must
// only modify the document it is given.
type casTx[T any] struct {
	entity string
	read   func(ctx context.Context) (T, error)
	mutate func(doc *T) error
	write  func(ctx context.Context, doc T) (T, error)
}

// run reads the document, applies mutate, and writes it back guarded by the
// version read. A domain.ErrConflict from write restarts the cycle. Errors
// from mutate abort without writing; errUnchanged aborts successfully and
// returns the document as read.
func (tx casTx[T]) run(ctx context.Context, o options) (T, error) {
	var result T
	err := retry.Do(ctx, o.tx.backoff(), func(ctx context.Context) error {
		doc, err := tx.read(ctx)
		if err != nil {
			return err
		}
		if err := tx.mutate(&doc); err != nil {
			if errors.Is(err, errUnchanged) {
				result = doc
				return nil
			}
			return err
		}
		written, err := tx.write(ctx, doc)
		if errors.Is(err, domain.ErrConflict) {
			o.log.DebugContext(ctx, "write conflict, retrying", "entity", tx.entity)
			if o.metrics != nil {
				o.metrics.TxConflicts.WithLabelValues(tx.entity).Inc()
			}
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		result = written
		return nil
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s transaction: %w", tx.entity, err)
	}
	return result, nil
}
