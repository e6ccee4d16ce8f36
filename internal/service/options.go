// Package service contains the business logic for the campus rides API.
// Services validate inputs, enforce roster and membership rules, and
// orchestrate repo calls. No SQL lives here; services depend on repo
// interfaces, not implementations.
package service

import (
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/pkordes/campusride/internal/domain"
	"github.com/pkordes/campusride/internal/metrics"
)

// groupIDAlphabet keeps generated ids URL-safe without escaping.
const groupIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Option configures optional collaborators shared by the services.
type Option func(*options)

type options struct {
	tx       TxPolicy
	log      *slog.Logger
	now      func() time.Time
	newID    func() (string, error)
	feed     RideFeed
	notifier Notifier
	metrics  *metrics.Metrics
}

func newOptions(opts []Option) options {
	o := options{
		tx:       DefaultTxPolicy(),
		log:      slog.Default(),
		now:      time.Now,
		newID:    func() (string, error) { return gonanoid.Generate(groupIDAlphabet, domain.GroupIDLength) },
		feed:     nopFeed{},
		notifier: nopNotifier{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithTxPolicy overrides the optimistic-concurrency retry budget.
func WithTxPolicy(p TxPolicy) Option { return func(o *options) { o.tx = p } }

// WithLogger sets the logger used for state-change and failure logs.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.log = l } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithIDGenerator replaces the random group id source.
func WithIDGenerator(gen func() (string, error)) Option { return func(o *options) { o.newID = gen } }

// WithRideFeed publishes ride changes to live subscribers.
func WithRideFeed(f RideFeed) Option { return func(o *options) { o.feed = f } }

// WithNotifier sends roster-change emails.
func WithNotifier(n Notifier) Option { return func(o *options) { o.notifier = n } }

// WithMetrics records retry counts.
func WithMetrics(m *metrics.Metrics) Option { return func(o *options) { o.metrics = m } }
