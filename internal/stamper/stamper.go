package stamper

import (
	"context"
	"fmt"
	"time"

	logpkg "github.com/rzbill/aesdsocket/pkg/log"
)

// Layout renders a record such as "timestamp: 2024 March 05, 14:07:09\n".
const Layout = "timestamp: 2006 January 02, 15:04:05\n"

// DefaultPeriod is the interval between timestamp records.
const DefaultPeriod = 10 * time.Second

// Appender is the subset of the log store the stamper writes to.
type Appender interface {
	Append(p []byte) error
}

// Options configures a Stamper.
type Options struct {
	Period time.Duration
	// Now returns local wall time; defaults to time.Now.
	Now func() time.Time
	// Stopping, when set, is polled before sleeping and after waking.
	Stopping func() bool
	Logger   logpkg.Logger
}

// Stamper appends a timestamp record to the store once per period.
type Stamper struct {
	store    Appender
	period   time.Duration
	now      func() time.Time
	stopping func() bool
	logger   logpkg.Logger
}

// New returns a Stamper writing into store.
func New(store Appender, opts Options) *Stamper {
	s := &Stamper{
		store:    store,
		period:   opts.Period,
		now:      opts.Now,
		stopping: opts.Stopping,
		logger:   opts.Logger,
	}
	if s.period <= 0 {
		s.period = DefaultPeriod
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.stopping == nil {
		s.stopping = func() bool { return false }
	}
	if s.logger == nil {
		s.logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	s.logger = s.logger.With(logpkg.Component("stamper"))
	return s
}

// Format renders t as a timestamp record.
func Format(t time.Time) []byte {
	return []byte(t.Format(Layout))
}

// Run loops until ctx is done or the stop predicate reports true. Deadlines
// are absolute, so a slow append does not shift later stamps. An append
// failure ends the loop with that error.
func (s *Stamper) Run(ctx context.Context) error {
	next := time.Now().Add(s.period)
	timer := time.NewTimer(s.period)
	defer timer.Stop()

	for {
		if s.stopping() {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		if s.stopping() || ctx.Err() != nil {
			return nil
		}

		rec := Format(s.now())
		if err := s.store.Append(rec); err != nil {
			s.logger.Error("append timestamp failed", logpkg.Op("append"), logpkg.Err(err))
			return fmt.Errorf("stamper: append: %w", err)
		}
		s.logger.Debug("timestamp appended", logpkg.Int("bytes", len(rec)))

		next = next.Add(s.period)
		wait := time.Until(next)
		if wait < 0 {
			// Fell more than a period behind; resume from now.
			next = time.Now()
			wait = 0
		}
		timer.Reset(wait)
	}
}
