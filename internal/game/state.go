// Package game tracks what the bot knows about the running game. Reads are
// best effort: a failed or zero read never erases a previous good value.
package game

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
	"github.com/GriffinCanCode/crumbot/internal/syncx"
	"github.com/GriffinCanCode/crumbot/internal/trace"
)

// Reader pulls raw values off the screen. Zero or empty results mean the
// read failed.
type Reader interface {
	Cookies(ctx context.Context) (float64, error)
	Rate(ctx context.Context) (float64, error)
	Shop(ctx context.Context) ([]Building, error)
	Upgrades(ctx context.Context) ([]Upgrade, error)
}

// State owns the published snapshot. Refresh is called from a single loop;
// Snapshot may be called from any goroutine.
type State struct {
	reader    Reader
	shared    *syncx.Shared[*Snapshot]
	now       func() time.Time
	onFailure func(field string, err error)
}

// NewState creates a state with an empty, unpublished snapshot.
func NewState(r Reader) *State {
	return &State{
		reader: r,
		shared: syncx.NewShared(&Snapshot{}),
		now:    time.Now,
	}
}

// WithClock replaces the clock used for samples and publication stamps.
func (s *State) WithClock(now func() time.Time) *State {
	s.now = now
	s.shared.WithClock(now)
	return s
}

// OnFailure registers a callback run for every skipped field read.
func (s *State) OnFailure(fn func(field string, err error)) *State {
	s.onFailure = fn
	return s
}

// Snapshot returns the latest published snapshot. Callers must not mutate it.
func (s *State) Snapshot() *Snapshot { return s.shared.Get() }

// Age reports how long ago the snapshot was published.
func (s *State) Age() time.Duration { return s.shared.Age() }

// Stale reports whether the snapshot is older than maxAge.
func (s *State) Stale(maxAge time.Duration) bool { return s.shared.Stale(maxAge) }

// Refresh reads every field and publishes a new snapshot. Per-field failures
// are logged and skipped; only the emergency stop and context cancellation
// are returned.
func (s *State) Refresh(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "state_refresh")
	defer span.End()
	log := trace.Logger(ctx)

	next := s.Snapshot().clone()

	steps := []struct {
		name string
		fn   func(context.Context, *Snapshot) error
	}{
		{"cookies", s.readCookies},
		{"rate", s.readRate},
		{"shop", s.readShop},
		{"upgrades", s.readUpgrades},
	}
	for _, st := range steps {
		if err := s.step(ctx, st.name, next, st.fn); err != nil {
			if fatal(ctx, err) {
				return err
			}
			log.Warn("state read failed", "field", st.name, "error", err)
			if s.onFailure != nil {
				s.onFailure(st.name, err)
			}
		}
	}

	next.settle()
	next.Seq++
	next.Taken = s.now()
	s.shared.Publish(next)

	span.SetAttr("seq", next.Seq)
	log.Debug("state refreshed", "snapshot", next.String(), "elapsed", span.Duration())
	return nil
}

func (s *State) step(ctx context.Context, name string, next *Snapshot, fn func(context.Context, *Snapshot) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.Newf(apperrors.Internal, "panic reading %s: %v", name, r)
		}
	}()
	return fn(ctx, next)
}

func fatal(ctx context.Context, err error) bool {
	if apperrors.IsFailsafe(err) {
		return true
	}
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

func (s *State) readCookies(ctx context.Context, next *Snapshot) error {
	v, err := s.reader.Cookies(ctx)
	if err != nil {
		return err
	}
	if v > 0 {
		next.Cookies = v
	}
	return nil
}

func (s *State) readRate(ctx context.Context, next *Snapshot) error {
	v, err := s.reader.Rate(ctx)
	if err != nil {
		return err
	}
	if v > 0 {
		next.Rate = v
		next.History = append(next.History, Sample{At: s.now(), Rate: v})
		if n := len(next.History); n > HistorySize {
			next.History = next.History[n-HistorySize:]
		}
	}
	return nil
}

func (s *State) readShop(ctx context.Context, next *Snapshot) error {
	rows, err := s.reader.Shop(ctx)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		next.Buildings = rows
	}
	return nil
}

func (s *State) readUpgrades(ctx context.Context, next *Snapshot) error {
	ups, err := s.reader.Upgrades(ctx)
	if err != nil {
		next.Upgrades = nil
		return err
	}
	next.Upgrades = ups
	return nil
}
