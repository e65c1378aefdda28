// Package bot runs the click, bonus, buy and stats loops against the game
// and stops them all the moment the emergency stop trips.
package bot

import (
	"context"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/crumbot/internal/config"
	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
	"github.com/GriffinCanCode/crumbot/internal/game"
	"github.com/GriffinCanCode/crumbot/internal/journal"
	"github.com/GriffinCanCode/crumbot/internal/strategy"
	"github.com/GriffinCanCode/crumbot/internal/trace"
)

// Decider picks the next purchase.
type Decider interface {
	BestPurchase(ctx context.Context, snap *game.Snapshot) (strategy.Decision, bool, error)
}

// Clicker issues pointer actions.
type Clicker interface {
	ClickMain(ctx context.Context) error
	ClickBonus(ctx context.Context, p image.Point) error
	Buy(ctx context.Context, dec strategy.Decision) (bool, error)
}

// BonusFinder locates a bonus target on screen.
type BonusFinder interface {
	FindBonus(ctx context.Context) (image.Point, bool, error)
}

// WindowRefresher re-reads the game window position.
type WindowRefresher interface {
	Refresh() (bool, error)
}

// Journal receives committed purchases.
type Journal interface {
	Add(r journal.Record)
}

// Recorder receives loop metrics.
type Recorder interface {
	Click(kind string)
	Purchase(name string)
	Decision(source string)
	ReadFailure(step string)
	ObserveCycle(loop string, d time.Duration)
	Snapshot(cookies, rate, ageSeconds float64)
}

// Deps are the collaborators a Manager drives. Window, Journal and Metrics
// are optional.
type Deps struct {
	State   *game.State
	Engine  Decider
	Clicker Clicker
	Bonus   BonusFinder
	Window  WindowRefresher
	Journal Journal
	Metrics Recorder
}

// Options holds loop timing. A zero RefreshInterval rereads the screen on
// every buy cycle; a zero SnapshotMaxAge never treats the snapshot as stale.
type Options struct {
	ClickInterval   time.Duration
	BonusInterval   time.Duration
	BuyInterval     time.Duration
	StatsInterval   time.Duration
	StartDelay      time.Duration
	RefreshInterval time.Duration
	SnapshotMaxAge  time.Duration
}

// OptionsFrom derives loop timing from configuration.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		ClickInterval:   cfg.ClickInterval(),
		BonusInterval:   cfg.Bot.BonusInterval.Duration,
		BuyInterval:     cfg.Bot.BuyInterval.Duration,
		StatsInterval:   cfg.Bot.StatsInterval.Duration,
		StartDelay:      cfg.Bot.StartDelay.Duration,
		RefreshInterval: cfg.Bot.RefreshInterval.Duration,
		SnapshotMaxAge:  cfg.Bot.SnapshotMaxAge.Duration,
	}
}

func (o Options) withDefaults() Options {
	if o.ClickInterval <= 0 {
		o.ClickInterval = DefaultClickInterval
	}
	if o.BonusInterval <= 0 {
		o.BonusInterval = DefaultBonusInterval
	}
	if o.BuyInterval <= 0 {
		o.BuyInterval = DefaultBuyInterval
	}
	if o.StatsInterval <= 0 {
		o.StatsInterval = DefaultStatsInterval
	}
	return o
}

// Stats counts what the loops have done so far.
type Stats struct {
	Clicks    int64     `json:"clicks"`
	Bonuses   int64     `json:"bonuses"`
	Purchases int64     `json:"purchases"`
	Started   time.Time `json:"started"`
}

// Manager owns the loops.
type Manager struct {
	deps Deps
	opts Options
	feed *Feed

	clicks    atomic.Int64
	bonuses   atomic.Int64
	purchases atomic.Int64
	started   atomic.Pointer[time.Time]

	windowStale atomic.Bool
	refreshDue  atomic.Bool

	mu   sync.RWMutex
	last *strategy.Decision
}

// New creates a manager and hooks read failures into metrics and window
// recovery.
func New(deps Deps, opts Options) *Manager {
	m := &Manager{
		deps: deps,
		opts: opts.withDefaults(),
		feed: NewFeed(RecentEventKeep, EventBuffer),
	}
	deps.State.OnFailure(m.readFailed)
	return m
}

// Feed returns the live event feed.
func (m *Manager) Feed() *Feed { return m.feed }

// Snapshot returns the latest published game snapshot.
func (m *Manager) Snapshot() *game.Snapshot { return m.deps.State.Snapshot() }

// LastDecision returns the most recent purchase clicked.
func (m *Manager) LastDecision() (strategy.Decision, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return strategy.Decision{}, false
	}
	return *m.last, true
}

// Stale reports whether the published snapshot is too old to act on.
func (m *Manager) Stale() bool {
	return m.opts.SnapshotMaxAge > 0 && m.deps.State.Stale(m.opts.SnapshotMaxAge)
}

// Stats returns loop counters.
func (m *Manager) Stats() Stats {
	s := Stats{
		Clicks:    m.clicks.Load(),
		Bonuses:   m.bonuses.Load(),
		Purchases: m.purchases.Load(),
	}
	if t := m.started.Load(); t != nil {
		s.Started = *t
	}
	return s
}

// Run counts down, reads the initial state and runs every loop until ctx is
// cancelled or the emergency stop trips. It returns ErrFailsafe in the latter
// case and nil otherwise.
func (m *Manager) Run(ctx context.Context) error {
	log := trace.Logger(ctx)

	if err := m.countdown(ctx); err != nil {
		return nil
	}
	if err := m.deps.State.Refresh(ctx); err != nil {
		if apperrors.IsFailsafe(err) {
			log.Error("failsafe triggered during initial read")
			return err
		}
		return nil
	}
	log.Info("initial state", "snapshot", m.Snapshot().String())

	now := time.Now()
	m.started.Store(&now)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.loop(gctx, "click", m.opts.ClickInterval, m.clickOnce) })
	g.Go(func() error { return m.loop(gctx, "bonus", m.opts.BonusInterval, m.bonusOnce) })
	g.Go(func() error { return m.loop(gctx, "buy", m.opts.BuyInterval, m.buyOnce) })
	g.Go(func() error { return m.loop(gctx, "stats", m.opts.StatsInterval, m.statsOnce) })

	err := g.Wait()
	m.feed.Emit(Event{Type: EventStopped, Data: m.Stats()})
	if apperrors.IsFailsafe(err) {
		log.Error("failsafe triggered, all loops stopped", "stats", m.Stats())
		return err
	}
	log.Info("bot stopped", "clicks", m.clicks.Load(), "purchases", m.purchases.Load())
	return nil
}

func (m *Manager) countdown(ctx context.Context) error {
	if m.opts.StartDelay <= 0 {
		return ctx.Err()
	}
	log := trace.Logger(ctx)
	deadline := time.Now().Add(m.opts.StartDelay)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	timer := time.NewTimer(m.opts.StartDelay)
	defer timer.Stop()

	log.Info("starting soon, move the pointer to the top-left corner to abort", "in", m.opts.StartDelay)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case <-ticker.C:
			log.Info("starting", "in", time.Until(deadline).Round(time.Second))
		}
	}
}

// loop runs fn every interval. Only the emergency stop ends it early.
func (m *Manager) loop(ctx context.Context, name string, every time.Duration, fn func(context.Context) error) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := m.iterate(ctx, name, fn); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Manager) iterate(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	start := time.Now()
	log := trace.Logger(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Error("loop iteration panicked", "loop", name, "panic", r)
			err = nil
		}
		if m.deps.Metrics != nil {
			m.deps.Metrics.ObserveCycle(name, time.Since(start))
		}
	}()

	if ferr := fn(ctx); ferr != nil {
		if apperrors.IsFailsafe(ferr) {
			log.Error("failsafe triggered", "loop", name)
			return ferr
		}
		if ctx.Err() != nil {
			return nil
		}
		log.Warn("loop iteration failed", "loop", name, "error", ferr)
	}
	return nil
}

func (m *Manager) clickOnce(ctx context.Context) error {
	if err := m.deps.Clicker.ClickMain(ctx); err != nil {
		return err
	}
	m.clicks.Add(1)
	m.record(func(r Recorder) { r.Click("main") })
	return nil
}

func (m *Manager) bonusOnce(ctx context.Context) error {
	p, ok, err := m.deps.Bonus.FindBonus(ctx)
	if err != nil || !ok {
		return err
	}
	if err := m.deps.Clicker.ClickBonus(ctx, p); err != nil {
		return err
	}
	m.bonuses.Add(1)
	m.record(func(r Recorder) { r.Click("bonus") })
	m.feed.Emit(Event{Type: EventBonus, Data: p})
	trace.Logger(ctx).Info("bonus clicked", "x", p.X, "y", p.Y)
	return nil
}

func (m *Manager) buyOnce(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "buy_cycle")
	defer span.End()
	log := trace.Logger(ctx)

	windowStale := m.windowStale.Swap(false)
	if windowStale && m.deps.Window != nil {
		if moved, err := m.deps.Window.Refresh(); err != nil {
			log.Warn("window refresh failed", "error", err)
		} else if moved {
			log.Info("window position refreshed")
		}
	}

	due := m.refreshDue.Swap(false)
	if windowStale || due || m.deps.State.Age() >= m.opts.RefreshInterval {
		if err := m.deps.State.Refresh(ctx); err != nil {
			return err
		}
		m.feed.Emit(Event{Type: EventSnapshot, Data: m.deps.State.Snapshot()})
	}
	snap := m.deps.State.Snapshot()
	m.record(func(r Recorder) { r.Snapshot(snap.Cookies, snap.Rate, m.deps.State.Age().Seconds()) })

	if m.Stale() {
		m.record(func(r Recorder) { r.Decision("stale") })
		log.Warn("snapshot too old, skipping purchase", "age", m.deps.State.Age(), "max_age", m.opts.SnapshotMaxAge)
		return nil
	}

	dec, ok, err := m.deps.Engine.BestPurchase(ctx, snap)
	if err != nil {
		return err
	}
	if !ok {
		m.record(func(r Recorder) { r.Decision("none") })
		log.Debug("nothing to buy", "snapshot", snap.String())
		return nil
	}
	m.record(func(r Recorder) { r.Decision(dec.Source) })
	span.SetAttr("decision", dec.Name)

	bought, err := m.deps.Clicker.Buy(ctx, dec)
	if err != nil || !bought {
		return err
	}

	m.purchases.Add(1)
	m.refreshDue.Store(true)
	m.mu.Lock()
	m.last = &dec
	m.mu.Unlock()
	m.record(func(r Recorder) { r.Purchase(dec.Name) })
	m.feed.Emit(Event{Type: EventPurchase, Data: dec})
	if m.deps.Journal != nil {
		m.deps.Journal.Add(journal.Record{
			Name:    dec.Name,
			Cost:    dec.Cost.Value,
			Payoff:  finite(dec.Payoff),
			Upgrade: dec.Upgrade,
			Source:  dec.Source,
			Cookies: snap.Cookies,
		})
	}
	log.Info("purchased", "name", dec.Name, "cost", dec.Cost.String(), "payoff", dec.Payoff, "source", dec.Source)
	return nil
}

func (m *Manager) statsOnce(ctx context.Context) error {
	snap := m.deps.State.Snapshot()
	if snap.Seq == 0 {
		return nil
	}
	trace.Logger(ctx).Info("stats",
		"summary", snap.Summary(),
		"clicks", m.clicks.Load(),
		"bonuses", m.bonuses.Load(),
		"purchases", m.purchases.Load(),
	)
	return nil
}

func (m *Manager) readFailed(field string, err error) {
	m.record(func(r Recorder) { r.ReadFailure(field) })
	if apperrors.IsCode(err, apperrors.CaptureFailed) {
		m.windowStale.Store(true)
	}
}

func (m *Manager) record(fn func(Recorder)) {
	if m.deps.Metrics != nil {
		fn(m.deps.Metrics)
	}
}

func finite(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}
