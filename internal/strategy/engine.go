// Package strategy decides what to buy. Upgrades are always taken first;
// buildings are ranked by payoff time, the seconds a purchase needs to
// earn back its cost.
package strategy

import (
	"context"
	"encoding/json"
	"image"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
	"github.com/GriffinCanCode/crumbot/internal/game"
	"github.com/GriffinCanCode/crumbot/internal/tooltip"
	"github.com/GriffinCanCode/crumbot/internal/trace"
)

// Ranking constants
const (
	// UnknownPayoff ranks buildings whose cost could not be read behind
	// every building with known economics.
	UnknownPayoff = 1e12

	// AffordableSlack is how much worse an affordable payoff may be than the
	// best overall before waiting for the best is preferred.
	AffordableSlack = 2.0

	MinGlobalMultiplier = 1.0
	MaxGlobalMultiplier = 10_000.0

	DefaultStallAfter = 5 * time.Minute
)

// Gain sources
const (
	SourceUpgrade = "upgrade"
	SourceTooltip = "tooltip"
	SourceCatalog = "catalog"
	SourceStall   = "stall"
)

// Decision is one purchase to make.
type Decision struct {
	Name       string      `json:"name"`
	Cost       game.Amount `json:"cost"`
	Gain       float64     `json:"gain"`
	Payoff     float64     `json:"payoff"` // seconds; 0 is immediate, +Inf least urgent
	ClickPos   image.Point `json:"click_pos"`
	Upgrade    bool        `json:"upgrade"`
	Index      int         `json:"index"`
	Affordable bool        `json:"affordable"`
	Source     string      `json:"source"`
}

// Key identifies the click target for cooldown tracking.
func (d Decision) Key() string {
	if d.Upgrade {
		return game.Upgrade{Index: d.Index}.Key()
	}
	return d.Name
}

// MarshalJSON encodes an infinite payoff as null.
func (d Decision) MarshalJSON() ([]byte, error) {
	type plain Decision
	var p *float64
	if !math.IsInf(d.Payoff, 0) && !math.IsNaN(d.Payoff) {
		v := d.Payoff
		p = &v
	}
	return json.Marshal(struct {
		plain
		Payoff *float64 `json:"payoff"`
	}{plain(d), p})
}

// Refresher updates the tooltip cache before ranking.
type Refresher interface {
	MaybeRefresh(ctx context.Context, snap *game.Snapshot) (int, error)
}

// Engine ranks purchases. It owns the tooltip cache it reads from.
type Engine struct {
	mu          sync.RWMutex
	multipliers map[string]float64

	cache      *tooltip.Cache
	refresher  Refresher
	stallAfter time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithTooltips makes the engine prefer tooltip readings from cache and, when
// r is non-nil, refresh them before every decision.
func WithTooltips(cache *tooltip.Cache, r Refresher) Option {
	return func(e *Engine) {
		e.cache = cache
		e.refresher = r
	}
}

// WithStallAfter sets how long flat production must last before the
// cheapest affordable building is bought regardless of rank.
func WithStallAfter(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.stallAfter = d
		}
	}
}

// New creates an engine with every per-building multiplier at 1.
func New(opts ...Option) *Engine {
	e := &Engine{
		multipliers: make(map[string]float64, len(game.Catalog)),
		stallAfter:  DefaultStallAfter,
	}
	for _, k := range game.Catalog {
		e.multipliers[strings.ToLower(k.Name)] = 1
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetMultiplier adjusts the upgrade boost assumed for one building.
func (e *Engine) SetMultiplier(name string, m float64) error {
	if m <= 0 || math.IsInf(m, 0) || math.IsNaN(m) {
		return apperrors.Newf(apperrors.InvalidArgument, "multiplier for %s must be positive", name)
	}
	k := strings.ToLower(name)
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.multipliers[k]; !ok {
		return apperrors.Newf(apperrors.NotFound, "unknown building %q", name)
	}
	e.multipliers[k] = m
	return nil
}

// Multiplier returns the per-building multiplier for name.
func (e *Engine) Multiplier(name string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if m, ok := e.multipliers[strings.ToLower(name)]; ok {
		return m
	}
	return 1
}

// Cache returns the tooltip cache, or nil when tooltips are disabled.
func (e *Engine) Cache() *tooltip.Cache { return e.cache }

// BestPurchase refreshes tooltips if configured and returns the purchase to
// make, or false when nothing qualifies. The error is non-nil only for the
// emergency stop or cancellation.
func (e *Engine) BestPurchase(ctx context.Context, snap *game.Snapshot) (Decision, bool, error) {
	log := trace.Logger(ctx)

	if len(snap.Upgrades) > 0 {
		u := snap.Upgrades[0]
		return Decision{
			Name:     u.Key(),
			Cost:     game.Unknown,
			ClickPos: u.ClickPos,
			Upgrade:  true,
			Index:    u.Index,
			Source:   SourceUpgrade,
		}, true, nil
	}

	if e.refresher != nil {
		if _, err := e.refresher.MaybeRefresh(ctx, snap); err != nil {
			if apperrors.IsFailsafe(err) || ctx.Err() != nil {
				return Decision{}, false, err
			}
			log.Warn("tooltip refresh failed", "error", err)
		}
	}

	candidates := e.Candidates(snap)

	if snap.IsStalling(e.stallAfter) {
		if d, ok := cheapestAffordable(candidates); ok {
			log.Info("production stalled, buying cheapest affordable", "building", d.Name, "cost", d.Cost.Value)
			return d, true, nil
		}
	}

	ranked := qualifying(candidates)
	if len(ranked) == 0 {
		return Decision{}, false, nil
	}
	best := ranked[0]
	if !best.Affordable {
		for _, c := range ranked[1:] {
			if !c.Affordable {
				continue
			}
			if c.Payoff < best.Payoff*AffordableSlack {
				log.Debug("preferring affordable purchase", "building", c.Name, "payoff", c.Payoff, "best", best.Name, "best_payoff", best.Payoff)
				return c, true, nil
			}
			break
		}
	}
	return best, true, nil
}

// Candidates evaluates every shop row in shop order, qualifying or not.
func (e *Engine) Candidates(snap *game.Snapshot) []Decision {
	global := e.GlobalMultiplier(snap)
	out := make([]Decision, 0, len(snap.Buildings))
	for _, b := range snap.Buildings {
		d := Decision{
			Name:       b.Name,
			Cost:       b.Cost,
			ClickPos:   b.ClickPos,
			Affordable: b.Affordable,
			Source:     SourceCatalog,
		}
		if entry, ok := e.tooltip(b.Name); ok {
			d.Gain = entry.Single
			d.Source = SourceTooltip
			if entry.Price > 0 {
				d.Cost = game.Of(entry.Price)
				d.Affordable = snap.Cookies >= entry.Price
			}
		} else {
			d.Gain = game.BaseCPS(b.Name) * e.Multiplier(b.Name) * global
		}
		d.Payoff = payoff(d.Cost, d.Gain)
		out = append(out, d)
	}
	return out
}

func (e *Engine) tooltip(name string) (tooltip.Entry, bool) {
	if e.cache == nil {
		return tooltip.Entry{}, false
	}
	entry, ok := e.cache.Lookup(name)
	return entry, ok && entry.Single > 0
}

// GlobalMultiplier estimates the combined upgrade boost as observed
// production over the theoretical base production of owned buildings.
func (e *Engine) GlobalMultiplier(snap *game.Snapshot) float64 {
	if snap.Rate <= 0 {
		return MinGlobalMultiplier
	}
	var base float64
	for _, b := range snap.Buildings {
		base += float64(b.Count) * game.BaseCPS(b.Name)
	}
	if base <= 0 {
		return MinGlobalMultiplier
	}
	return math.Max(MinGlobalMultiplier, math.Min(snap.Rate/base, MaxGlobalMultiplier))
}

func payoff(cost game.Amount, gain float64) float64 {
	switch {
	case gain <= 0:
		return math.Inf(1)
	case !cost.Known:
		return UnknownPayoff
	case cost.Value <= 0:
		return math.Inf(1)
	}
	return cost.Value / gain
}

// qualifying drops candidates with no gain or a non-positive known cost and
// sorts the rest by payoff, keeping shop order on ties.
func qualifying(cs []Decision) []Decision {
	var out []Decision
	for _, c := range cs {
		if c.Gain <= 0 || (c.Cost.Known && c.Cost.Value <= 0) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Payoff < out[j].Payoff })
	return out
}

func cheapestAffordable(cs []Decision) (Decision, bool) {
	var best Decision
	found := false
	for _, c := range cs {
		if !c.Affordable || !c.Cost.Positive() {
			continue
		}
		if !found || c.Cost.Value < best.Cost.Value {
			best, found = c, true
		}
	}
	if found {
		best.Payoff = math.Inf(1)
		best.Source = SourceStall
	}
	return best, found
}
