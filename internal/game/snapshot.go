package game

import (
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	"github.com/GriffinCanCode/crumbot/internal/numparse"
)

// HistorySize bounds the production-rate trend samples kept.
const HistorySize = 10

// StallGrowth is the relative rate growth below which production counts as flat.
const StallGrowth = 0.01

// Building is one shop row as last read.
type Building struct {
	Name       string      `json:"name"`
	Cost       Amount      `json:"cost"`
	Count      int         `json:"count"`
	Lit        bool        `json:"lit"` // the game renders the row as purchasable
	Affordable bool        `json:"affordable"`
	Row        int         `json:"row"`
	ClickPos   image.Point `json:"click_pos"`
}

// Upgrade is an occupied slot of the upgrade strip.
type Upgrade struct {
	Index    int         `json:"index"`
	ClickPos image.Point `json:"click_pos"`
}

// Key is the cooldown key of the upgrade.
func (u Upgrade) Key() string { return fmt.Sprintf("upgrade_%d", u.Index) }

// Sample is one production-rate reading.
type Sample struct {
	At   time.Time `json:"at"`
	Rate float64   `json:"rate"`
}

// Snapshot is an immutable view of the game. A refresh builds a new one.
type Snapshot struct {
	Seq       int        `json:"seq"`
	Cookies   float64    `json:"cookies"`
	Rate      float64    `json:"rate"`
	Buildings []Building `json:"buildings"`
	Upgrades  []Upgrade  `json:"upgrades"`
	History   []Sample   `json:"history"`
	Owned     int        `json:"owned"`
	Taken     time.Time  `json:"taken"`
}

// Building looks up a shop row by name, ignoring case.
func (s *Snapshot) Building(name string) (Building, bool) {
	for _, b := range s.Buildings {
		if strings.EqualFold(b.Name, name) {
			return b, true
		}
	}
	return Building{}, false
}

// Affordable returns the buildings that can be bought now.
func (s *Snapshot) Affordable() []Building {
	var out []Building
	for _, b := range s.Buildings {
		if b.Affordable {
			out = append(out, b)
		}
	}
	return out
}

// Cheapest returns the building with the lowest known positive cost.
func (s *Snapshot) Cheapest() (Building, bool) {
	return cheapest(s.Buildings, false)
}

// CheapestAffordable returns the cheapest building that can be bought now.
func (s *Snapshot) CheapestAffordable() (Building, bool) {
	return cheapest(s.Buildings, true)
}

func cheapest(bs []Building, affordableOnly bool) (Building, bool) {
	var best Building
	found := false
	for _, b := range bs {
		if !b.Cost.Positive() || (affordableOnly && !b.Affordable) {
			continue
		}
		if !found || b.Cost.Value < best.Cost.Value {
			best, found = b, true
		}
	}
	return best, found
}

// TimeToAfford returns the seconds until cost is affordable at the current
// rate: 0 when already affordable, +Inf when nothing is produced.
func (s *Snapshot) TimeToAfford(cost float64) float64 {
	if s.Cookies >= cost {
		return 0
	}
	if s.Rate <= 0 {
		return math.Inf(1)
	}
	return (cost - s.Cookies) / s.Rate
}

// GrowthPerMinute compares the oldest and newest rate samples.
func (s *Snapshot) GrowthPerMinute() float64 {
	if len(s.History) < 2 {
		return 0
	}
	first, last := s.History[0], s.History[len(s.History)-1]
	dt := last.At.Sub(first.At).Seconds()
	if dt <= 0 {
		return 0
	}
	return (last.Rate - first.Rate) / dt * 60
}

// IsStalling reports whether at least threshold separates the oldest and
// newest samples while the rate grew by less than one percent.
func (s *Snapshot) IsStalling(threshold time.Duration) bool {
	if len(s.History) < 2 {
		return false
	}
	first, last := s.History[0], s.History[len(s.History)-1]
	if last.At.Sub(first.At) < threshold {
		return false
	}
	if first.Rate <= 0 {
		return false
	}
	return (last.Rate-first.Rate)/first.Rate < StallGrowth
}

// Age returns how old the snapshot is at now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	if s.Taken.IsZero() {
		return time.Duration(math.MaxInt64)
	}
	return now.Sub(s.Taken)
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("Snapshot(cookies=%s, cps=%s, buildings=%d, upgrades=%d)",
		numparse.Format(s.Cookies), numparse.Format(s.Rate), s.Owned, len(s.Upgrades))
}

// Summary renders a multi-line report for the periodic stats log.
func (s *Snapshot) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cookies:   %20s\n", numparse.Format(s.Cookies))
	fmt.Fprintf(&b, "cps:       %20s\n", numparse.Format(s.Rate))
	fmt.Fprintf(&b, "growth:    %16.2f cps/min\n", s.GrowthPerMinute())
	fmt.Fprintf(&b, "owned:     %20d\n", s.Owned)
	b.WriteString("shop:")
	for _, row := range s.Buildings {
		mark := " "
		if row.Affordable {
			mark = "*"
		}
		fmt.Fprintf(&b, "\n  %s %-22s cost %15s  owned %4d", mark, row.Name, row.Cost, row.Count)
	}
	return b.String()
}

func (s *Snapshot) clone() *Snapshot {
	next := *s
	next.Buildings = append([]Building(nil), s.Buildings...)
	next.Upgrades = append([]Upgrade(nil), s.Upgrades...)
	next.History = append([]Sample(nil), s.History...)
	return &next
}

// settle recomputes the derived fields.
func (s *Snapshot) settle() {
	s.Owned = 0
	for i := range s.Buildings {
		b := &s.Buildings[i]
		if b.Cost.Positive() {
			b.Affordable = s.Cookies >= b.Cost.Value
		} else {
			b.Affordable = b.Lit
		}
		s.Owned += b.Count
	}
}
