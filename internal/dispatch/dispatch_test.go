package dispatch

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
	"github.com/GriffinCanCode/crumbot/internal/layout"
	"github.com/GriffinCanCode/crumbot/internal/strategy"
	"github.com/GriffinCanCode/crumbot/internal/window"
)

type mockPointer struct {
	pos    image.Point
	moves  []image.Point
	durs   []time.Duration
	clicks int
	err    error
}

func (m *mockPointer) MoveTo(_ context.Context, p image.Point, d time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.moves = append(m.moves, p)
	m.durs = append(m.durs, d)
	m.pos = p
	return nil
}

func (m *mockPointer) Click(context.Context) error {
	if m.err != nil {
		return m.err
	}
	m.clicks++
	return nil
}

func (m *mockPointer) Position() image.Point { return m.pos }

type fixedWindow struct{ r window.Rect }

func (f fixedWindow) Rect() window.Rect { return f.r }

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setup() (*Dispatcher, *mockPointer, *clock) {
	c := &clock{t: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)}
	ptr := &mockPointer{}
	win := fixedWindow{window.Rect{Left: 100, Top: 50, Width: 1456, Height: 800}}
	d := New(ptr, win, layout.Default(), NewCooldown(DefaultCooldown).WithClock(c.now), DefaultMainJitter).WithSeed(7)
	return d, ptr, c
}

func TestBuyCooldown(t *testing.T) {
	d, ptr, c := setup()
	dec := strategy.Decision{Name: "Farm", ClickPos: image.Pt(1400, 385)}

	ok, err := d.Buy(context.Background(), dec)
	require.NoError(t, err)
	assert.True(t, ok)

	c.t = c.t.Add(300 * time.Millisecond)
	ok, err = d.Buy(context.Background(), dec)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, ptr.clicks, "second click within the cooldown is dropped")

	other := strategy.Decision{Name: "Mine", ClickPos: image.Pt(1400, 445)}
	ok, _ = d.Buy(context.Background(), other)
	assert.True(t, ok, "cooldowns are per target")

	c.t = c.t.Add(200 * time.Millisecond)
	ok, _ = d.Buy(context.Background(), dec)
	assert.True(t, ok)
	assert.Equal(t, 3, ptr.clicks)
}

func TestBuyJitter(t *testing.T) {
	d, ptr, c := setup()
	target := image.Pt(1400, 385)
	for i := 0; i < 50; i++ {
		c.t = c.t.Add(time.Second)
		_, err := d.Buy(context.Background(), strategy.Decision{Name: "Farm", ClickPos: target})
		require.NoError(t, err)
	}
	for _, p := range ptr.moves {
		off := p.Sub(target)
		assert.LessOrEqual(t, abs(off.X), BuyJitterX)
		assert.LessOrEqual(t, abs(off.Y), BuyJitterY)
	}
	assert.Equal(t, BuyMove, ptr.durs[0])
}

func TestUpgradeClickIsExact(t *testing.T) {
	d, ptr, _ := setup()
	dec := strategy.Decision{Name: "upgrade_3", Upgrade: true, Index: 3, ClickPos: image.Pt(1418, 162)}

	ok, err := d.Buy(context.Background(), dec)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []image.Point{{1418, 162}}, ptr.moves)

	ok, _ = d.Buy(context.Background(), dec)
	assert.False(t, ok)
}

func TestClickMainJitter(t *testing.T) {
	d, ptr, _ := setup()
	center := image.Pt(100+215, 50+430)
	assert.Equal(t, center, d.MainTarget())

	for i := 0; i < 100; i++ {
		require.NoError(t, d.ClickMain(context.Background()))
	}
	assert.Equal(t, 100, ptr.clicks)
	for _, p := range ptr.moves {
		off := p.Sub(center)
		assert.LessOrEqual(t, abs(off.X), DefaultMainJitter)
		assert.LessOrEqual(t, abs(off.Y), DefaultMainJitter)
	}
}

func TestClickBonusBypassesCooldown(t *testing.T) {
	d, ptr, _ := setup()
	p := image.Pt(600, 300)
	for i := 0; i < 3; i++ {
		require.NoError(t, d.ClickBonus(context.Background(), p))
	}
	assert.Equal(t, 3, ptr.clicks)
	assert.Equal(t, p, ptr.moves[0])
	assert.Equal(t, BonusMove, ptr.durs[0])
}

func TestMoveAway(t *testing.T) {
	d, ptr, _ := setup()
	require.NoError(t, d.MoveAway(context.Background()))
	assert.Equal(t, image.Pt(100+1456-20, 50+800-20), ptr.pos)
}

func TestFailsafePropagates(t *testing.T) {
	d, ptr, _ := setup()
	ptr.err = apperrors.ErrFailsafe

	assert.ErrorIs(t, d.ClickMain(context.Background()), apperrors.ErrFailsafe)
	assert.ErrorIs(t, d.ClickBonus(context.Background(), image.Pt(1, 1)), apperrors.ErrFailsafe)
	ok, err := d.Buy(context.Background(), strategy.Decision{Name: "Farm"})
	assert.ErrorIs(t, err, apperrors.ErrFailsafe)
	assert.False(t, ok)

	ptr.err = nil
	ok, _ = d.Buy(context.Background(), strategy.Decision{Name: "Farm"})
	assert.True(t, ok, "failed click does not start the cooldown")
}

type slowPointer struct {
	mu     sync.Mutex
	clicks int
}

func (s *slowPointer) MoveTo(context.Context, image.Point, time.Duration) error {
	time.Sleep(20 * time.Millisecond)
	return nil
}

func (s *slowPointer) Click(context.Context) error {
	s.mu.Lock()
	s.clicks++
	s.mu.Unlock()
	return nil
}

func (s *slowPointer) Position() image.Point { return image.Point{} }

func TestConcurrentBuyClicksOnce(t *testing.T) {
	ptr := &slowPointer{}
	win := fixedWindow{window.Rect{Left: 100, Top: 50, Width: 1456, Height: 800}}
	d := New(ptr, win, layout.Default(), NewCooldown(DefaultCooldown), DefaultMainJitter).WithSeed(3)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		bought int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := d.Buy(context.Background(), strategy.Decision{Name: "Farm", ClickPos: image.Pt(1300, 335)})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				bought++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, bought)
	assert.Equal(t, 1, ptr.clicks)
}

func TestCooldownAcquireRelease(t *testing.T) {
	c := &clock{t: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)}
	cd := NewCooldown(DefaultCooldown).WithClock(c.now)

	assert.True(t, cd.Acquire("farm"))
	assert.False(t, cd.Acquire("farm"))
	assert.True(t, cd.Acquire("mine"), "keys are independent")

	cd.Release("farm")
	assert.True(t, cd.Acquire("farm"))

	c.t = c.t.Add(DefaultCooldown)
	assert.True(t, cd.Acquire("farm"))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
