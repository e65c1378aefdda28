package window

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
)

type mockProvider struct {
	rects []Rect
	errs  []error
	calls int
}

func (m *mockProvider) Find(titles []string) (Rect, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return Rect{}, m.errs[i]
	}
	if i < len(m.rects) {
		return m.rects[i], nil
	}
	return m.rects[len(m.rects)-1], nil
}

func TestRectGeometry(t *testing.T) {
	r := Rect{Left: 100, Top: 50, Width: 1456, Height: 800}

	assert.Equal(t, 1556, r.Right())
	assert.Equal(t, 850, r.Bottom())
	assert.Equal(t, image.Pt(828, 450), r.Center())
	assert.Equal(t, image.Pt(315, 480), r.Abs(image.Pt(215, 430)))
	assert.Equal(t, image.Rect(110, 60, 120, 70), r.AbsRect(image.Rect(10, 10, 20, 20)))
	assert.True(t, r.Contains(image.Pt(100, 50)))
	assert.False(t, r.Contains(image.Pt(1556, 850)))
	assert.False(t, r.Empty())
	assert.True(t, Rect{}.Empty())
}

func TestLocateRetriesUntilFound(t *testing.T) {
	want := Rect{Left: 1, Top: 2, Width: 300, Height: 200}
	p := &mockProvider{
		errs:  []error{errors.New("absent"), errors.New("absent")},
		rects: []Rect{{}, {}, want},
	}
	l := NewLocator(p, []string{"Cookie Clicker"}, 5, time.Millisecond, 0)

	got, err := l.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, want, l.Rect())
	assert.Equal(t, 3, p.calls)
}

func TestLocateGivesUp(t *testing.T) {
	absent := errors.New("absent")
	p := &mockProvider{errs: []error{absent, absent, absent, absent, absent}, rects: []Rect{{}}}
	l := NewLocator(p, []string{"Cookie Clicker"}, 5, time.Millisecond, 0)

	_, err := l.Locate(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.WindowNotFound))
	assert.ErrorIs(t, err, absent)
	assert.Equal(t, 5, p.calls)
}

func TestLocateRejectsEmptyWindow(t *testing.T) {
	p := &mockProvider{rects: []Rect{{Left: 5}}}
	l := NewLocator(p, []string{"x"}, 2, time.Millisecond, 0)

	_, err := l.Locate(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.WindowNotFound))
	assert.Equal(t, 2, p.calls)
}

func TestRefreshDetectsMove(t *testing.T) {
	a := Rect{Left: 0, Top: 0, Width: 100, Height: 100}
	b := Rect{Left: 10, Top: 0, Width: 100, Height: 100}
	p := &mockProvider{rects: []Rect{a, a, b}}
	l := NewLocator(p, []string{"x"}, 1, time.Millisecond, 0)

	_, err := l.Locate(context.Background())
	require.NoError(t, err)

	moved, err := l.Refresh()
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = l.Refresh()
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, b, l.Rect())
}

func TestRefreshKeepsRectWhenMinimized(t *testing.T) {
	a := Rect{Left: 20, Top: 30, Width: 1456, Height: 800}
	p := &mockProvider{rects: []Rect{a, {Left: -32000, Top: -32000}}}
	l := NewLocator(p, []string{"x"}, 1, time.Millisecond, 0)

	_, err := l.Locate(context.Background())
	require.NoError(t, err)

	moved, err := l.Refresh()
	assert.True(t, apperrors.IsCode(err, apperrors.WindowNotFound))
	assert.False(t, moved)
	assert.Equal(t, a, l.Rect())
}
