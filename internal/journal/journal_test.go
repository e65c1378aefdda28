package journal

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_AppendAndRecent(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Append(
		Record{Name: "Cursor", Cost: 15},
		Record{Name: "Grandma", Cost: 100},
	))
	require.NoError(t, s.Append(Record{Name: "upgrade_0", Upgrade: true}))

	recs, err := s.Recent(2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "upgrade_0", recs[0].Name)
	assert.Equal(t, uint64(3), recs[0].Seq)
	assert.True(t, recs[0].Upgrade)
	assert.Equal(t, "Grandma", recs[1].Name)

	all, err := s.Recent(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStore_Totals(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Append(Record{Name: "Cursor"}, Record{Name: "Cursor"}, Record{Name: "Farm"}))
	totals, err := s.Totals()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Cursor": 2, "Farm": 1}, totals)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(Record{Name: "Mine", Cost: 12000}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	recs, err := s.Recent(0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Mine", recs[0].Name)
	assert.InDelta(t, 12000, recs[0].Cost, 0)
}

func TestStore_EmptyAppend(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Append())
	recs, err := s.Recent(5)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

type mockSink struct {
	mu    sync.Mutex
	calls [][]Record
	err   error
}

func (m *mockSink) Append(records ...Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]Record(nil), records...))
	return m.err
}

func (m *mockSink) getCalls() [][]Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestBatcher_FlushOnMaxSize(t *testing.T) {
	sink := &mockSink{}
	b := NewBatcher(sink, "s1", 2, time.Hour)
	b.Add(Record{Name: "Cursor"})
	assert.Equal(t, 1, b.Pending())
	b.Add(Record{Name: "Grandma"})
	b.Stop()

	calls := sink.getCalls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 2)
	assert.Equal(t, "s1", calls[0][0].Session)
	assert.False(t, calls[0][0].At.IsZero())
}

func TestBatcher_FlushOnDelay(t *testing.T) {
	sink := &mockSink{}
	b := NewBatcher(sink, "s1", 100, 20*time.Millisecond)
	b.Add(Record{Name: "Cursor"})
	assert.Eventually(t, func() bool { return len(sink.getCalls()) == 1 }, time.Second, 5*time.Millisecond)
	b.Stop()
}

func TestBatcher_StopFlushesRemaining(t *testing.T) {
	sink := &mockSink{}
	b := NewBatcher(sink, "s1", 100, time.Hour)
	b.Add(Record{Name: "Farm"})
	b.Stop()
	require.Len(t, sink.getCalls(), 1)

	b.Add(Record{Name: "dropped"})
	assert.Equal(t, 0, b.Pending())
}

func TestBatcher_OnFlushReportsError(t *testing.T) {
	sink := &mockSink{err: errors.New("disk full")}
	b := NewBatcher(sink, "s1", 1, time.Hour)
	var (
		mu  sync.Mutex
		got error
	)
	b.OnFlush(func(_ int, err error) {
		mu.Lock()
		got = err
		mu.Unlock()
	})
	b.Add(Record{Name: "Cursor"})
	b.Stop()
	mu.Lock()
	defer mu.Unlock()
	assert.EqualError(t, got, "disk full")
}

func TestBatcher_WritesToStore(t *testing.T) {
	s := openTemp(t)
	b := NewBatcher(s, "run", 5, time.Hour)
	b.Add(Record{Name: "Cursor", Cost: 15})
	b.Add(Record{Name: "Cursor", Cost: 17})
	b.Stop()
	recs, err := s.Recent(0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "run", recs[0].Session)
	assert.InDelta(t, 17, recs[0].Cost, 0)
}
