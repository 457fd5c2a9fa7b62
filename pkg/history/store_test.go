package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentestflow/pentestflow/pkg/finding"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func record(id, target string, at time.Time, high, medium, low int) *RunRecord {
	return &RunRecord{
		ID:           id,
		Timestamp:    at,
		Target:       target,
		Mode:         "full",
		SectionCount: high + medium + low,
		SeverityCounts: map[string]int{
			"High": high, "Medium": medium, "Low": low,
		},
		Artifacts: []string{"pentest_report.txt"},
		Duration:  1500 * time.Millisecond,
		Version:   "1.2.0",
	}
}

func TestSaveGetRoundTripOnDisk(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(record("a", "http://example.com", t0, 1, 0, 4)))

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	got, err := reopened.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.Equal(t, 4, got.SeverityCounts["Low"])
	assert.True(t, got.Timestamp.Equal(t0))

	_, err = os.Stat(filepath.Join(dir, indexFile+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Save(record("a", "x", t0, 0, 0, 1)))

	got, err := s.Get("a")
	require.NoError(t, err)
	got.SeverityCounts["Low"] = 99
	got.Artifacts[0] = "mutated"

	again, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 1, again.SeverityCounts["Low"])
	assert.Equal(t, "pentest_report.txt", again.Artifacts[0])
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, s.Delete("missing"), ErrRunNotFound)
	_, err = s.Latest("http://nowhere")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.Error(t, s.Save(&RunRecord{}))
}

func TestListOrderAndFilter(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Save(record("old", "a", t0, 0, 0, 1)))
	require.NoError(t, s.Save(record("new", "a", t0.Add(time.Hour), 0, 0, 1)))
	require.NoError(t, s.Save(record("other", "b", t0.Add(2*time.Hour), 0, 0, 1)))

	all := s.List("", 0)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"other", "new", "old"}, []string{all[0].ID, all[1].ID, all[2].ID})

	onlyA := s.List("a", 1)
	require.Len(t, onlyA, 1)
	assert.Equal(t, "new", onlyA[0].ID)

	latest, err := s.Latest("a")
	require.NoError(t, err)
	assert.Equal(t, "new", latest.ID)
}

func TestCompare(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Save(record("before", "a", t0, 2, 1, 3)))
	require.NoError(t, s.Save(record("after", "a", t0.Add(time.Hour), 0, 1, 4)))

	res, err := s.Compare("before", "after")
	require.NoError(t, err)
	assert.Equal(t, -2, res.SeverityDeltas["High"])
	assert.Equal(t, 0, res.SeverityDeltas["Medium"])
	assert.Equal(t, 1, res.SeverityDeltas["Low"])
	assert.Equal(t, -1, res.SectionDelta)
	assert.Equal(t, (0*3+1*2+4)-(2*3+1*2+3), res.RiskDelta)
	assert.True(t, res.Improved)

	_, err = s.Compare("before", "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestPruneAndKeep(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	s.now = func() time.Time { return t0.Add(48 * time.Hour) }

	for i, at := range []time.Time{t0, t0.Add(time.Hour), t0.Add(47 * time.Hour), t0.Add(47*time.Hour + time.Minute)} {
		require.NoError(t, s.Save(record(string(rune('a'+i)), "x", at, 0, 0, 1)))
	}

	n, err := s.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Keep(1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	remaining := s.List("", 0)
	require.Len(t, remaining, 1)
	assert.Equal(t, "d", remaining[0].ID)

	n, err = s.Keep(5)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStats(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Save(record("a", "one", t0, 0, 0, 1)))
	require.NoError(t, s.Save(record("b", "two", t0.Add(time.Hour), 0, 0, 1)))
	require.NoError(t, s.Save(record("c", "two", t0.Add(2*time.Hour), 0, 0, 1)))

	st := s.Stats()
	assert.Equal(t, 3, st.TotalRuns)
	assert.Equal(t, 2, st.UniqueTargets)
	assert.True(t, st.OldestRun.Equal(t0))
	assert.True(t, st.NewestRun.Equal(t0.Add(2*time.Hour)))
	assert.Positive(t, st.StorageSizeBytes)
	assert.NoError(t, s.Close())
}

func TestRecordHelpers(t *testing.T) {
	t.Parallel()

	r := record("a", "x", t0, 0, 2, 1)
	assert.Equal(t, finding.Medium, r.Highest())
	assert.Equal(t, 5, r.RiskScore())

	empty := &RunRecord{}
	assert.Equal(t, finding.Severity(""), empty.Highest())
}

func TestCorruptIndex(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, indexFile), []byte("{not json"), 0o644))

	_, err := NewStore(dir)
	assert.Error(t, err)
}
