// Package history keeps a file-based record of finished runs so results
// can be listed and compared across runs against the same target.
//
// Records live in a single JSON index that is rewritten atomically on
// every change.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pentestflow/pentestflow/pkg/finding"
	"github.com/pentestflow/pentestflow/pkg/jsonutil"
)

// ErrRunNotFound is returned when no record has the requested ID.
var ErrRunNotFound = errors.New("run not found")

const indexFile = "index.json"

// Store manages run records in a directory.
type Store struct {
	mu       sync.RWMutex
	basePath string
	index    *storeIndex
	now      func() time.Time
}

type storeIndex struct {
	Runs map[string]*RunRecord `json:"runs"`
}

// RunRecord summarizes one finalized run.
type RunRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Target    string    `json:"target"`
	Mode      string    `json:"mode"`

	SectionCount int `json:"section_count"`
	// SeverityCounts maps Low/Medium/High to the number of sections at
	// that effective severity.
	SeverityCounts map[string]int `json:"severity_counts"`

	Artifacts []string `json:"artifacts"`
	Warnings  int      `json:"warnings"`

	Duration time.Duration `json:"duration,format:nano"`
	Version  string        `json:"version"`
}

// RiskScore weights every section by its severity score.
func (r *RunRecord) RiskScore() int {
	total := 0
	for label, n := range r.SeverityCounts {
		total += finding.Severity(label).Score() * n
	}
	return total
}

// Highest returns the highest severity with a non-zero count.
func (r *RunRecord) Highest() finding.Severity {
	var present []finding.Severity
	for label, n := range r.SeverityCounts {
		if n > 0 {
			present = append(present, finding.Severity(label))
		}
	}
	return finding.Max(present...)
}

// ComparisonResult is the difference between two runs.
type ComparisonResult struct {
	BaseID           string         `json:"base_id"`
	CompareID        string         `json:"compare_id"`
	BaseTimestamp    time.Time      `json:"base_timestamp"`
	CompareTimestamp time.Time      `json:"compare_timestamp"`
	SectionDelta     int            `json:"section_delta"`
	SeverityDeltas   map[string]int `json:"severity_deltas"`
	RiskDelta        int            `json:"risk_delta"`
	Improved         bool           `json:"improved"`
}

// StoreStats describes the store contents.
type StoreStats struct {
	TotalRuns        int       `json:"total_runs"`
	UniqueTargets    int       `json:"unique_targets"`
	OldestRun        time.Time `json:"oldest_run"`
	NewestRun        time.Time `json:"newest_run"`
	StorageSizeBytes int64     `json:"storage_size_bytes"`
}

// NewStore opens (creating if needed) the store at basePath.
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	s := &Store{
		basePath: basePath,
		index:    &storeIndex{Runs: make(map[string]*RunRecord)},
		now:      time.Now,
	}
	if err := s.loadIndex(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("history: load index: %w", err)
	}
	return s, nil
}

func (s *Store) indexPath() string {
	return filepath.Join(s.basePath, indexFile)
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		return err
	}
	if err := jsonutil.Unmarshal(data, s.index); err != nil {
		return err
	}
	if s.index.Runs == nil {
		s.index.Runs = make(map[string]*RunRecord)
	}
	return nil
}

// saveIndex writes to a temporary file and renames it over the index.
func (s *Store) saveIndex() error {
	data, err := jsonutil.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.indexPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.indexPath()); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Save stores record, replacing any record with the same ID.
func (s *Store) Save(record *RunRecord) error {
	if record == nil || record.ID == "" {
		return errors.New("history: record needs an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index.Runs[record.ID] = copyRecord(record)
	return s.saveIndex()
}

func copyRecord(r *RunRecord) *RunRecord {
	c := *r
	if r.SeverityCounts != nil {
		c.SeverityCounts = make(map[string]int, len(r.SeverityCounts))
		for k, v := range r.SeverityCounts {
			c.SeverityCounts[k] = v
		}
	}
	c.Artifacts = append([]string(nil), r.Artifacts...)
	return &c
}

// Get returns a copy of the record with the given ID.
func (s *Store) Get(id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.index.Runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return copyRecord(record), nil
}

// List returns records for target (all targets when empty), newest
// first. limit <= 0 means no limit.
func (s *Store) List(target string, limit int) []*RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*RunRecord
	for _, r := range s.index.Runs {
		if target != "" && r.Target != target {
			continue
		}
		records = append(records, copyRecord(r))
	}
	sortNewestFirst(records)

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

func sortNewestFirst(records []*RunRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].ID < records[j].ID
		}
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}

// Latest returns the most recent run for target.
func (s *Store) Latest(target string) (*RunRecord, error) {
	records := s.List(target, 1)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no runs for %s", ErrRunNotFound, target)
	}
	return records[0], nil
}

// Compare returns how compareID differs from baseID. A run improved when
// its risk score went down.
func (s *Store) Compare(baseID, compareID string) (*ComparisonResult, error) {
	base, err := s.Get(baseID)
	if err != nil {
		return nil, err
	}
	cmp, err := s.Get(compareID)
	if err != nil {
		return nil, err
	}

	deltas := make(map[string]int, len(finding.Levels))
	for _, lvl := range finding.Levels {
		deltas[string(lvl)] = cmp.SeverityCounts[string(lvl)] - base.SeverityCounts[string(lvl)]
	}

	res := &ComparisonResult{
		BaseID:           baseID,
		CompareID:        compareID,
		BaseTimestamp:    base.Timestamp,
		CompareTimestamp: cmp.Timestamp,
		SectionDelta:     cmp.SectionCount - base.SectionCount,
		SeverityDeltas:   deltas,
		RiskDelta:        cmp.RiskScore() - base.RiskScore(),
	}
	res.Improved = res.RiskDelta < 0
	return res, nil
}

// Delete removes a record.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index.Runs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	delete(s.index.Runs, id)
	return s.saveIndex()
}

// Prune removes records older than olderThan and returns how many went.
func (s *Store) Prune(olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-olderThan)
	count := 0
	for id, r := range s.index.Runs {
		if r.Timestamp.Before(cutoff) {
			delete(s.index.Runs, id)
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return count, s.saveIndex()
}

// Keep retains the newest n records and removes the rest.
func (s *Store) Keep(n int) (int, error) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.index.Runs) <= n {
		return 0, nil
	}
	records := make([]*RunRecord, 0, len(s.index.Runs))
	for _, r := range s.index.Runs {
		records = append(records, r)
	}
	sortNewestFirst(records)
	for _, r := range records[n:] {
		delete(s.index.Runs, r.ID)
	}
	return len(records) - n, s.saveIndex()
}

// Stats returns storage statistics.
func (s *Store) Stats() *StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &StoreStats{TotalRuns: len(s.index.Runs)}
	targets := make(map[string]struct{})
	for _, r := range s.index.Runs {
		targets[r.Target] = struct{}{}
		if stats.OldestRun.IsZero() || r.Timestamp.Before(stats.OldestRun) {
			stats.OldestRun = r.Timestamp
		}
		if r.Timestamp.After(stats.NewestRun) {
			stats.NewestRun = r.Timestamp
		}
	}
	stats.UniqueTargets = len(targets)

	if info, err := os.Stat(s.indexPath()); err == nil {
		stats.StorageSizeBytes = info.Size()
	}
	return stats
}

// Close is a no-op; every change is already on disk.
func (s *Store) Close() error {
	return nil
}
