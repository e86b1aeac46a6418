package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MonthlyStats represents statistics for a specific month
type MonthlyStats struct {
	Analyses         int            `json:"analyses"`
	Failures         map[string]int `json:"failures"`
	CacheHits        int            `json:"cache_hits"`
	CacheMisses      int            `json:"cache_misses"`
	SnapshotFailures int            `json:"snapshot_failures"`
	TotalLatencyMs   int64          `json:"total_latency_ms"`
	PopularURLs      map[string]int `json:"popular_urls"`
	LastUpdated      time.Time      `json:"last_updated"`
}

func newMonthlyStats() *MonthlyStats {
	return &MonthlyStats{
		Failures:    make(map[string]int),
		PopularURLs: make(map[string]int),
	}
}

// FailureCount sums failures of every kind
func (m MonthlyStats) FailureCount() int {
	total := 0
	for _, n := range m.Failures {
		total += n
	}
	return total
}

// Storage handles persistent storage of statistics
type Storage struct {
	mutex     sync.RWMutex
	flushMu   sync.Mutex // one writer of stats.json.tmp at a time
	stats     map[string]*MonthlyStats // key: "YYYY-MM"
	visitors  map[string]time.Time     // IP -> last visit, not persisted
	filePath  string
	lastWrite time.Time
	log       zerolog.Logger

	writeBuffer chan struct{}
	done        chan struct{}
	stopped     chan struct{}
	closeOnce   sync.Once
	now         func() time.Time
}

// NewStorage creates a new statistics storage instance
func NewStorage(dataDir string, log zerolog.Logger) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Storage{
		stats:       make(map[string]*MonthlyStats),
		visitors:    make(map[string]time.Time),
		filePath:    filepath.Join(dataDir, "stats.json"),
		log:         log.With().Str("component", "stats").Logger(),
		writeBuffer: make(chan struct{}, 1),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		now:         time.Now,
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	go s.backgroundWriter()

	return s, nil
}

func (s *Storage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := json.Unmarshal(data, &s.stats); err != nil {
		return err
	}
	for _, m := range s.stats {
		if m.Failures == nil {
			m.Failures = make(map[string]int)
		}
		if m.PopularURLs == nil {
			m.PopularURLs = make(map[string]int)
		}
	}
	return nil
}

// Flush writes statistics to disk through a temporary file
func (s *Storage) Flush() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mutex.RLock()
	data, err := json.Marshal(s.stats)
	s.mutex.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

func (s *Storage) backgroundWriter() {
	defer close(s.stopped)
	for {
		select {
		case <-s.writeBuffer:
			if err := s.Flush(); err != nil {
				s.log.Error().Err(err).Msg("Failed to persist statistics")
			}
		case <-s.done:
			return
		}
	}
}

// requestWrite signals that a write to disk is needed
func (s *Storage) requestWrite() {
	select {
	case s.writeBuffer <- struct{}{}:
	default:
		// write already pending
	}
}

func (s *Storage) currentMonth() string {
	return s.now().Format("2006-01")
}

// current returns the stats of the current month; callers hold the write lock
func (s *Storage) current() *MonthlyStats {
	month := s.currentMonth()
	m, exists := s.stats[month]
	if !exists {
		m = newMonthlyStats()
		s.stats[month] = m
	}
	m.LastUpdated = s.now()
	return m
}

// touched requests a write if enough time has passed; callers hold the write lock
func (s *Storage) touched() {
	if s.now().Sub(s.lastWrite) > time.Minute {
		s.requestWrite()
		s.lastWrite = s.now()
	}
}

// RecordAnalysis counts one analysis. failure is empty on success.
func (s *Storage) RecordAnalysis(url string, latency time.Duration, failure string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	m := s.current()
	m.Analyses++
	m.TotalLatencyMs += latency.Milliseconds()
	if failure != "" {
		m.Failures[failure]++
	}
	if cleaned := cleanURL(url); cleaned != "" {
		m.PopularURLs[cleaned]++
	}
	s.touched()
}

func (s *Storage) RecordCacheLookup(hit bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	m := s.current()
	if hit {
		m.CacheHits++
	} else {
		m.CacheMisses++
	}
	s.touched()
}

func (s *Storage) RecordSnapshotFailure() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.current().SnapshotFailures++
	s.touched()
}

// TrackVisitor records a unique visitor
func (s *Storage) TrackVisitor(ip string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.visitors[ip] = s.now()
}

// GetCurrentStats returns statistics for the current month
func (s *Storage) GetCurrentStats() MonthlyStats {
	return s.monthCopy(s.currentMonth())
}

// GetMonthlyStats returns statistics for a specific month
func (s *Storage) GetMonthlyStats(yearMonth string) (MonthlyStats, bool) {
	s.mutex.RLock()
	_, exists := s.stats[yearMonth]
	s.mutex.RUnlock()
	if !exists {
		return MonthlyStats{}, false
	}
	return s.monthCopy(yearMonth), true
}

func (s *Storage) monthCopy(yearMonth string) MonthlyStats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	m, exists := s.stats[yearMonth]
	if !exists {
		return *newMonthlyStats()
	}
	out := *m
	out.Failures = make(map[string]int, len(m.Failures))
	for k, v := range m.Failures {
		out.Failures[k] = v
	}
	out.PopularURLs = make(map[string]int, len(m.PopularURLs))
	for k, v := range m.PopularURLs {
		out.PopularURLs[k] = v
	}
	return out
}

// GetAllMonths returns a sorted list of all months that have statistics
func (s *Storage) GetAllMonths() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	months := make([]string, 0, len(s.stats))
	for month := range s.stats {
		months = append(months, month)
	}

	// newest first
	sort.Sort(sort.Reverse(sort.StringSlice(months)))

	return months
}

// Cleanup removes statistics older than retainMonths (the current month counts as one)
func (s *Storage) Cleanup(retainMonths int) {
	if retainMonths < 1 {
		retainMonths = 1
	}

	keep := make(map[string]bool, retainMonths)
	for i := 0; i < retainMonths; i++ {
		keep[s.now().AddDate(0, -i, 0).Format("2006-01")] = true
	}

	s.mutex.Lock()
	for key := range s.stats {
		if !keep[key] {
			delete(s.stats, key)
		}
	}
	cutoff := s.now().Add(-24 * time.Hour)
	for ip, lastVisit := range s.visitors {
		if lastVisit.Before(cutoff) {
			delete(s.visitors, ip)
		}
	}
	s.mutex.Unlock()

	s.requestWrite()
	s.log.Info().Int("retain_months", retainMonths).Msg("Pruned statistics")
}

// Shutdown stops the background writer and persists the final state
func (s *Storage) Shutdown() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	<-s.stopped
	return s.Flush()
}
