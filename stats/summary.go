package stats

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// Summary is the public view of the statistics
type Summary struct {
	UniqueVisitors24h int            `json:"uniqueVisitors24h"`
	TotalAnalyses     int            `json:"totalAnalyses"`
	ErrorRate         float64        `json:"errorRate"`
	AverageLatencyMs  float64        `json:"averageLatencyMs"`
	CacheHitRate      float64        `json:"cacheHitRate"`
	Failures          map[string]int `json:"failures,omitempty"`
	PopularURLs       []URLCount     `json:"popularUrls,omitempty"`
}

type URLCount struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// Summary returns the current month's figures. Failure breakdown and popular
// URLs are only included in development mode.
func (s *Storage) Summary(devMode bool) Summary {
	m := s.GetCurrentStats()

	summary := Summary{
		UniqueVisitors24h: s.uniqueVisitors(24 * time.Hour),
		TotalAnalyses:     m.Analyses,
	}
	if m.Analyses > 0 {
		summary.ErrorRate = float64(m.FailureCount()) / float64(m.Analyses) * 100
		summary.AverageLatencyMs = float64(m.TotalLatencyMs) / float64(m.Analyses)
	}
	if lookups := m.CacheHits + m.CacheMisses; lookups > 0 {
		summary.CacheHitRate = float64(m.CacheHits) / float64(lookups) * 100
	}

	if devMode {
		summary.Failures = m.Failures
		summary.PopularURLs = topURLs(m.PopularURLs, 5)
	}
	return summary
}

func (s *Storage) uniqueVisitors(window time.Duration) int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	cutoff := s.now().Add(-window)
	count := 0
	for _, lastVisit := range s.visitors {
		if lastVisit.After(cutoff) {
			count++
		}
	}
	return count
}

// topURLs returns the n most analyzed URLs, most frequent first
func topURLs(counts map[string]int, n int) []URLCount {
	out := make([]URLCount, 0, len(counts))
	for u, c := range counts {
		out = append(out, URLCount{URL: u, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].URL < out[j].URL
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// cleanURL reduces a URL to scheme, host and path; local addresses are dropped
func cleanURL(urlStr string) string {
	if urlStr == "" {
		return ""
	}
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.ToLower(u.Host)
	if strings.Contains(host, "localhost") || strings.Contains(host, "127.0.0.1") {
		return ""
	}

	cleaned := u.Scheme + "://" + host
	if u.Path != "" && u.Path != "/" {
		cleaned += u.Path
	}
	return strings.TrimSuffix(cleaned, "/")
}
