package analyzer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seo-optimizer/og-analyzer/metrics"
)

// Cache stores serialized analysis results
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Recorder receives usage statistics
type Recorder interface {
	RecordAnalysis(url string, latency time.Duration, failure string)
	RecordCacheLookup(hit bool)
	RecordSnapshotFailure()
}

// PageFetcher produces a snapshot of the page being analyzed
type PageFetcher interface {
	Snapshot(ctx context.Context, pageURL string) (*PageSnapshot, error)
}

// Options wires optional collaborators into an Analyzer
type Options struct {
	Snapshotter PageFetcher
	Cache       Cache
	Recorder    Recorder
	Logger      zerolog.Logger
}

// Analyzer turns a URL into a validated AnalysisResult using a Generator
type Analyzer struct {
	generator   Generator
	snapshotter PageFetcher
	cache       Cache
	recorder    Recorder
	log         zerolog.Logger
}

// New creates a new Analyzer instance
func New(generator Generator, opts Options) *Analyzer {
	return &Analyzer{
		generator:   generator,
		snapshotter: opts.Snapshotter,
		cache:       opts.Cache,
		recorder:    opts.Recorder,
		log:         opts.Logger.With().Str("component", "analyzer").Logger(),
	}
}

// generateCacheKey creates a unique key for the URL. Scheme and host are
// case-insensitive and a trailing slash on the path is ignored; path and
// query keep their case.
func generateCacheKey(rawURL string) string {
	key := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		u.Scheme = strings.ToLower(u.Scheme)
		u.Host = strings.ToLower(u.Host)
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = strings.TrimSuffix(u.RawPath, "/")
		key = u.String()
	}
	hash := md5.Sum([]byte(key))
	return hex.EncodeToString(hash[:])
}

func (a *Analyzer) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.log
}

// Analyze validates rawURL, asks the generator for an analysis and
// normalizes the response. Every returned error is an *Error.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (*AnalysisResult, error) {
	log := a.logger(ctx)

	pageURL, err := ValidateURL(rawURL)
	if err != nil {
		log.Info().Str("url", rawURL).Err(err).Msg("Rejected analysis request")
		a.finish(pageURL, 0, err)
		return nil, err
	}

	start := time.Now()
	cacheKey := generateCacheKey(pageURL)
	if cached := a.lookup(ctx, cacheKey); cached != nil {
		log.Debug().Str("url", pageURL).Msg("Serving cached analysis")
		a.finish(pageURL, time.Since(start), nil)
		return cached, nil
	}

	result, err := a.analyze(ctx, pageURL)
	latency := time.Since(start)
	if err != nil {
		event := log.Warn().Str("url", pageURL).Str("kind", string(KindOf(err))).Dur("latency", latency).Err(err)
		var e *Error
		if errors.As(err, &e) && e.Detail != "" {
			event = event.Str("detail", e.Detail)
		}
		event.Msg("Analysis failed")
		a.finish(pageURL, latency, err)
		return nil, err
	}

	a.store(ctx, cacheKey, result)
	log.Info().Str("url", pageURL).Dur("latency", latency).Msg("Analysis completed")
	a.finish(pageURL, latency, nil)
	return result, nil
}

func (a *Analyzer) analyze(ctx context.Context, pageURL string) (*AnalysisResult, error) {
	snapshot := a.snapshot(ctx, pageURL)
	prompt := BuildPrompt(pageURL, snapshot)

	generationStart := time.Now()
	text, err := a.generator.Generate(ctx, prompt)
	metrics.GenerationDuration.Observe(time.Since(generationStart).Seconds())
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return nil, err
		}
		return nil, newError(KindUpstream, "generation failed", err)
	}

	result, err := Normalize(text)
	if err != nil {
		return nil, err
	}

	fillDefaults(result, pageURL, snapshot)
	return result, nil
}

func (a *Analyzer) snapshot(ctx context.Context, pageURL string) *PageSnapshot {
	if a.snapshotter == nil {
		return nil
	}
	snap, err := a.snapshotter.Snapshot(ctx, pageURL)
	if err != nil {
		a.logger(ctx).Debug().Err(err).Str("url", pageURL).Msg("Page snapshot unavailable, using URL only")
		if a.recorder != nil {
			a.recorder.RecordSnapshotFailure()
		}
		return nil
	}
	return snap
}

// fillDefaults completes empty preview fields from what was observed on the page
func fillDefaults(result *AnalysisResult, pageURL string, snap *PageSnapshot) {
	if result.OG.URL == "" {
		result.OG.URL = pageURL
	}
	if snap == nil {
		return
	}
	if result.OG.Title == "" {
		result.OG.Title = snap.Title
	}
	if result.OG.Description == "" {
		result.OG.Description = snap.Description
	}
	if result.OG.SiteName == "" {
		result.OG.SiteName = snap.SiteName
	}
	if result.OG.Image == "" {
		result.OG.Image = snap.Image
	}
}

func (a *Analyzer) lookup(ctx context.Context, key string) *AnalysisResult {
	if a.cache == nil {
		return nil
	}

	data, found, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger(ctx).Warn().Err(err).Msg("Cache lookup failed")
		found = false
	}

	var result AnalysisResult
	if found {
		if err := json.Unmarshal(data, &result); err != nil {
			a.logger(ctx).Warn().Err(err).Msg("Discarding undecodable cache entry")
			found = false
		}
	}

	if a.recorder != nil {
		a.recorder.RecordCacheLookup(found)
	}
	if !found {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return &result
}

func (a *Analyzer) store(ctx context.Context, key string, result *AnalysisResult) {
	if a.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		a.logger(ctx).Warn().Err(err).Msg("Failed to encode analysis for cache")
		return
	}
	if err := a.cache.Set(ctx, key, data); err != nil {
		a.logger(ctx).Warn().Err(err).Msg("Failed to store analysis in cache")
	}
}

func (a *Analyzer) finish(pageURL string, latency time.Duration, err error) {
	outcome := "success"
	failure := ""
	if err != nil {
		outcome = string(KindOf(err))
		failure = outcome
	}
	metrics.AnalysesTotal.WithLabelValues(outcome).Inc()
	if a.recorder != nil {
		a.recorder.RecordAnalysis(pageURL, latency, failure)
	}
}
