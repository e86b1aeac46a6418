package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs named housekeeping jobs on cron schedules
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
	jobs map[string]cron.EntryID
}

func New(log zerolog.Logger) *Scheduler {
	log = log.With().Str("component", "scheduler").Logger()
	logger := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger)),
		),
		log:  log,
		jobs: make(map[string]cron.EntryID),
	}
}

// cronLogger adapts zerolog to cron.Logger. cron's own chatter goes to debug.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// Add registers fn under name. spec uses the standard cron syntax and the
// descriptors understood by robfig/cron ("@daily", "@every 5m").
func (s *Scheduler) Add(name, spec string, fn func()) error {
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	id, err := s.cron.AddFunc(spec, func() {
		s.log.Debug().Str("job", name).Msg("Running job")
		fn()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %q: %w", name, err)
	}
	s.jobs[name] = id
	return nil
}

// Jobs returns the registered job names
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
}

// Stop prevents new runs and waits for running jobs or ctx, whichever is first
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn().Msg("Scheduler stop timed out with jobs still running")
	}
}
