// Package scheduler runs the report pipeline on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/rankrecon/internal/logger"
	"github.com/jonesrussell/rankrecon/internal/pipeline"
)

// Runner executes one report run.
type Runner interface {
	Run(ctx context.Context, anchor time.Time) (*pipeline.Result, error)
}

// Scheduler triggers Runner on a five-field cron expression. A run that
// is still going when the next tick fires causes that tick to be skipped.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	job      cron.Job
	runner   Runner
	log      logger.Logger
	now      func() time.Time
	ctx      context.Context
	cancel   context.CancelFunc
	// triggered tracks runs started outside the cron loop.
	triggered sync.WaitGroup
}

// Parser accepts standard five-field expressions and @descriptors.
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New builds a Scheduler for a cron expression.
func New(expr string, runner Runner, log logger.Logger) (*Scheduler, error) {
	schedule, err := Parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	if log == nil {
		log = logger.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cl := cronLogger{log: log}
	s := &Scheduler{
		cron:     cron.New(cron.WithParser(Parser), cron.WithLogger(cl), cron.WithLocation(time.UTC)),
		schedule: schedule,
		runner:   runner,
		log:      log,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(s.run))
	s.cron.Schedule(schedule, s.job)
	return s, nil
}

// Start begins firing scheduled runs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started", logger.Time("next_run", s.Next()))
}

// Stop cancels the running job and waits for scheduled and triggered
// runs to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.triggered.Wait()
	s.log.Info("Scheduler stopped")
}

// Next is the next time the schedule fires.
func (s *Scheduler) Next() time.Time {
	return s.schedule.Next(s.now().UTC())
}

// Trigger runs the job now, subject to the same overlap and panic
// handling as scheduled ticks.
func (s *Scheduler) Trigger() {
	s.triggered.Add(1)
	defer s.triggered.Done()
	s.job.Run()
}

// TriggerAsync is Trigger in a new goroutine. Stop waits for it.
func (s *Scheduler) TriggerAsync() {
	s.triggered.Add(1)
	go func() {
		defer s.triggered.Done()
		s.job.Run()
	}()
}

func (s *Scheduler) run() {
	anchor := s.now().UTC()
	res, err := s.runner.Run(s.ctx, anchor)
	if err != nil {
		s.log.Error("Scheduled run failed", logger.Error(err))
		return
	}
	s.log.Info("Scheduled run complete",
		logger.String("run_id", res.RunID.String()),
		logger.Int("report_rows", len(res.Report)),
	)
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug(msg, fields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error(msg, append(fields(keysAndValues), logger.Error(err))...)
}

func fields(kv []any) []logger.Field {
	out := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		out = append(out, logger.Any(key, kv[i+1]))
	}
	return out
}
