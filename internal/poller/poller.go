/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package poller periodically submits requests to the provider API through the scheduler.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/statwatch/apisched/httpclient"
	"github.com/statwatch/apisched/log"
	"github.com/statwatch/apisched/scheduler"
	"github.com/statwatch/apisched/service"
)

// Submitter is the part of *scheduler.Scheduler used by the poller.
type Submitter interface {
	SubmitWithOpts(op scheduler.Operation, opts scheduler.SubmitOpts) *scheduler.Future
}

// Result is the outcome of a single poll.
type Result struct {
	Target   string
	Value    json.RawMessage
	Err      error
	Duration time.Duration
}

// Handler processes poll results.
type Handler interface {
	HandlePollResult(ctx context.Context, result Result)
}

// HandlerFunc is an adapter to allow the use of ordinary functions as Handler.
type HandlerFunc func(ctx context.Context, result Result)

// HandlePollResult calls f(ctx, result).
func (f HandlerFunc) HandlePollResult(ctx context.Context, result Result) {
	f(ctx, result)
}

// NewLoggingHandler returns a Handler that only logs poll outcomes.
func NewLoggingHandler(logger log.FieldLogger) Handler {
	return HandlerFunc(func(_ context.Context, result Result) {
		if result.Err != nil {
			logger.Warn("poll target failed", log.String("target", result.Target),
				log.Duration("duration", result.Duration), log.Error(result.Err))
			return
		}
		logger.Info("poll target completed", log.String("target", result.Target),
			log.Duration("duration", result.Duration), log.Int("body_size", len(result.Value)))
	})
}

// Opts represents options for creating Poller.
type Opts struct {
	// Handler receives poll results. Results are only logged when it's nil.
	Handler Handler
}

// Poller submits requests for the configured targets on their cron schedules.
// A tick of a target is skipped while its previous request is still in progress.
// It implements service.Unit.
type Poller struct {
	cron    *cron.Cron
	sched   Submitter
	client  *http.Client
	handler Handler
	logger  log.FieldLogger
	targets []TargetConfig

	ctx    context.Context
	cancel context.CancelFunc
}

var _ service.Unit = (*Poller)(nil)

// New creates a new Poller.
func New(cfg *Config, sched Submitter, client *http.Client, logger log.FieldLogger) (*Poller, error) {
	return NewWithOpts(cfg, sched, client, logger, Opts{})
}

// NewWithOpts creates a new Poller with options.
func NewWithOpts(cfg *Config, sched Submitter, client *http.Client, logger log.FieldLogger, opts Opts) (*Poller, error) {
	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load time zone: %w", err)
	}
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	handler := opts.Handler
	if handler == nil {
		handler = NewLoggingHandler(logger)
	}

	cronLogger := &cronLoggerAdapter{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller{
		cron: cron.New(
			cron.WithParser(scheduleParser),
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		sched:   sched,
		client:  client,
		handler: handler,
		logger:  logger,
		targets: cfg.Targets,
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := range cfg.Targets {
		target := cfg.Targets[i]
		if _, err = p.cron.AddFunc(target.Schedule, func() { p.poll(target) }); err != nil {
			cancel()
			return nil, fmt.Errorf("add schedule for target %q: %w", target.Name, err)
		}
	}
	return p, nil
}

// Start starts triggering polls and blocks until Stop is called.
func (p *Poller) Start(_ chan<- error) {
	p.logger.Info("poller started", log.Int("targets", len(p.targets)))
	p.cron.Start()
	<-p.ctx.Done()
}

// Stop stops triggering polls. On graceful stop, it also waits for in-progress polls.
func (p *Poller) Stop(gracefully bool) error {
	p.cancel()
	stopCtx := p.cron.Stop()
	if gracefully {
		<-stopCtx.Done()
	}
	p.logger.Info("poller stopped")
	return nil
}

// PollNow submits requests for all targets immediately and waits for their results.
func (p *Poller) PollNow() {
	for _, target := range p.targets {
		p.poll(target)
	}
}

func (p *Poller) poll(target TargetConfig) {
	startTime := time.Now()
	getRequest := httpclient.NewGetRequestFactory(target.URL)
	newRequest := func(ctx context.Context) (*http.Request, error) {
		return getRequest(httpclient.NewContextWithRequestType(ctx, target.Name))
	}
	op := httpclient.JSONOperation[json.RawMessage](p.client, newRequest)
	future := p.sched.SubmitWithOpts(func(ctx context.Context) (interface{}, error) {
		return op(ctx)
	}, scheduler.SubmitOpts{
		Priority: scheduler.Priority(target.Priority),
		CacheKey: target.CacheKey,
		Timeout:  target.Timeout,
	})

	value, err := future.Wait(p.ctx)
	if errors.Is(err, context.Canceled) && p.ctx.Err() != nil {
		return
	}
	result := Result{Target: target.Name, Err: err, Duration: time.Since(startTime)}
	if err == nil {
		raw, ok := value.(json.RawMessage)
		if !ok {
			result.Err = fmt.Errorf("unexpected result type %T", value)
		}
		result.Value = raw
	}
	p.handler.HandlePollResult(p.ctx, result)
}

// cronLoggerAdapter adapts log.FieldLogger to cron.Logger.
type cronLoggerAdapter struct {
	logger log.FieldLogger
}

func (a *cronLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug("cron: "+msg, kvToFields(keysAndValues)...)
}

func (a *cronLoggerAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.Error("cron: "+msg, append(kvToFields(keysAndValues), log.Error(err))...)
}

func kvToFields(keysAndValues []interface{}) []log.Field {
	fields := make([]log.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields = append(fields, log.Any(key, keysAndValues[i+1]))
	}
	return fields
}
