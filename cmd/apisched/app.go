/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/statwatch/apisched/httpclient"
	"github.com/statwatch/apisched/internal/adminapi"
	"github.com/statwatch/apisched/internal/libinfo"
	"github.com/statwatch/apisched/internal/poller"
	"github.com/statwatch/apisched/log"
	"github.com/statwatch/apisched/resultcache"
	"github.com/statwatch/apisched/scheduler"
	"github.com/statwatch/apisched/service"
)

const metricsNamespace = "apisched"

const statsLogInterval = time.Minute

// newAppUnit wires the scheduler, the poller and the admin server into a single service unit.
func newAppUnit(cfg *AppConfig, logger log.FieldLogger) (*service.CompositeUnit, error) {
	constLabels := libinfo.AddPrometheusVersionLabel(nil)
	schedMetrics := scheduler.NewPrometheusMetricsWithOpts(scheduler.PrometheusMetricsOpts{
		Namespace: metricsNamespace, ConstLabels: constLabels})
	cacheMetrics := resultcache.NewPrometheusMetricsWithOpts(resultcache.PrometheusMetricsOpts{
		Namespace: metricsNamespace, ConstLabels: constLabels})
	httpMetrics := httpclient.NewPrometheusMetricsCollectorWithOpts(httpclient.PrometheusMetricsCollectorOpts{
		Namespace: metricsNamespace, ConstLabels: constLabels})

	sched, err := scheduler.NewWithOpts(cfg.Scheduler, logger, scheduler.Opts{
		MetricsCollector:      schedMetrics,
		CacheMetricsCollector: cacheMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	client, err := httpclient.NewWithOpts(cfg.HTTPClient, httpclient.Opts{Logger: logger, Collector: httpMetrics})
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	poll, err := poller.New(cfg.Poller, sched, client, logger)
	if err != nil {
		return nil, fmt.Errorf("create poller: %w", err)
	}

	router := adminapi.NewRouter(sched, logger, adminapi.RouterOpts{
		LogRequests: cfg.AdminServer.Log.Requests,
		Profiling:   cfg.AdminServer.Profiling.Enabled,
		Poller:      poll,
	})
	adminServer := adminapi.NewServer(cfg.AdminServer, router, logger)

	schedUnit := service.NewWorkerUnitWithOpts(service.WorkerFunc(sched.Run), service.WorkerUnitOpts{
		MetricsRegisterer: service.MetricsRegistererFuncs{
			Register: func() {
				schedMetrics.MustRegister()
				cacheMetrics.MustRegister()
				httpMetrics.MustRegister()
			},
			Unregister: func() {
				schedMetrics.Unregister()
				cacheMetrics.Unregister()
				httpMetrics.Unregister()
			},
		},
	})

	statsUnit := service.NewWorkerUnit(service.NewPeriodicWorkerWithOpts(
		service.WorkerFunc(func(ctx context.Context) error {
			logStats(logger, sched.Metrics())
			return nil
		}),
		statsLogInterval,
		logger,
		service.PeriodicWorkerOpts{InitialDelay: statsLogInterval},
	))

	return service.NewCompositeUnit(schedUnit, statsUnit, poll, adminServer), nil
}

func logStats(logger log.FieldLogger, snapshot scheduler.MetricsSnapshot) {
	logger.Info("scheduler stats",
		log.Uint64("total_requests", snapshot.TotalRequests),
		log.Uint64("successful_requests", snapshot.SuccessfulRequests),
		log.Uint64("failed_requests", snapshot.FailedRequests),
		log.Uint64("throttled_requests", snapshot.ThrottledRequests),
		log.Uint64("cache_hits", snapshot.CacheHits),
		log.Float64("success_rate", snapshot.SuccessRate()),
		log.Float64("cache_hit_rate", snapshot.CacheHitRate()),
		log.Float64("throughput_per_minute", snapshot.ThroughputPerMinute()),
		log.Duration("average_response_time", snapshot.AverageResponseTime),
		log.Duration("uptime", snapshot.Uptime()),
	)
}
