/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package adminapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/statwatch/apisched/log"
	"github.com/statwatch/apisched/scheduler"
)

// Scheduler is the part of *scheduler.Scheduler exposed through the admin API.
type Scheduler interface {
	Status() scheduler.Status
	Metrics() scheduler.MetricsSnapshot
	Reset()
}

// Poller triggers an out-of-schedule poll of all targets.
type Poller interface {
	PollNow()
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	scheduler.MetricsSnapshot
	SuccessRate         float64 `json:"successRate"`
	CacheHitRate        float64 `json:"cacheHitRate"`
	UptimeSeconds       float64 `json:"uptimeSeconds"`
	ThroughputPerMinute float64 `json:"throughputPerMinute"`
}

// NewStatsResponse builds StatsResponse with the rates derived from the snapshot.
func NewStatsResponse(snapshot scheduler.MetricsSnapshot) StatsResponse {
	return StatsResponse{
		MetricsSnapshot:     snapshot,
		SuccessRate:         snapshot.SuccessRate(),
		CacheHitRate:        snapshot.CacheHitRate(),
		UptimeSeconds:       snapshot.Uptime().Seconds(),
		ThroughputPerMinute: snapshot.ThroughputPerMinute(),
	}
}

type healthCheckResponseData struct {
	Components map[string]bool `json:"components"`
}

// RouterOpts represents options for creating the admin router.
type RouterOpts struct {
	// MetricsHandler serves GET /metrics. promhttp.Handler() is used when it's nil.
	MetricsHandler http.Handler
	LogRequests    bool

	// Profiling mounts pprof handlers under /debug.
	Profiling bool

	// Poller enables POST /poll. The poll runs in background, the endpoint responds with 202.
	Poller Poller
}

// NewRouter creates a chi.Router serving the admin endpoints of the scheduler.
func NewRouter(sched Scheduler, logger log.FieldLogger, opts RouterOpts) chi.Router {
	h := &handler{sched: sched, poller: opts.Poller, logger: logger}

	router := chi.NewRouter()
	router.Use(requestIDAndLogging(logger, opts.LogRequests))
	router.Use(recovery(logger))

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	router.Method(http.MethodGet, "/metrics", metricsHandler)
	router.Get("/healthz", h.healthz)
	router.Get("/status", h.status)
	router.Get("/stats", h.stats)
	router.Post("/reset", h.reset)
	if opts.Poller != nil {
		router.Post("/poll", h.poll)
	}
	if opts.Profiling {
		router.Mount("/debug", middleware.Profiler())
	}

	router.NotFound(func(rw http.ResponseWriter, r *http.Request) {
		RespondError(rw, http.StatusNotFound,
			&Error{Domain: ErrorDomain, Code: ErrCodeNotFound, Message: "Not found."}, logger)
	})
	router.MethodNotAllowed(func(rw http.ResponseWriter, r *http.Request) {
		RespondError(rw, http.StatusMethodNotAllowed,
			&Error{Domain: ErrorDomain, Code: ErrCodeMethodNotAllowed, Message: "Method not allowed."}, logger)
	})
	return router
}

type handler struct {
	sched  Scheduler
	poller Poller
	logger log.FieldLogger
}

func (h *handler) healthz(rw http.ResponseWriter, _ *http.Request) {
	running := h.sched.Status().Running
	respStatus := http.StatusOK
	if !running {
		respStatus = http.StatusServiceUnavailable
	}
	RespondCodeAndJSON(rw, respStatus, healthCheckResponseData{Components: map[string]bool{"scheduler": running}}, h.logger)
}

func (h *handler) status(rw http.ResponseWriter, _ *http.Request) {
	RespondJSON(rw, h.sched.Status(), h.logger)
}

func (h *handler) stats(rw http.ResponseWriter, _ *http.Request) {
	RespondJSON(rw, NewStatsResponse(h.sched.Metrics()), h.logger)
}

func (h *handler) reset(rw http.ResponseWriter, r *http.Request) {
	h.sched.Reset()
	h.logger.Info("scheduler reset requested via admin API", log.String("remote_addr", r.RemoteAddr))
	rw.WriteHeader(http.StatusNoContent)
}

func (h *handler) poll(rw http.ResponseWriter, r *http.Request) {
	go h.poller.PollNow()
	h.logger.Info("poll requested via admin API", log.String("remote_addr", r.RemoteAddr))
	rw.WriteHeader(http.StatusAccepted)
}
