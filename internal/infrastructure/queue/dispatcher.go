package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hikari-health/auth-core/internal/api/metrics"
	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// AuditDispatcher writes audit events from a fixed set of workers. Events are
// sharded by tenant so one tenant's events stay in order. Record never
// blocks: when a worker buffer is full the event is dropped and counted.
type AuditDispatcher struct {
	workers []chan domain.AuditEvent
	log     zerolog.Logger
	wg      sync.WaitGroup
}

var _ ports.AuditSink = (*AuditDispatcher)(nil)

// NewAuditDispatcher creates an AuditDispatcher with numWorkers sharded
// workers. If numWorkers <= 0, defaultWorkers is used.
func NewAuditDispatcher(numWorkers int, log zerolog.Logger) *AuditDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &AuditDispatcher{
		workers: make([]chan domain.AuditEvent, numWorkers),
		log:     log.With().Str("component", "audit").Logger(),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuditEvent, channelBuffer)
	}
	return d
}

// Run starts the workers and blocks until ctx is cancelled and every worker
// has drained its buffer.
func (d *AuditDispatcher) Run(ctx context.Context) error {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
	d.wg.Wait()
	return nil
}

// Record enqueues event on the worker responsible for its tenant.
func (d *AuditDispatcher) Record(event domain.AuditEvent) {
	idx := d.shardIndex(event.TenantID)
	select {
	case d.workers[idx] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.AuditDroppedTotal.Inc()
		d.log.Warn().Str("operation", event.Operation).Msg("audit buffer full, event dropped")
	}
}

// shardIndex maps a tenant id deterministically to a worker index.
func (d *AuditDispatcher) shardIndex(tenantID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tenantID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *AuditDispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuditEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case event := <-ch:
					d.write(event)
				default:
					return
				}
			}
		case event := <-ch:
			d.write(event)
			metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
		}
	}
}

// write emits one structured audit line. The level follows the risk level.
func (d *AuditDispatcher) write(e domain.AuditEvent) {
	metrics.AuditEventsTotal.WithLabelValues(string(e.RiskLevel)).Inc()

	var ev *zerolog.Event
	switch e.RiskLevel {
	case domain.RiskCritical:
		ev = d.log.Error()
	case domain.RiskHigh, domain.RiskMedium:
		ev = d.log.Warn()
	default:
		ev = d.log.Info()
	}

	ev = ev.
		Str("audit_id", e.ID).
		Str("operation", e.Operation).
		Str("method", e.Method).
		Str("path", e.Path).
		Str("ip", e.IP).
		Str("user_agent", e.UserAgent).
		Str("request_id", e.RequestID).
		Int("status", e.Status).
		Dur("duration", e.Duration).
		Str("outcome", e.Outcome).
		Str("risk_level", string(e.RiskLevel)).
		Time("occurred_at", e.OccurredAt)
	if e.UserID != "" {
		ev = ev.Str("user_id", e.UserID).Str("tenant_id", e.TenantID)
	}
	if e.Error != "" {
		ev = ev.Str("error", e.Error)
	}
	if len(e.Errors) > 0 {
		ev = ev.Strs("security_errors", e.Errors)
	}
	for _, f := range e.Findings {
		ev = ev.Str("finding_"+f.Kind, f.Detail)
	}
	ev.Msg("audit")
}
