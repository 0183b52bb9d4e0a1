// Package core implements the inventory repository and its live views on top
// of a keyed store.
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"roomtrack/internal/blob"
	"roomtrack/internal/infra/persistence/memory"
	"roomtrack/pkg/domain"
)

// ResolutionMode controls how the room view treats indexed IDs whose item
// record is missing.
type ResolutionMode string

const (
	// ResolutionLenient silently drops unresolvable IDs.
	ResolutionLenient ResolutionMode = "lenient"
	// ResolutionStrict reports unresolvable IDs on the emission.
	ResolutionStrict ResolutionMode = "strict"
)

// ParseResolutionMode maps configuration text to a mode; empty is lenient.
func ParseResolutionMode(raw string) (ResolutionMode, error) {
	switch ResolutionMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ResolutionLenient:
		return ResolutionLenient, nil
	case ResolutionStrict:
		return ResolutionStrict, nil
	default:
		return "", fmt.Errorf("unknown room resolution mode %q", raw)
	}
}

const (
	entityItem     = "item"
	entityMovement = "movement"
	entityDataset  = "dataset"
	entityExport   = "export"
)

// Service is the inventory repository: the only writer of items, movements
// and room indices.
type Service struct {
	store      domain.KeyedStore
	blobs      blob.Store
	clock      Clock
	logger     Logger
	audit      AuditRecorder
	metrics    MetricsRecorder
	tracer     Tracer
	rules      *domain.RulesEngine
	resolution ResolutionMode
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	blobs      blob.Store
	clock      Clock
	logger     Logger
	audit      AuditRecorder
	metrics    MetricsRecorder
	tracer     Tracer
	rules      *domain.RulesEngine
	resolution ResolutionMode
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:      ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:     noopLogger{},
		audit:      noopAuditRecorder{},
		metrics:    noopMetricsRecorder{},
		tracer:     noopTracer{},
		rules:      NewDefaultRulesEngine(),
		resolution: ResolutionLenient,
	}
}

// WithClock overrides the timestamp source.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.audit = recorder
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithBlobStore enables ExportSnapshot.
func WithBlobStore(store blob.Store) ServiceOption {
	return func(o *serviceOptions) { o.blobs = store }
}

// WithRulesEngine replaces the consistency rules evaluated by
// CheckConsistency.
func WithRulesEngine(engine *domain.RulesEngine) ServiceOption {
	return func(o *serviceOptions) {
		if engine != nil {
			o.rules = engine
		}
	}
}

// WithRoomResolution selects the room view's handling of dangling IDs.
func WithRoomResolution(mode ResolutionMode) ServiceOption {
	return func(o *serviceOptions) {
		if mode != "" {
			o.resolution = mode
		}
	}
}

// NewService constructs a service over store.
func NewService(store domain.KeyedStore, opts ...ServiceOption) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		store:      store,
		blobs:      o.blobs,
		clock:      o.clock,
		logger:     o.logger,
		audit:      o.audit,
		metrics:    o.metrics,
		tracer:     o.tracer,
		rules:      o.rules,
		resolution: o.resolution,
	}
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(), opts...)
}

// Store returns the underlying keyed store.
func (s *Service) Store() domain.KeyedStore { return s.store }

// Resolution reports the configured room resolution mode.
func (s *Service) Resolution() ResolutionMode { return s.resolution }

func (s *Service) now() time.Time { return s.clock.Now() }

// run wraps an operation with tracing, metrics, audit and logging. fn returns
// the affected entity ID for the audit trail.
func (s *Service) run(ctx context.Context, op, entity string, fn func(context.Context) (string, error)) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	id, err := fn(ctx)
	elapsed := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, elapsed)

	entry := AuditEntry{
		Operation: op,
		Entity:    entity,
		EntityID:  id,
		Status:    AuditStatusSuccess,
		Duration:  elapsed,
		Timestamp: s.now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		s.logger.Error("operation failed", "operation", op, "entity", entity, "id", id, "error", err)
	} else {
		s.logger.Debug("operation complete", "operation", op, "entity", entity, "id", id, "duration", elapsed)
	}
	s.audit.Record(ctx, entry)
	return err
}
