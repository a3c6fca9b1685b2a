package audit

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Record captures one authorization decision. Kept transport-agnostic so
// stores and sinks can fan out.
type Record struct {
	Timestamp time.Time
	Principal string // User id, or "service" for backend-internal flows
	TenantID  string
	Resource  string
	Operation string
	Decision  string // "allow" or "deny"
	Reason    string // Specific deny reason; empty on allow
}

// Sink consumes authorization decisions. Delivery is best-effort: the engine
// never blocks or fails a request on a sink error, so implementations must
// not do slow synchronous I/O.
type Sink interface {
	Record(rec Record)
}

// ZapSink writes audit records to the structured log
type ZapSink struct {
	log *zap.Logger
}

// NewZapSink creates an audit sink backed by the given logger
func NewZapSink(log *zap.Logger) *ZapSink {
	return &ZapSink{log: log}
}

// Record writes one decision to the log
func (s *ZapSink) Record(rec Record) {
	s.log.Info("authorization decision",
		zap.Time("timestamp", rec.Timestamp),
		zap.String("principal", rec.Principal),
		zap.String("tenant_id", rec.TenantID),
		zap.String("resource", rec.Resource),
		zap.String("operation", rec.Operation),
		zap.String("decision", rec.Decision),
		zap.String("reason", rec.Reason),
	)
}

// CaptureSink retains records in memory for assertions in tests
type CaptureSink struct {
	mu      sync.Mutex
	records []Record
}

// Record appends the decision to the captured list
func (s *CaptureSink) Record(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

// Records returns a copy of all captured records
func (s *CaptureSink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
