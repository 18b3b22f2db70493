// Package tracer provides a lightweight tracing abstraction for the
// adjudication pipeline.
//
// The interface decouples the engine and query service from OpenTelemetry
// APIs while still emitting distributed traces in production:
//   - NoopTracer: for tests (zero overhead)
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// If err is non-nil, the span is marked as failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans for distributed tracing.
// Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes.
	// The returned context contains the new span and should be passed to
	// child operations. The span must be ended by calling Span.End().
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Uint64 creates an attribute from an unsigned id.
func Uint64(key string, value uint64) Attribute {
	return Attribute{Key: key, Value: int64(value)}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names used by the adjudication pipeline.
const (
	SpanAdjudicate       = "claims.adjudicate"
	SpanLedgerTransition = "claims.ledger.transition"
	SpanEvidenceFetch    = "claims.evidence.fetch"
	SpanCredentialIssue  = "claims.credential.issue"
	SpanClaimsList       = "claims.list"
	SpanClaimProbe       = "claims.probe"
)

// Attribute keys used by the adjudication pipeline.
const (
	AttrClaimID           = "claim_id"
	AttrPolicyID          = "policy_id"
	AttrOutcome           = "outcome"
	AttrEvidenceDegraded  = "evidence.degraded"
	AttrArtifactPersisted = "artifact.persisted"
	AttrCacheHit          = "cache.hit"
	AttrProbeDepth        = "probe.depth"
	AttrProbeCeilingHit   = "probe.ceiling_hit"
)

// Event names used by the adjudication pipeline.
const (
	EventReviewEntered     = "review.entered"
	EventDecisionCommitted = "decision.committed"
	EventCredentialIssued  = "credential.issued"
)
