package trace

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentHop creates a span for analysing one audio hop
func InstrumentHop(ctx context.Context, sampleRate, hopSize int) (context.Context, trace.Span) {
	return StartSpan(ctx, "conductor.hop",
		trace.WithAttributes(AudioAttrs(sampleRate, hopSize)...),
	)
}

// InstrumentCommand creates a span for delivering a command to a rig
func InstrumentCommand(ctx context.Context, rig, commandType string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("rig.%s.%s", rig, commandType),
		trace.WithAttributes(RigAttrs(rig, commandType)...),
	)
}

// InstrumentRequest creates a span for one control request
func InstrumentRequest(ctx context.Context, sessionID, requestID, requestType string) (context.Context, trace.Span) {
	attrs := SessionAttrs(sessionID)
	attrs = append(attrs,
		attribute.String(AttrRequestID, requestID),
		attribute.String(AttrRequestType, requestType),
	)
	return StartSpan(ctx, fmt.Sprintf("control.%s", requestType),
		trace.WithAttributes(attrs...),
	)
}

// InstrumentSession creates a span covering a control session
func InstrumentSession(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return StartSpan(ctx, "control.session",
		trace.WithAttributes(SessionAttrs(sessionID)...),
	)
}
