package session

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/demo/internal/session"

type metrics struct {
	recorded metric.Int64Counter
	decoded  metric.Int64Counter
	skipped  metric.Int64Counter
	frames   metric.Int64Counter
	sessions metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	var (
		out metrics
		err error
	)
	if out.recorded, err = m.Int64Counter("demo.events.recorded", metric.WithDescription("Events written to demo files")); err != nil {
		return nil, fmt.Errorf("creating recorded counter: %w", err)
	}
	if out.decoded, err = m.Int64Counter("demo.events.decoded", metric.WithDescription("Events decoded during playback")); err != nil {
		return nil, fmt.Errorf("creating decoded counter: %w", err)
	}
	if out.skipped, err = m.Int64Counter("demo.events.skipped", metric.WithDescription("Events skipped for stale object references")); err != nil {
		return nil, fmt.Errorf("creating skipped counter: %w", err)
	}
	if out.frames, err = m.Int64Counter("demo.frames.played", metric.WithDescription("Playback frames completed")); err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}
	if out.sessions, err = m.Int64Counter("demo.sessions", metric.WithDescription("Demo sessions ended, by mode and outcome")); err != nil {
		return nil, fmt.Errorf("creating sessions counter: %w", err)
	}
	return &out, nil
}

func (m *metrics) event(c metric.Int64Counter, op string) {
	c.Add(context.Background(), 1, metric.WithAttributes(attribute.String("opcode", op)))
}

func (m *metrics) session(mode Mode, outcome Outcome) {
	m.sessions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("mode", mode.String()),
		attribute.String("outcome", outcome.String()),
	))
}
