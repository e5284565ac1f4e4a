package dispatcher

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func meter() metric.Meter {
	return otel.Meter("github.com/OCAP2/demo/internal/dispatcher", metric.WithInstrumentationVersion("1"))
}
