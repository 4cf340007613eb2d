package mwapi

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("tfaprotbot.lib.mwapi")
var meter = otel.Meter("tfaprotbot.lib.mwapi")

var apiCalls, _ = meter.Int64Counter(
	"mwapi.calls",
	metric.WithDescription("Requests sent to the action API, by action."),
)
