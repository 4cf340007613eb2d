package tfa

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("tfaprotbot.services.tfa")
var meter = otel.Meter("tfaprotbot.services.tfa")

var daysChecked, _ = meter.Int64Counter(
	"tfa.days_checked",
	metric.WithDescription("Days looked up, by whether an article was scheduled."),
)

var pagesProtected, _ = meter.Int64Counter(
	"tfa.pages_protected",
	metric.WithDescription("Protect calls made for upcoming featured articles and their redirects."),
)
