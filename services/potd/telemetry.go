package potd

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("tfaprotbot.services.potd")
var meter = otel.Meter("tfaprotbot.services.potd")

var imagesUploaded, _ = meter.Int64Counter(
	"potd.images_uploaded",
	metric.WithDescription("Images copied from the shared repository to the local wiki."),
)

var imagesProtected, _ = meter.Int64Counter(
	"potd.images_protected",
	metric.WithDescription("Images that were upload protected."),
)

var imagesCleanedUp, _ = meter.Int64Counter(
	"potd.images_cleaned_up",
	metric.WithDescription("Local copies deleted after leaving the main page."),
)
