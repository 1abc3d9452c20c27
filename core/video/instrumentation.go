package video

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-avatar/core/video"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)

	framesDecoded, _ = meter.Int64Counter("video.frames.decoded",
		metric.WithDescription("Frames decoded by the background decoder"))
	framesDropped, _ = meter.Int64Counter("video.frames.dropped",
		metric.WithDescription("Frames evicted from a full frame buffer"))
)
