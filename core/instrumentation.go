package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-avatar/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	batchesSpoken, _ = meter.Int64Counter("speech.batches.spoken",
		metric.WithDescription("Number of text batches handed to the synthesizer"))
	synthesisFailures, _ = meter.Int64Counter("speech.synthesis.failures",
		metric.WithDescription("Number of batches whose synthesis failed"))
	suppressedReasoningBytes, _ = meter.Int64Counter("reasoning.suppressed.bytes",
		metric.WithDescription("Bytes of model output hidden inside reasoning spans"),
		metric.WithUnit("By"))
	malformedEvents, _ = meter.Int64Counter("llm.stream.malformed_events",
		metric.WithDescription("Number of streamed lines skipped because they could not be parsed"))
)
