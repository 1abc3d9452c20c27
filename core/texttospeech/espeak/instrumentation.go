package espeak

import "go.opentelemetry.io/otel"

const scopeName = "github.com/koscakluka/ema-avatar/core/texttospeech/espeak"

var tracer = otel.Tracer(scopeName)
