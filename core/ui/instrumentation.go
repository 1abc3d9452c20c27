package ui

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/koscakluka/ema-avatar/core/ui"

var logger = otelslog.NewLogger(scopeName)
