package main

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/koscakluka/ema-avatar/cmd/ema-avatar"

var logger = otelslog.NewLogger(scopeName)
