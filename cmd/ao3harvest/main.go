package main

import (
	"ao3harvest/cmd/ao3harvest/commands"
	"ao3harvest/lib/serviceutil"
	"ao3harvest/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	telemetry.InitSlog(true)
	tel, err := telemetry.SetupFromEnv(ctx, "ao3harvest")
	if err == nil {
		defer tel.Shutdown(ctx)
		telemetry.InstrumentPerfStats(ctx)
	}

	commands.ExecuteContext(ctx)
}
