package main

import (
	"log/slog"
	"os"

	"github.com/edgi-govdata-archiving/epa-echo/cmd/echo-harvest/commands"
	"github.com/edgi-govdata-archiving/epa-echo/lib/serviceutil"
	"github.com/edgi-govdata-archiving/epa-echo/lib/telemetry"
)

func main() {
	telemetry.InitSlog(os.Getenv("ECHO_DEBUG") != "")

	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "echo-harvest")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	if err == nil {
		defer func() {
			err := tel.Shutdown(ctx)
			if err != nil {
				slog.Warn("failed to shutdown telemetry", "err", err)
			}
		}()
	}

	commands.ExecuteContext(ctx)
}
