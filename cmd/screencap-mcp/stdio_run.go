// stdio_run.go — wires the stdio transport to a freshly built app (spec
// §4.8 stdio: "stdout is reserved exclusively for the stdio JSON-RPC
// transport"). Every diagnostic here goes to the logger, which writes to
// stderr only.
package main

import (
	"context"

	"github.com/brennhill/screencap-mcp/internal/config"
	"github.com/brennhill/screencap-mcp/internal/transport/stdio"
)

func runStdio(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.log.Infow("screencap-mcp starting in stdio mode", "version", version)
	return stdio.Run(ctx, a.dispatch, a.log)
}
