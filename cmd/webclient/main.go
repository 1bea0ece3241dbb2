//go:build js && wasm

// Command webclient is the browser controller, compiled to WebAssembly and
// served as /static/app.wasm next to the runtime's wasm_exec.js. Build both
// into web/static with:
//
//	make wasm
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"multichat/internal/chatclient"
	"multichat/internal/core"
	"multichat/internal/logging"
	"multichat/internal/orchestrator"
	"multichat/internal/page"
	"multichat/internal/render"
)

func main() {
	slog.SetDefault(logging.New(os.Stdout, logging.FormatText, "info"))

	dom, err := page.NewDOM()
	if err != nil {
		slog.Error("failed to bind page", "error", err)
		return
	}

	origin, err := dom.Origin()
	if err != nil {
		slog.Error("failed to read page origin", "error", err)
		return
	}

	// The default transport is the browser's fetch; a dialing transport
	// would not work here.
	client := chatclient.New(origin+"/chat/", &http.Client{})
	orch := orchestrator.New(dom.Page(), client, render.NewHTML(dom))

	// Event listeners run on the JS event loop; a blocking HTTP call there
	// would deadlock, so each submission gets its own goroutine.
	release, err := dom.OnSubmit(func() {
		go func() {
			err := orch.HandleSubmit(context.Background())
			var verr *core.ValidationError
			switch {
			case err == nil, errors.As(err, &verr):
			case errors.Is(err, orchestrator.ErrSubmissionInFlight):
				slog.Debug("submit ignored while loading")
			default:
				slog.Warn("submission failed", "error", err)
			}
		}()
	})
	if err != nil {
		slog.Error("failed to register submit listener", "error", err)
		return
	}
	defer release()

	slog.Info("multichat client ready", "endpoint", client.Endpoint())
	select {}
}
