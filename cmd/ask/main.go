// Command ask submits one prompt to up to three models through the chat
// endpoint and prints one card per model.
//
//	ask -m gpt2 -m bloom "Explain TCP slow start"
//	echo "Explain TCP slow start" | ask -m gpt2
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"multichat/config"
	"multichat/internal/chatclient"
	"multichat/internal/core"
	"multichat/internal/logging"
	"multichat/internal/orchestrator"
	"multichat/internal/page"
	"multichat/internal/render"
)

const (
	exitOK         = 0
	exitTransport  = 1
	exitValidation = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// modelFlag collects repeated -m values in order.
type modelFlag []string

func (m *modelFlag) String() string { return strings.Join(*m, ",") }

func (m *modelFlag) Set(v string) error {
	for _, id := range strings.Split(v, ",") {
		*m = append(*m, strings.TrimSpace(id))
	}
	return nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: ask -m MODEL [-m MODEL...] [flags] PROMPT...")
		fs.PrintDefaults()
	}

	var models modelFlag
	fs.Var(&models, "m", fmt.Sprintf("Model ID to ask; repeat or comma-separate, at most %d", core.MaxModels))
	configPath := fs.String("config", "", "Path to the YAML config file")
	endpoint := fs.String("endpoint", "", "Chat endpoint URL (default: client.endpoint from config)")
	requestOrder := fs.Bool("request-order", false, "Print cards in the order models were given")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitValidation
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "ask:", err)
		return exitValidation
	}
	logger := logging.New(stderr, cfg.Logging.Format, cfg.Logging.Level)

	prompt := strings.Join(fs.Args(), " ")
	if prompt == "" && !isTerminal(stdin) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintln(stderr, "ask: failed to read prompt:", err)
			return exitValidation
		}
		prompt = string(data)
	}

	url := cfg.Client.Endpoint
	if *endpoint != "" {
		url = *endpoint
	}

	tracker := &resultTracker{next: newTerminalRenderer(stdout)}
	cli := &console{out: stderr, progress: isTerminal(stderr)}

	opts := []orchestrator.Option{orchestrator.WithLogger(logger)}
	if *requestOrder || cfg.Client.RequestOrder {
		opts = append(opts, orchestrator.WithRequestOrder())
	}

	orch := orchestrator.New(
		core.Page{
			Form:     page.Form{Models: models, Prompt: prompt},
			Notifier: cli,
			View:     cli,
		},
		chatclient.New(url, nil),
		tracker,
		opts...,
	)

	if err := orch.HandleSubmit(ctx); err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			return exitValidation
		}
		fmt.Fprintln(stderr, "ask:", err)
		return exitTransport
	}
	if tracker.kind == core.ResultTransportFailure {
		return exitTransport
	}
	return exitOK
}

func newTerminalRenderer(out io.Writer) *render.TerminalRenderer {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return render.NewTerminal(out)
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		width = 0
	}
	return render.NewTerminal(out, render.WithWidth(width), render.WithClearScreen(true))
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// resultTracker remembers the kind of the last rendered result so the exit
// code can reflect it.
type resultTracker struct {
	next core.Renderer
	kind core.ResultKind
}

func (r *resultTracker) Render(prompt string, result core.SubmissionResult) {
	r.kind = result.Kind
	r.next.Render(prompt, result)
}

// console is the command line's notifier and view. Validation messages go
// to stderr; the loading line is shown only on a terminal.
type console struct {
	out      io.Writer
	progress bool
}

func (c *console) Notify(message string) {
	fmt.Fprintln(c.out, message)
}

func (c *console) SetLoadingVisible(visible bool) {
	if !c.progress {
		return
	}
	if visible {
		fmt.Fprint(c.out, "Waiting for responses...")
		return
	}
	fmt.Fprint(c.out, "\r\x1b[K")
}

func (c *console) SetResponsesVisible(bool) {}

func (c *console) SetSubmitEnabled(bool) {}
