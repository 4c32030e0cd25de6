// Package main implements streamrpcd, a stdio demo host for pkg/streamrpc.
// file: cmd/streamrpcd/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkoosis/streamrpc/internal/config"
	"github.com/dkoosis/streamrpc/internal/logging"
	"github.com/dkoosis/streamrpc/internal/telemetry"
	"github.com/dkoosis/streamrpc/internal/validation"
	"github.com/dkoosis/streamrpc/pkg/streamrpc"
	"github.com/fatih/color"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML session config overriding the built-in defaults")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetPrefix("[streamrpcd] ")

	printBanner()

	cfg := config.DefaultSessionConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("main: loading config %q: %v", *configPath, err)
		}
		cfg = *loaded
	}

	logger := logging.GetLogger("streamrpcd")
	telemetryCollector := telemetry.NewCollector(64)

	var checker validation.ParamsChecker
	if cfg.Validation.Enabled {
		v := validation.New(logger)
		data, err := os.ReadFile(cfg.Validation.SchemaPath)
		if err != nil {
			log.Fatalf("main: reading schema file %q: %v", cfg.Validation.SchemaPath, err)
		}
		if err := v.Load([]validation.MethodSchema{{Method: "echo", Schema: data}}); err != nil {
			log.Fatalf("main: loading schema: %v", err)
		}
		checker = validation.NewDecorator(v)
	}

	session := streamrpc.NewSession(
		stdioTransport{},
		cfg,
		streamrpc.WithLogger(logger),
		streamrpc.WithTelemetry(telemetryCollector),
		streamrpc.WithValidator(checker),
	)

	registerDemoTargets(session)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		session.Disconnect(ctx, nil)
		cancel()
	}()

	logger.Info("streamrpcd listening on stdio", "framing", cfg.Framing.Kind, "formatter", cfg.Formatter)
	if err := session.Listen(ctx); err != nil {
		logger.Warn("session ended", "error", err)
	}

	snapshot := telemetryCollector.Snapshot()
	logger.Info("final telemetry",
		"dispatched", snapshot.DispatchedTotal,
		"rejected", snapshot.RejectedTotal,
		"cancelled", snapshot.CancelledTotal,
		"uptime", snapshot.Uptime)
}

// registerDemoTargets wires the handful of methods this demo host serves: an
// echo target exercising the params-arity overload resolution, and a clock
// target showing the zero-argument form.
func registerDemoTargets(session *streamrpc.Session) {
	if err := session.AddLocalTarget(demoTarget{}, streamrpc.CamelCase); err != nil {
		log.Fatalf("main: registering demo targets: %v", err)
	}
}

type demoTarget struct{}

func (demoTarget) Echo(ctx context.Context, params struct {
	Text string `json:"text"`
}) (string, error) {
	return params.Text, nil
}

func (demoTarget) Clock(ctx context.Context) (string, error) {
	return time.Now().UTC().Format(time.RFC3339), nil
}

// stdioTransport adapts os.Stdin/os.Stdout into a framing.Transport; Close
// is a no-op since a host process generally owns its own stdio lifetime.
type stdioTransport struct{}

func (stdioTransport) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioTransport) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdioTransport) Close() error                { return nil }

func printBanner() {
	header := color.New(color.FgMagenta, color.Bold).SprintFunc()
	info := color.New(color.FgWhite).SprintFunc()
	fmt.Fprintln(os.Stderr, header("streamrpcd"))
	fmt.Fprintln(os.Stderr, info(fmt.Sprintf("version %s (build: %s)", version, buildDate)))
}
