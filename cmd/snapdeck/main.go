// Entry point for snapdeck — capture URLs into slide-deck projects, serve
// the deck editor over HTTP, and expose the same operations as MCP tools.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/snapdeck/capture"
	"github.com/hazyhaar/snapdeck/config"
	"github.com/hazyhaar/snapdeck/engine/rodengine"
	"github.com/hazyhaar/snapdeck/server"
	"github.com/hazyhaar/snapdeck/store"
)

func main() {
	var (
		configPath = flag.String("config", env("SNAPDECK_CONFIG", ""), "path to YAML config")
		addr       = flag.String("addr", "", "listen address (overrides config)")
		project    = flag.String("project", store.DefaultProject, "project to capture into")
		draftNote  = flag.Bool("note", false, "draft a note from page content for each capture")
		mcpStdio   = flag.Bool("mcp", false, "serve MCP tools on stdio instead of HTTP")
		quiet      = flag.Bool("quiet", false, "suppress the banner")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: snapdeck [flags] [URL ...]\n\n")
		fmt.Fprintf(os.Stderr, "With URLs: capture them sequentially into -project.\n")
		fmt.Fprintf(os.Stderr, "Without URLs: serve the deck editor (or MCP with -mcp).\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	urls := flag.Args()

	if !*quiet && !*mcpStdio {
		figure.NewColorFigure("snapdeck", "doom", "cyan", true).Print()
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger := newLogger(cfg.Log.Level, *mcpStdio)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(cfg.Store.Dir, logger)
	if err != nil {
		logger.Error("store open", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	mgr := rodengine.NewManager(rodengine.Config{
		RemoteURL:       cfg.Browser.Remote,
		MemoryLimit:     cfg.Browser.MemoryLimit,
		RecycleInterval: cfg.Browser.RecycleInterval,
		Mode:            browserMode(cfg.Browser.Mode),
		XvfbDisplay:     cfg.Browser.XvfbDisplay,
		Logger:          logger,
	})
	if err := mgr.Start(ctx); err != nil {
		logger.Error("browser start", "error", err)
		os.Exit(1)
	}
	defer mgr.Close()

	surface, err := rodengine.NewSurface(mgr, logger)
	if err != nil {
		logger.Error("render surface", "error", err)
		os.Exit(1)
	}
	defer surface.Close()

	capCfg := capture.Config{RuleSetID: cfg.Capture.RuleSetID, Logger: logger}
	if cfg.Capture.RuleFile != "" {
		data, err := os.ReadFile(cfg.Capture.RuleFile)
		if err != nil {
			logger.Error("rule file", "error", err)
			os.Exit(1)
		}
		capCfg.RuleText = string(data)
	}
	capturer := capture.New(surface, capCfg)

	svc := server.New(st, capturer, logger)

	switch {
	case len(urls) > 0:
		if !runBatch(ctx, svc, *project, urls, *draftNote) {
			os.Exit(1)
		}
	case *mcpStdio:
		mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "snapdeck", Version: "1.0.0"}, nil)
		svc.RegisterMCP(mcpSrv)
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			logger.Error("mcp server", "error", err)
			os.Exit(1)
		}
	default:
		if err := svc.Serve(ctx, cfg.Server.Addr); err != nil {
			logger.Error("http server", "error", err)
			os.Exit(1)
		}
	}
}

func runBatch(ctx context.Context, svc *server.Service, project string, urls []string, draftNote bool) bool {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	project = store.SanitizeProject(project)
	ok := true
	for _, u := range urls {
		if ctx.Err() != nil {
			red.Printf("✗ %s (interrupted)\n", u)
			ok = false
			continue
		}
		res, err := svc.CaptureURL(ctx, project, u, draftNote)
		if err != nil {
			red.Printf("✗ %s\n", u)
			gray.Printf("  %v\n", err)
			ok = false
			continue
		}
		green.Printf("✓ %s\n", u)
		gray.Printf("  %s  tier=%s  nav=%s  %dms\n", res.File, res.Tier, res.NavState, res.DurationMS)
	}
	return ok
}

func browserMode(mode string) rodengine.Mode {
	if mode == "headful" {
		return rodengine.ModeHeadful
	}
	return rodengine.ModeHeadless
}

// newLogger builds the JSON logger. MCP stdio mode logs to stderr so the
// protocol stream stays clean.
func newLogger(level string, stderr bool) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	out := os.Stdout
	if stderr {
		out = os.Stderr
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl}))
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
