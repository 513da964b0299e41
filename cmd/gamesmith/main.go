package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/craftwell/gamesmith/internal/assemble"
	"github.com/craftwell/gamesmith/internal/config"
	"github.com/craftwell/gamesmith/internal/generate"
	"github.com/craftwell/gamesmith/internal/mcptools"
	"github.com/craftwell/gamesmith/internal/provider"
	"github.com/craftwell/gamesmith/internal/upload"
	"github.com/craftwell/gamesmith/internal/wizard"
)

// CLI flags parsed from command line.
type cliFlags struct {
	ProjectRoot   string
	OutputDir     string
	UploadDir     string
	Providers     string
	ServeMCP      bool
	ServeHTTP     string
	ServeProvider string
	Verbose       bool
	Version       bool
}

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("gamesmith", flag.ContinueOnError)
	fs.StringVar(&flags.ProjectRoot, "project-root", ".", "directory holding gamesmith.yml")
	fs.StringVar(&flags.OutputDir, "output-dir", "", "output directory for assembled games")
	fs.StringVar(&flags.UploadDir, "upload-dir", "", "spool directory for uploaded content")
	fs.StringVar(&flags.Providers, "providers", "", "comma-separated content provider endpoint URLs")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as MCP server on stdio")
	fs.StringVar(&flags.ServeHTTP, "serve-http", "", "run as MCP server on this HTTP address")
	fs.StringVar(&flags.ServeProvider, "serve-provider", "", "run the built-in content provider on this HTTP address")
	fs.BoolVar(&flags.Verbose, "verbose", false, "log session events to stderr")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}

	cfg, err := config.Load(flags.ProjectRoot)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlagOverrides(cfg, flags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Standalone provider mode serves generation only; no session state.
	if flags.ServeProvider != "" {
		return runProvider(ctx, flags.ServeProvider)
	}

	ctrl, err := buildController(cfg)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if cfg.Verbose {
		go logEvents(ctrl.Events())
	}

	switch {
	case flags.ServeMCP:
		server := mcptools.NewWizardMCPServer(ctrl)
		return mcptools.RunWizardMCPServerStdio(ctx, server)
	case flags.ServeHTTP != "":
		log.Printf("gamesmith: serving MCP on %s", flags.ServeHTTP)
		return mcptools.RunWizardMCPServerHTTP(ctx, ctrl, flags.ServeHTTP)
	default:
		fs.Usage()
		return fmt.Errorf("pick a mode: -serve-mcp, -serve-http, or -serve-provider")
	}
}

// applyFlagOverrides layers CLI flags over the file config.
func applyFlagOverrides(cfg *config.ProjectConfig, flags cliFlags) {
	if flags.OutputDir != "" {
		cfg.OutputDir = flags.OutputDir
	}
	if flags.UploadDir != "" {
		cfg.UploadDir = flags.UploadDir
	}
	if flags.Providers != "" {
		cfg.Providers = strings.Split(flags.Providers, ",")
	}
	if flags.Verbose {
		cfg.Verbose = true
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./games"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "./uploads"
	}
}

// buildController wires the catalog, generator stack, assembler, and upload
// handler into a controller.
func buildController(cfg *config.ProjectConfig) (*wizard.Controller, error) {
	catalog, err := wizard.NewCatalog()
	if err != nil {
		return nil, fmt.Errorf("load step catalog: %w", err)
	}

	ttl, err := cfg.TTL()
	if err != nil {
		return nil, err
	}

	uploader := upload.NewHandler(cfg.UploadDir)
	uploader.MaxSize = cfg.MaxUploadBytes

	return wizard.NewController(wizard.Options{
		Catalog:    catalog,
		Generator:  buildGenerator(cfg.Providers),
		Assembler:  assemble.NewFileAssembler(cfg.OutputDir),
		Uploader:   uploader,
		SessionTTL: ttl,
	}), nil
}

// buildGenerator fans out across the configured remote providers, or falls
// back to the deterministic local generator when none are configured.
func buildGenerator(endpoints []string) wizard.Generator {
	var sources []wizard.Generator
	client := provider.NewHTTPClient()
	for _, ep := range endpoints {
		ep = strings.TrimSpace(ep)
		if ep == "" {
			continue
		}
		sources = append(sources, generate.NewRemote(client, ep))
	}

	if len(sources) == 0 {
		return generate.NewLocalRegistry()
	}
	if len(sources) == 1 {
		return sources[0]
	}
	return generate.NewFanOut(sources...)
}

// runProvider serves the built-in content provider until the context ends.
func runProvider(ctx context.Context, addr string) error {
	card := provider.ProviderCard{
		Name:        "gamesmith-local",
		Description: "Built-in deterministic game content provider",
		Version:     version,
		Capabilities: provider.ProviderCapabilities{
			Streaming: true,
		},
	}
	for _, t := range wizard.KnownStepTypes {
		card.StepTypes = append(card.StepTypes, string(t))
	}

	svc := provider.NewService(generate.Produce(generate.NewLocalRegistry()))
	srv := provider.NewServer(card, svc)
	if err := srv.Start(ctx, addr); err != nil {
		return err
	}
	log.Printf("gamesmith: serving content provider on %s", addr)

	<-ctx.Done()
	return srv.Stop(context.Background())
}

// logEvents mirrors the session event stream to the standard logger.
func logEvents(b *wizard.Broadcaster) {
	events, cancel := b.Subscribe()
	defer cancel()
	for ev := range events {
		log.Printf("gamesmith: %s session=%s payload=%v", ev.Name, ev.SessionID, ev.Payload)
	}
}
