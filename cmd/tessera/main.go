package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/tesseralab/tessera/internal/config"
	"github.com/tesseralab/tessera/internal/enrich"
	"github.com/tesseralab/tessera/internal/geo"
	"github.com/tesseralab/tessera/internal/llm"
	mcpserver "github.com/tesseralab/tessera/internal/mcp"
	"github.com/tesseralab/tessera/internal/pipeline"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "run":
		if err := runPipeline(os.Args[2:], true, true); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "enrich":
		if err := runPipeline(os.Args[2:], true, false); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "link":
		if err := runPipeline(os.Args[2:], false, true); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "watch":
		if err := runWatch(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "relate":
		if err := runRelate(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "mcp":
		if err := runMCP(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "config":
		if err := runConfig(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("tessera %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// cliFlags holds the flag values shared across commands.
type cliFlags struct {
	opts  config.ResolveOptions
	noLLM bool
}

// parseFlags handles the hand-rolled flag loop shared by every command.
func parseFlags(args []string) (cliFlags, error) {
	var f cliFlags
	for i := 0; i < len(args); i++ {
		arg := args[i]

		var dst *string
		switch arg {
		case "--in", "-i":
			dst = &f.opts.CLIInput
		case "--out", "-o":
			dst = &f.opts.CLIOutput
		case "--llm":
			dst = &f.opts.CLILLM
		case "--config":
			dst = &f.opts.ConfigPath
		case "--geo-cache":
			dst = &f.opts.CLIGeoCache
		case "--geocode":
			f.opts.CLIGeocode = "true"
			continue
		case "--no-geocode":
			f.opts.CLIGeocode = "false"
			continue
		case "--no-llm":
			f.noLLM = true
			continue
		default:
			return f, fmt.Errorf("unknown flag: %s", arg)
		}

		if i+1 >= len(args) {
			return f, fmt.Errorf("%s requires a value", arg)
		}
		i++
		*dst = args[i]
	}
	return f, nil
}

// buildEnricher wires the enricher from resolved configuration: the
// model provider behind a circuit breaker (or nothing, which forces the
// local fallback path) and optionally the geocoder.
func buildEnricher(cfg config.ResolvedConfig, noLLM bool) (*enrich.Enricher, llm.Provider, func(), error) {
	cleanup := func() {}

	var provider llm.Provider
	if !noLLM {
		llmCfg, err := llm.ParseModelFlag(cfg.LLMModel.Value)
		if err != nil {
			return nil, nil, cleanup, err
		}
		llmCfg.APIKey = cfg.APIKeyFor(cfg.LLMModel.Value).Value

		raw, err := llm.NewProvider(llmCfg)
		var noCred *llm.ErrNoCredential
		switch {
		case err == nil:
			provider = llm.NewBreaker(raw)
		case errors.As(err, &noCred):
			fmt.Fprintf(os.Stderr, "Warning: %v — using local extraction only\n", err)
		default:
			return nil, nil, cleanup, err
		}
	}

	e := &enrich.Enricher{Provider: provider}

	if cfg.GeocodeEnabled() {
		geoCfg := geo.Config{Endpoint: cfg.GeoEndpoint.Value}
		if path := cfg.GeoCacheDB.Value; path != "" {
			cache, err := geo.OpenCache(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: geocode cache unavailable (%v), continuing without it\n", err)
			} else {
				geoCfg.Cache = cache
				cleanup = func() { cache.Close() }
			}
		}
		e.Places = geo.New(geoCfg)
	}

	return e, provider, cleanup, nil
}

func runPipeline(args []string, enrichStage, linkStage bool) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(flags.opts)
	if err != nil {
		return err
	}

	enricher, provider, cleanup, err := buildEnricher(cfg, flags.noLLM)
	if err != nil {
		return err
	}
	defer cleanup()

	p := &pipeline.Pipeline{
		InputDir:  cfg.InputDir.Value,
		OutputDir: cfg.OutputDir.Value,
		Enricher:  enricher,
		Provider:  provider,
	}

	ctx := context.Background()
	var stats *pipeline.Stats
	switch {
	case enrichStage && linkStage:
		fmt.Printf("Enriching %s -> %s\n", p.InputDir, p.OutputDir)
		stats, err = p.Run(ctx)
	case enrichStage:
		fmt.Printf("Enriching %s -> %s\n", p.InputDir, p.OutputDir)
		stats, err = p.EnrichAll(ctx)
	default:
		fmt.Printf("Linking documents in %s\n", p.OutputDir)
		stats, err = p.LinkAll(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Println()
	printStats(stats, enrichStage, linkStage)
	return nil
}

func printStats(stats *pipeline.Stats, enrichStage, linkStage bool) {
	if enrichStage {
		fmt.Printf("Scanned:  %d file(s)\n", stats.Scanned)
		fmt.Printf("Enriched: %d document(s)\n", stats.Enriched)
		if stats.Skipped > 0 {
			fmt.Printf("Skipped:  %d (no usable text)\n", stats.Skipped)
		}
	}
	if linkStage {
		fmt.Printf("Links:    %d across %d document(s)\n", stats.Linked, stats.LinkedDocs)
	}
	if len(stats.Errors) > 0 {
		fmt.Printf("Errors:   %d\n", len(stats.Errors))
		for _, e := range stats.Errors {
			fmt.Printf("  %s: %s\n", e.File, e.Message)
		}
	}
}

func runMCP(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(flags.opts)
	if err != nil {
		return err
	}

	enricher, provider, cleanup, err := buildEnricher(cfg, flags.noLLM)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := os.MkdirAll(cfg.OutputDir.Value, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", cfg.OutputDir.Value, err)
	}

	srv := mcpserver.NewServer(mcpserver.ServerConfig{
		OutputDir: cfg.OutputDir.Value,
		Enricher:  enricher,
		Provider:  provider,
		Version:   version,
	})

	fmt.Fprintf(os.Stderr, "tessera MCP server on stdio (documents in %s)\n", cfg.OutputDir.Value)
	return server.ServeStdio(srv)
}

func runConfig(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(flags.opts)
	if err != nil {
		return err
	}

	// Redact key material before printing.
	for provider, v := range cfg.LLMKeys {
		v.Value = redact(v.Value)
		cfg.LLMKeys[provider] = v
	}
	cfg.EmbedAPIKey.Value = redact(cfg.EmbedAPIKey.Value)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func redact(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func printUsage() {
	fmt.Printf(`tessera %s — JSON document enrichment and linking

Usage:
  tessera <command> [flags]

Commands:
  run                 Enrich every input document, then link the collection
  enrich              Enrich input documents only
  link                Recompute cross-document links over existing output
  watch               Watch the input directory and re-run on changes
  relate              Score pairwise document relatedness from embeddings
  mcp                 Serve the pipeline over MCP (stdio)
  config              Print the resolved configuration and where each value came from
  version             Print version

Flags:
  -i, --in <dir>      Input directory (default: data)
  -o, --out <dir>     Output directory (default: output)
      --llm <p/m>     Model as provider/model (default: google/gemini-2.5-flash)
      --no-llm        Skip the model entirely; local extraction only
      --geocode       Resolve locations via Nominatim on the fallback path
      --no-geocode    Disable geocoding even if enabled in config
      --geo-cache <f> Geocode cache database path
      --config <f>    Config file (default: ~/.tessera/config.yaml)
`, version)
}
