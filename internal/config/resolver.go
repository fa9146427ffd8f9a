// Package config resolves tessera configuration from its YAML file,
// the environment, and CLI flags, recording where each value came from.
// Precedence: CLI > environment > config file > built-in default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueSource identifies where a resolved value came from.
type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// ResolvedValue is a configuration value plus its provenance.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries the CLI-level overrides into resolution.
type ResolveOptions struct {
	ConfigPath  string
	CLIInput    string
	CLIOutput   string
	CLILLM      string
	CLIGeocode  string // "true"/"false"; empty = not set on the CLI
	CLIGeoCache string
}

// ResolvedConfig is the full resolved configuration.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	InputDir  ResolvedValue `json:"input_dir"`
	OutputDir ResolvedValue `json:"output_dir"`

	// LLMModel is "provider/model", e.g. "google/gemini-2.5-flash".
	LLMModel ResolvedValue `json:"llm_model"`

	Geocode     ResolvedValue `json:"geocode"`
	GeoCacheDB  ResolvedValue `json:"geo_cache_db"`
	GeoEndpoint ResolvedValue `json:"geo_endpoint"`

	EmbedEndpoint ResolvedValue `json:"embed_endpoint"`
	EmbedModel    ResolvedValue `json:"embed_model"`
	EmbedAPIKey   ResolvedValue `json:"embed_api_key"`

	LLMKeys map[string]ResolvedValue `json:"llm_keys,omitempty"`
}

type fileConfig struct {
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`
	LLM       struct {
		Model  string `yaml:"model"`
		APIKey string `yaml:"api_key"`
	} `yaml:"llm"`
	Geo struct {
		Enabled  *bool  `yaml:"enabled"`
		CacheDB  string `yaml:"cache_db"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"geo"`
	Embed struct {
		Endpoint string `yaml:"endpoint"`
		Model    string `yaml:"model"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"embed"`
}

// DefaultConfigPath is ~/.tessera/config.yaml.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tessera", "config.yaml")
}

// Resolve produces the effective configuration. A missing config file
// is not an error; a malformed one is.
func Resolve(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath: path,
		InputDir:   ResolvedValue{Value: "data", Source: SourceDefault, From: "built-in default"},
		OutputDir:  ResolvedValue{Value: "output", Source: SourceDefault, From: "built-in default"},
		LLMModel:   ResolvedValue{Value: "google/gemini-2.5-flash", Source: SourceDefault, From: "built-in default"},
		Geocode:    ResolvedValue{Value: "false", Source: SourceDefault, From: "built-in default"},
		GeoCacheDB: ResolvedValue{Value: "~/.tessera/geocache.db", Source: SourceDefault, From: "built-in default"},
		LLMKeys:    map[string]ResolvedValue{},
	}

	cfg, err := loadFile(path)
	if err != nil {
		return out, err
	}
	if cfg != nil {
		apply(&out.InputDir, cfg.InputDir, SourceConfig, path)
		apply(&out.OutputDir, cfg.OutputDir, SourceConfig, path)
		apply(&out.LLMModel, cfg.LLM.Model, SourceConfig, path)
		if cfg.Geo.Enabled != nil {
			apply(&out.Geocode, fmt.Sprintf("%t", *cfg.Geo.Enabled), SourceConfig, path)
		}
		apply(&out.GeoCacheDB, cfg.Geo.CacheDB, SourceConfig, path)
		apply(&out.GeoEndpoint, cfg.Geo.Endpoint, SourceConfig, path)
		apply(&out.EmbedEndpoint, cfg.Embed.Endpoint, SourceConfig, path)
		apply(&out.EmbedModel, cfg.Embed.Model, SourceConfig, path)
		if key := strings.TrimSpace(cfg.Embed.APIKey); key != "" {
			out.EmbedAPIKey = ResolvedValue{Value: key, Source: SourceConfig, From: path}
		}
		if key := strings.TrimSpace(cfg.LLM.APIKey); key != "" {
			provider := providerOf(firstNonEmpty(cfg.LLM.Model, out.LLMModel.Value))
			if provider == "" {
				provider = "default"
			}
			out.LLMKeys[provider] = ResolvedValue{Value: key, Source: SourceConfig, From: path}
		}
	}

	applyEnv(&out.InputDir, "TESSERA_INPUT")
	applyEnv(&out.OutputDir, "TESSERA_OUTPUT")
	applyEnv(&out.LLMModel, "TESSERA_LLM")
	applyEnv(&out.Geocode, "TESSERA_GEOCODE")
	applyEnv(&out.GeoCacheDB, "TESSERA_GEO_CACHE")
	applyEnv(&out.GeoEndpoint, "TESSERA_GEO_ENDPOINT")
	applyEnv(&out.EmbedEndpoint, "TESSERA_EMBED_ENDPOINT")
	applyEnv(&out.EmbedModel, "TESSERA_EMBED_MODEL")
	if v := strings.TrimSpace(os.Getenv("TESSERA_EMBED_API_KEY")); v != "" {
		out.EmbedAPIKey = ResolvedValue{Value: v, Source: SourceEnv, From: "TESSERA_EMBED_API_KEY"}
	}

	// Later entries never displace earlier ones for the same provider,
	// so GEMINI_API_KEY wins over GOOGLE_API_KEY.
	envKeys := []struct{ env, provider string }{
		{"OPENROUTER_API_KEY", "openrouter"},
		{"GEMINI_API_KEY", "google"},
		{"GOOGLE_API_KEY", "google"},
	}
	seen := map[string]bool{}
	for _, k := range envKeys {
		if seen[k.provider] {
			continue
		}
		if v := strings.TrimSpace(os.Getenv(k.env)); v != "" {
			out.LLMKeys[k.provider] = ResolvedValue{Value: v, Source: SourceEnv, From: k.env}
			seen[k.provider] = true
		}
	}

	apply(&out.InputDir, opts.CLIInput, SourceCLI, "--in")
	apply(&out.OutputDir, opts.CLIOutput, SourceCLI, "--out")
	apply(&out.LLMModel, opts.CLILLM, SourceCLI, "--llm")
	apply(&out.Geocode, opts.CLIGeocode, SourceCLI, "--geocode")
	apply(&out.GeoCacheDB, opts.CLIGeoCache, SourceCLI, "--geo-cache")

	out.GeoCacheDB.Value = expandUserPath(out.GeoCacheDB.Value)

	return out, nil
}

// GeocodeEnabled reports whether fallback-path geocoding is on.
func (r ResolvedConfig) GeocodeEnabled() bool {
	return strings.EqualFold(strings.TrimSpace(r.Geocode.Value), "true")
}

// APIKeyFor returns the key for a "provider/model" string or bare
// provider name.
func (r ResolvedConfig) APIKeyFor(providerOrModel string) ResolvedValue {
	provider := providerOf(providerOrModel)
	if provider == "" {
		return ResolvedValue{}
	}
	if v, ok := r.LLMKeys[provider]; ok && strings.TrimSpace(v.Value) != "" {
		return v
	}
	if v, ok := r.LLMKeys["default"]; ok && strings.TrimSpace(v.Value) != "" {
		return v
	}
	return ResolvedValue{}
}

func providerOf(providerOrModel string) string {
	v := strings.ToLower(strings.TrimSpace(providerOrModel))
	if v == "" {
		return ""
	}
	if idx := strings.Index(v, "/"); idx > 0 {
		return v[:idx]
	}
	return v
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadFile(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
