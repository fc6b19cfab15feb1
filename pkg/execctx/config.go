package execctx

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/gitvan-dev/gitvan/pkg/logger"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

var log = logger.New("execctx:config")

// DefaultConfigPath is the file Load reads when no explicit path is given.
const DefaultConfigPath = "gitvan.config.yaml"

// Config is the single config object carried through the system (spec §6).
type Config struct {
	ProjectRoot      string   `yaml:"projectRoot" json:"projectRoot"`
	HookDirs         []string `yaml:"hookDirs" json:"hookDirs"`
	GraphDirs        []string `yaml:"graphDirs" json:"graphDirs"`
	NotesRef         string   `yaml:"notesRef" json:"notesRef"`
	ShellAllowList   []string `yaml:"shellAllowList" json:"shellAllowList"`
	HTTPAllowList    []string `yaml:"httpAllowList" json:"httpAllowList"`
	WorkerCount      int      `yaml:"workerCount" json:"workerCount"`
	QueueMax         int      `yaml:"queueMax" json:"queueMax"`
	DefaultTimeoutMs int      `yaml:"defaultTimeoutMs" json:"defaultTimeoutMs"`
	SigningKeyPath   string   `yaml:"signingKeyPath" json:"signingKeyPath"`

	Warnings []string `yaml:"-" json:"-"`
}

const configSchemaJSON = `{
  "type": "object",
  "properties": {
    "projectRoot": {"type": "string"},
    "hookDirs": {"type": "array", "items": {"type": "string"}},
    "graphDirs": {"type": "array", "items": {"type": "string"}},
    "notesRef": {"type": "string"},
    "shellAllowList": {"type": "array", "items": {"type": "string"}},
    "httpAllowList": {"type": "array", "items": {"type": "string"}},
    "workerCount": {"type": "integer", "minimum": 0},
    "queueMax": {"type": "integer", "minimum": 0},
    "defaultTimeoutMs": {"type": "integer", "minimum": 0},
    "signingKeyPath": {"type": "string"}
  }
}`

var recognizedConfigKeys = map[string]bool{
	"projectRoot": true, "hookDirs": true, "graphDirs": true, "notesRef": true,
	"shellAllowList": true, "httpAllowList": true, "workerCount": true,
	"queueMax": true, "defaultTimeoutMs": true, "signingKeyPath": true,
}

// Load reads a YAML config file at path (DefaultConfigPath if empty),
// applies GITVAN_* environment overrides, and validates the result
// against the config schema. Unrecognized keys produce warnings, not
// errors.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	var raw map[string]any
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if uerr := yaml.Unmarshal(data, &raw); uerr != nil {
			return nil, fmt.Errorf("execctx: parse config %s: %w", path, uerr)
		}
	case os.IsNotExist(err):
		raw = make(map[string]any)
	default:
		return nil, fmt.Errorf("execctx: read config %s: %w", path, err)
	}

	cfg := &Config{}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("execctx: decode config %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := validateConfig(raw); err != nil {
		return nil, err
	}
	for k := range raw {
		if !recognizedConfigKeys[k] {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unrecognized config key: %q", k))
			log.Printf("unrecognized config key: %s", k)
		}
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = "."
	}
	if cfg.NotesRef == "" {
		cfg.NotesRef = "refs/notes/gitvan/receipts"
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.QueueMax <= 0 {
		cfg.QueueMax = 10000
	}
	if cfg.DefaultTimeoutMs <= 0 {
		cfg.DefaultTimeoutMs = 5000
	}
}

// applyEnvOverrides honors GITVAN_* environment variables, consistent
// with the teacher's DEBUG/GH_TOKEN environment-driven conventions.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GITVAN_PROJECT_ROOT"); v != "" {
		cfg.ProjectRoot = v
	}
	if v := os.Getenv("GITVAN_NOTES_REF"); v != "" {
		cfg.NotesRef = v
	}
	if v := os.Getenv("GITVAN_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WorkerCount = n
		}
	}
	if v := os.Getenv("GITVAN_QUEUE_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueueMax = n
		}
	}
	if v := os.Getenv("GITVAN_DEFAULT_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DefaultTimeoutMs = n
		}
	}
	if v := os.Getenv("GITVAN_SIGNING_KEY_PATH"); v != "" {
		cfg.SigningKeyPath = v
	}
	if v := os.Getenv("GITVAN_SHELL_ALLOW_LIST"); v != "" {
		cfg.ShellAllowList = strings.Split(v, ",")
	}
}

func validateConfig(raw map[string]any) error {
	compiler := jsonschema.NewCompiler()
	var schemaDoc any
	if err := json.Unmarshal([]byte(configSchemaJSON), &schemaDoc); err != nil {
		return fmt.Errorf("execctx: invalid embedded config schema: %w", err)
	}
	const schemaURL = "https://gitvan.dev/schema/config.json"
	if err := compiler.AddResource(schemaURL, schemaDoc); err != nil {
		return fmt.Errorf("execctx: add config schema resource: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("execctx: compile config schema: %w", err)
	}

	normalized, err := normalizeForValidation(raw)
	if err != nil {
		return err
	}
	if err := schema.Validate(normalized); err != nil {
		return fmt.Errorf("execctx: config validation failed: %w", err)
	}
	return nil
}

func normalizeForValidation(raw map[string]any) (any, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("execctx: marshal config for validation: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, fmt.Errorf("execctx: unmarshal config for validation: %w", err)
	}
	return normalized, nil
}
