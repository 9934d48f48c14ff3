// Package config provides configuration loading, validation, and management
// for the interview orchestrator.
//
// The configuration is a single global instance protected by a mutex,
// loaded once at startup and accessed by value so callers cannot mutate it
// in place. State (turn counts, checkpoints, transcripts) never lives here;
// that belongs to the database.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SchemaVersion tracks the config file format. Bump on any breaking field
// change so old installs fail loudly instead of misreading settings.
const SchemaVersion = 1

const (
	configDirName  = ".interviewer"
	configFileName = "config.json"
)

// Known model identifiers.
const (
	ModelClaudeSonnet  = "claude-sonnet-4-5"
	ModelGPT5Mini      = "gpt-5-mini"
	ModelGeminiFlash   = "gemini-2.5-flash"
	ModelOllamaDefault = "llama3.1"
)

// LLMConfig selects the provider and models for the orchestrator.
type LLMConfig struct {
	// Provider is one of anthropic, openai, google, ollama, mock.
	Provider string `json:"provider"`
	// ConversationModel drives greetings, questions, and feedback.
	ConversationModel string `json:"conversation_model"`
	// AnalysisModel drives intent detection, policy decisions, and scoring;
	// typically a cheaper/faster model than the conversation one.
	AnalysisModel string `json:"analysis_model"`
	// OllamaHost is only used with the ollama provider.
	OllamaHost string `json:"ollama_host,omitempty"`
	// RequestTimeout bounds a single provider call.
	RequestTimeout time.Duration `json:"request_timeout"`
}

// SandboxConfig controls the code-execution sandbox.
type SandboxConfig struct {
	// ExecutionTimeout is the hard cap on one code run; the run is killed
	// when exceeded.
	ExecutionTimeout time.Duration `json:"execution_timeout"`
	// PythonImage and NodeImage are the container images used per language.
	PythonImage string `json:"python_image"`
	NodeImage   string `json:"node_image"`
	// AllowLocal permits falling back to unsandboxed local execution when
	// no container runtime is available. Intended for development only.
	AllowLocal bool `json:"allow_local"`
}

// InterviewConfig holds conversation pacing knobs.
type InterviewConfig struct {
	// MaxHistoryMessages caps how much transcript the context builders
	// render into prompts.
	MaxHistoryMessages int `json:"max_history_messages"`
	// ResumeSectionBudget caps each resume section's rendered characters.
	ResumeSectionBudget int `json:"resume_section_budget"`
	// MessageCharBudget caps each rendered transcript line.
	MessageCharBudget int `json:"message_char_budget"`
	// SummaryInterval refreshes the rolling summary every N turns.
	SummaryInterval int `json:"summary_interval"`
	// SummaryHistoryThreshold forces a summary refresh once history grows
	// past this many entries.
	SummaryHistoryThreshold int `json:"summary_history_threshold"`
}

// Config is the root configuration record.
type Config struct {
	SchemaVersion int             `json:"schema_version"`
	LLM           LLMConfig       `json:"llm"`
	Sandbox       SandboxConfig   `json:"sandbox"`
	Interview     InterviewConfig `json:"interview"`
	DatabasePath  string          `json:"database_path"`
}

//nolint:gochecknoglobals // Intentional singleton pattern for config management
var (
	config     *Config
	projectDir string // Immutable after LoadConfig
	mu         sync.RWMutex
)

// DefaultConfig returns the config used when no file exists yet.
func DefaultConfig() Config {
	return Config{
		SchemaVersion: SchemaVersion,
		LLM: LLMConfig{
			Provider:          "anthropic",
			ConversationModel: ModelClaudeSonnet,
			AnalysisModel:     ModelClaudeSonnet,
			RequestTimeout:    60 * time.Second,
		},
		Sandbox: SandboxConfig{
			ExecutionTimeout: 30 * time.Second,
			PythonImage:      "python:3.12-slim",
			NodeImage:        "node:22-slim",
			AllowLocal:       false,
		},
		Interview: InterviewConfig{
			MaxHistoryMessages:      20,
			ResumeSectionBudget:     250,
			MessageCharBudget:       200,
			SummaryInterval:         5,
			SummaryHistoryThreshold: 30,
		},
		DatabasePath: "interviewer.db",
	}
}

// LoadConfig loads the config file from dir, creating it with defaults when
// absent. Must be called once at startup before GetConfig.
func LoadConfig(dir string) error {
	mu.Lock()
	defer mu.Unlock()

	path := filepath.Join(dir, configDirName, configFileName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := writeConfigLocked(dir, &cfg); err != nil {
			return err
		}
		config = &cfg
		projectDir = dir
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.SchemaVersion != SchemaVersion {
		return fmt.Errorf("config schema version %d does not match expected %d; migrate or regenerate %s",
			cfg.SchemaVersion, SchemaVersion, path)
	}
	if err := validate(&cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	config = &cfg
	projectDir = dir
	return nil
}

// GetConfig returns the loaded config by value.
func GetConfig() (Config, error) {
	mu.RLock()
	defer mu.RUnlock()

	if config == nil {
		return Config{}, fmt.Errorf("config not loaded; call LoadConfig first")
	}
	return *config, nil
}

// UpdateLLM replaces the LLM section atomically, validating and persisting.
func UpdateLLM(llm *LLMConfig) error {
	mu.Lock()
	defer mu.Unlock()

	if config == nil {
		return fmt.Errorf("config not loaded; call LoadConfig first")
	}

	updated := *config
	updated.LLM = *llm
	if err := validate(&updated); err != nil {
		return fmt.Errorf("invalid LLM config: %w", err)
	}
	if err := writeConfigLocked(projectDir, &updated); err != nil {
		return err
	}
	config = &updated
	return nil
}

// UpdateSandbox replaces the sandbox section atomically.
func UpdateSandbox(sandbox *SandboxConfig) error {
	mu.Lock()
	defer mu.Unlock()

	if config == nil {
		return fmt.Errorf("config not loaded; call LoadConfig first")
	}

	updated := *config
	updated.Sandbox = *sandbox
	if err := validate(&updated); err != nil {
		return fmt.Errorf("invalid sandbox config: %w", err)
	}
	if err := writeConfigLocked(projectDir, &updated); err != nil {
		return err
	}
	config = &updated
	return nil
}

func writeConfigLocked(dir string, cfg *Config) error {
	configDir := filepath.Join(dir, configDirName)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(configDir, configFileName)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil { //nolint:gosec // config holds no secrets
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}

func validate(cfg *Config) error {
	switch cfg.LLM.Provider {
	case "anthropic", "openai", "google", "ollama", "mock":
	default:
		return fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
	if cfg.LLM.ConversationModel == "" {
		return fmt.Errorf("conversation_model must be set")
	}
	if cfg.Sandbox.ExecutionTimeout <= 0 {
		return fmt.Errorf("sandbox execution_timeout must be positive")
	}
	if cfg.Interview.MaxHistoryMessages <= 0 {
		return fmt.Errorf("max_history_messages must be positive")
	}
	if cfg.DatabasePath == "" {
		return fmt.Errorf("database_path must be set")
	}
	return nil
}

// ProjectDir returns the directory LoadConfig was called with.
func ProjectDir() string {
	mu.RLock()
	defer mu.RUnlock()
	return projectDir
}

// ResetForTest clears the singleton between tests.
func ResetForTest() {
	mu.Lock()
	defer mu.Unlock()
	config = nil
	projectDir = ""
}
