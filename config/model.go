package config

import (
	"time"

	"github.com/qtforge/cortex/pkg/lumber"
)

type (
	// ConfigWrapper is a wrapper for the config
	ConfigWrapper struct {
		Config `json:"data"`
	}

	// Config the application's configuration
	Config struct {
		DB                DBConfig
		Redis             Redis
		Kafka             KafkaConfig
		LLM               LLMConfig
		Tools             ToolsConfig
		Workspace         WorkspaceConfig
		Port              string
		LogFile           string
		LogConfig         lumber.LoggingConfig
		Env               string
		Verbose           bool
		WorkerWaitTimeout time.Duration
		GracefulTimeout   time.Duration
		ShutDownDelay     time.Duration
	}

	// DBConfig provides the database configuration. The sqlite3 driver only
	// needs Path; the mysql driver uses the host fields.
	DBConfig struct {
		Driver   string `json:"driver"`
		Host     string `json:"host"`
		Port     string `json:"port"`
		User     string `json:"user"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Path     string `json:"path"`
	}

	// Redis represents the redis configuration.
	Redis struct {
		// Redis host:port address.
		Addr string
		// Redis username.
		Username string
		// Redis password.
		Password string
		// TLS enabled
		TLS bool
	}

	// KafkaConfig provides the kafka configuration for the optional execution
	// event stream. Leave Brokers empty to disable publishing.
	KafkaConfig struct {
		Brokers              string           `json:"brokers"`
		ExecutionEventConfig KafkaTopicConfig `json:"execution_events"`
	}

	// KafkaTopicConfig provides a single topic's configuration.
	KafkaTopicConfig struct {
		Topic         string `json:"topic"`
		ConsumerGroup string `json:"consumer_group"`
	}

	// LLMConfig configures the chat-completions provider used for test
	// generation.
	LLMConfig struct {
		// Endpoint the chat-completions URL.
		Endpoint string
		// APIKey bearer token, optional for local providers.
		APIKey string
		// Model the model identifier sent with every request.
		Model string
		// MaxTokens caps the completion length.
		MaxTokens int
		// Temperature sampling temperature.
		Temperature float64
	}

	// ToolsConfig pins external binaries to explicit paths. Empty fields fall
	// back to conventional install locations and then the system search path.
	ToolsConfig struct {
		CMake    string `json:"cmake"`
		Compiler string `json:"compiler"`
		Cppcheck string `json:"cppcheck"`
		Clazy    string `json:"clazy"`
		DrMemory string `json:"drmemory"`
		Robot    string `json:"robot"`
		Lcov     string `json:"lcov"`
		// QtDir the Qt installation prefix handed to the build tool.
		QtDir string `json:"qtDir"`
		// CatchDir the vendored Catch2 single-header directory.
		CatchDir string `json:"catchDir"`
	}

	// WorkspaceConfig lays out the on-disk working areas.
	WorkspaceConfig struct {
		// Root is the parent of all other directories when they are unset.
		Root string `json:"root"`
		// StageRoot holds the per-execution scratch build directories.
		StageRoot string `json:"stageRoot"`
		// ArtifactRoot holds the durable per-execution artifact directories.
		ArtifactRoot string `json:"artifactRoot"`
		// ProjectRoot holds uploaded and registered project sources.
		ProjectRoot string `json:"projectRoot"`
	}
)
