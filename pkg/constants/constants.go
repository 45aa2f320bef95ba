package constants

import "time"

const (
	// ServiceName identifies this service in logs and queue streams.
	ServiceName = "cortex"
	// BinaryVersion is stamped at build time.
	BinaryVersion = "0.9.0"

	// DefaultPhaseTimeout bounds each of configure, build and run.
	DefaultPhaseTimeout = 5 * time.Minute
	// DefaultAnalyzerTimeout bounds a static-analyzer invocation.
	DefaultAnalyzerTimeout = 10 * time.Minute
	// DefaultMemcheckTimeout bounds a memory instrumentation run.
	DefaultMemcheckTimeout = 10 * time.Minute

	// MaxIdleConnection max sql idle connections.
	MaxIdleConnection = 25
	// MaxOpenConnection max sql open connections.
	MaxOpenConnection = 25
	// MaxConnectionLifetime max sql connection lifetime.
	MaxConnectionLifetime = 5 * time.Minute
	// SQLiteBusyTimeout is the busy handler budget for the embedded database.
	SQLiteBusyTimeout = 30 * time.Second
	// DefaultSQLitePath is where the embedded database lives when unconfigured.
	DefaultSQLitePath = "cortex.db"

	// DefaultShutDownDelay is the delay for graceful shutdown of all queue consumers
	DefaultShutDownDelay = 15e9 // 15 seconds, value is int64 nanoseconds due to issue in viper.
	// DefaultWorkerWaitTimeout is the default timeout for an in-flight execution to finish on shutdown.
	DefaultWorkerWaitTimeout = 30 * time.Minute
	// DefaultGracefulTimeout is default timeout for graceful shutdown of the app.
	DefaultGracefulTimeout = 5 * 6e10 // 5 minutes

	// MaxUploadSize caps the accepted source archive (100 MiB).
	MaxUploadSize = 100 << 20

	// APIBasePath is the versioned REST prefix.
	APIBasePath = "/api/v1"
	// ArtifactURLPrefix is the static mount point for artifact files.
	ArtifactURLPrefix = "/artifacts"

	// CatchMainWrapperFile is the generated Catch2 entry point.
	CatchMainWrapperFile = "catch_main_wrapper.cpp"
	// TestCasesFile is the repaired LLM test translation unit.
	TestCasesFile = "test_cases.cpp"
	// TestReportFile is the Catch2 XML reporter output.
	TestReportFile = "test_report.xml"
	// TestingAccessMacro re-labels private regions as public in user headers.
	TestingAccessMacro = "CORTEX_TESTING"

	// DefaultLLMConnectTimeout bounds the dial+header phase of LLM calls.
	DefaultLLMConnectTimeout = 30 * time.Second
	// DefaultLLMReadTimeout bounds a whole LLM completion request.
	DefaultLLMReadTimeout = 300 * time.Second
	// LLMMaxAttempts is the retry budget for connect/read failures.
	LLMMaxAttempts = 3

	// ExecutionStream is the redis stream the workers consume.
	ExecutionStream = ServiceName + ":executions"
)

// All possible env values
const (
	Dev   = "dev"
	Prod  = "prod"
	Stage = "stage"
)

// CorsAllowedOrigins list of allowed origins
var CorsAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
}

// AssetDirs are the conventional Qt asset directories mirrored into a stage.
var AssetDirs = []string{"images", "resources", "icons", "pics"}

// GeneratedFilePrefixes are build-generated sources skipped by analyzers.
var GeneratedFilePrefixes = []string{"moc_", "qrc_", "ui_"}

// SourceExtensions are the C/C++ extensions recognized across the pipelines.
var SourceExtensions = []string{".cpp", ".cc", ".cxx", ".c"}

// HeaderExtensions are the C/C++ header extensions recognized across the pipelines.
var HeaderExtensions = []string{".h", ".hpp", ".hxx"}
