package config

import (
	"time"
)

// Config is the root `circular.toml` document. Its shape follows the
// ancestor tool's config package: small typed sub-structs decoded directly
// from TOML, with an explicit Load (loader.go) + applyDefaults +
// validate* (validator.go) pipeline rather than a struct-tag validation
// library.
type Config struct {
	Version             int                 `toml:"version"`
	Paths               Paths               `toml:"paths"`
	ConfigFiles         ConfigFiles         `toml:"config"`
	DB                  Database            `toml:"db"`
	Projects            Projects            `toml:"projects"`
	MCP                 MCP                 `toml:"mcp"`
	GrammarsPath        string              `toml:"grammars_path"`
	GrammarVerification GrammarVerification `toml:"grammar_verification"`
	Languages           map[string]Language `toml:"languages"`
	WatchPaths          []string            `toml:"watch_paths"`
	Exclude             Exclude             `toml:"exclude"`
	Watch               Watch               `toml:"watch"`
	Output              Output              `toml:"output"`
	Alerts              Alerts              `toml:"alerts"`
	Architecture        Architecture        `toml:"architecture"`
	Secrets             Secrets             `toml:"secrets"`
	Caches              Caches              `toml:"caches"`
	Observability       Observability       `toml:"observability"`
	Resolver            Resolver            `toml:"resolver"`
	WriteQueue          WriteQueueConfig    `toml:"write_queue"`
	DynamicGrammars     []DynamicGrammar    `toml:"dynamic_grammars"`

	// Reachability and Context configure the Reachability Analyzer's
	// entry-point/safety-tier policy and the Context Gatherer's default
	// depths and token budget.
	Reachability Reachability    `toml:"reachability"`
	Context      ContextDefaults `toml:"context"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
	ConfigDir   string `toml:"config_dir"`
	StateDir    string `toml:"state_dir"`
	CacheDir    string `toml:"cache_dir"`
	DatabaseDir string `toml:"database_dir"`
	BackupsDir  string `toml:"backups_dir"`
	LogsDir     string `toml:"logs_dir"`
}

type ConfigFiles struct {
	ActiveFile string   `toml:"active_file"`
	Includes   []string `toml:"includes"`
}

// Database configures the persistent index store (entities, references,
// dead-code classifications, and scan history).
type Database struct {
	Enabled     bool          `toml:"enabled"`
	Driver      string        `toml:"driver"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	ProjectMode string        `toml:"project_mode"`
}

type Projects struct {
	Active       string         `toml:"active"`
	RegistryFile string         `toml:"registry_file"`
	Entries      []ProjectEntry `toml:"entries"`
}

type ProjectEntry struct {
	Name        string `toml:"name"`
	Root        string `toml:"root"`
	DBNamespace string `toml:"db_namespace"`
	ConfigFile  string `toml:"config_file"`
}

// MCP configures the JSON-RPC-over-stdio (or SSE) surface.
type MCP struct {
	Enabled            bool          `toml:"enabled"`
	Mode               string        `toml:"mode"` // embedded|server
	Transport          string        `toml:"transport"`
	Address            string        `toml:"address"`
	ConfigPath         string        `toml:"config_path"`
	ServerName         string        `toml:"server_name"`
	ServerVersion      string        `toml:"server_version"`
	MaxResponseItems   int           `toml:"max_response_items"`
	RequestTimeout     time.Duration `toml:"request_timeout"`
	AllowMutations     bool          `toml:"allow_mutations"`
	ExposedToolName    string        `toml:"exposed_tool_name"`
	OperationAllowlist []string      `toml:"operation_allowlist"`
	OpenAPISpecPath    string        `toml:"openapi_spec_path"`
	OpenAPISpecURL     string        `toml:"openapi_spec_url"`
	AutoManageOutputs  *bool         `toml:"auto_manage_outputs"`
	AutoSyncConfig     *bool         `toml:"auto_sync_config"`
	RateLimit          MCPRateLimit  `toml:"rate_limit"`
}

func (m MCP) AutoManageOutputsEnabled() bool {
	if m.AutoManageOutputs == nil {
		return true
	}
	return *m.AutoManageOutputs
}

func (m MCP) AutoSyncConfigEnabled() bool {
	if m.AutoSyncConfig == nil {
		return true
	}
	return *m.AutoSyncConfig
}

// MCPRateLimit bounds the transport's request rate; shared between the
// stdio and SSE adapters.
type MCPRateLimit struct {
	RequestsPerMinute    int `toml:"requests_per_minute"`
	SSERequestsPerMinute int `toml:"sse_requests_per_minute"`
	Burst                int `toml:"burst"`
}

type GrammarVerification struct {
	Enabled *bool `toml:"enabled"`
}

func (g GrammarVerification) IsEnabled() bool {
	if g.Enabled == nil {
		return true
	}
	return *g.Enabled
}

type Language struct {
	Enabled    *bool    `toml:"enabled"`
	Extensions []string `toml:"extensions"`
	Filenames  []string `toml:"filenames"`
}

func (l Language) IsEnabled() bool {
	if l.Enabled == nil {
		return true
	}
	return *l.Enabled
}

// Exclude is the in-config mirror of `.indexchanignore`; both are merged
// when building the ignore policy matcher.
type Exclude struct {
	Dirs    []string `toml:"dirs"`
	Files   []string `toml:"files"`
	Symbols []string `toml:"symbols"` // Name prefixes to ignore (e.g., self., ctx.)
	Imports []string `toml:"imports"` // Import paths to ignore for unused-import checks
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

// Output configures export targets and report rendering.
type Output struct {
	DefaultFormat  string              `toml:"default_format"` // graphml|dot|json
	DOT            string              `toml:"dot"`
	TSV            string              `toml:"tsv"`
	Mermaid        string              `toml:"mermaid"`
	PlantUML       string              `toml:"plantuml"`
	Markdown       string              `toml:"markdown"`
	SARIF          string              `toml:"sarif"`
	UpdateMarkdown []MarkdownInjection `toml:"update_markdown"`
	Paths          OutputPaths         `toml:"paths"`
	Diagrams       DiagramOutput       `toml:"diagrams"`
	Report         ReportOutput        `toml:"report"`
}

func (o Output) MermaidEnabled() bool {
	return o.Mermaid != ""
}

func (o Output) PlantUMLEnabled() bool {
	return o.PlantUML != ""
}

type MarkdownInjection struct {
	File   string `toml:"file"`
	Marker string `toml:"marker"`
	Format string `toml:"format"`
}

type OutputPaths struct {
	Root        string `toml:"root"`
	DiagramsDir string `toml:"diagrams_dir"`
}

// DiagramOutput selects which extra diagram views (beyond the default
// dependency graph) get rendered alongside mermaid/plantuml output.
type DiagramOutput struct {
	Architecture bool            `toml:"architecture"`
	Component    bool            `toml:"component"`
	Flow         bool            `toml:"flow"`
	ComponentCfg ComponentOutput `toml:"component_config"`
	FlowConfig   FlowOutput      `toml:"flow_config"`
}

type ComponentOutput struct {
	ShowInternal bool `toml:"show_internal"`
}

type FlowOutput struct {
	EntryPoints []string `toml:"entry_points"`
	MaxDepth    int      `toml:"max_depth"`
}

type ReportOutput struct {
	Verbosity           string `toml:"verbosity"` // summary|standard|detailed
	TableOfContents     *bool  `toml:"table_of_contents"`
	CollapsibleSections *bool  `toml:"collapsible_sections"`
	IncludeMermaid      *bool  `toml:"include_mermaid"`
}

func (r ReportOutput) TableOfContentsEnabled() bool {
	if r.TableOfContents == nil {
		return true
	}
	return *r.TableOfContents
}

func (r ReportOutput) CollapsibleSectionsEnabled() bool {
	if r.CollapsibleSections == nil {
		return true
	}
	return *r.CollapsibleSections
}

func (r ReportOutput) IncludeMermaidEnabled() bool {
	if r.IncludeMermaid == nil {
		return false
	}
	return *r.IncludeMermaid
}

type Alerts struct {
	Beep     bool `toml:"beep"`
	Terminal bool `toml:"terminal"`
}

// Architecture configures conformance checks: layer dependency rules and
// per-package budget/import rules.
type Architecture struct {
	Enabled       bool                `toml:"enabled"`
	TopComplexity int                 `toml:"top_complexity"`
	Layers        []ArchitectureLayer `toml:"layers"`
	Rules         []ArchitectureRule  `toml:"rules"`
}

type ArchitectureLayer struct {
	Name  string   `toml:"name"`
	Paths []string `toml:"paths"`
}

// ArchitectureRule is either a "layer" rule (From/Allow) or a "package"
// rule (Modules/MaxFiles/Imports/Exclude), distinguished by Kind.
type ArchitectureRule struct {
	Name     string      `toml:"name"`
	Kind     string      `toml:"kind"` // layer|package
	From     string      `toml:"from"`
	Allow    []string    `toml:"allow"`
	Modules  []string    `toml:"modules"`
	MaxFiles int         `toml:"max_files"`
	Imports  RuleImports `toml:"imports"`
	Exclude  RuleExclude `toml:"exclude"`
}

type RuleImports struct {
	Allow []string `toml:"allow"`
	Deny  []string `toml:"deny"`
}

type RuleExclude struct {
	Files []string `toml:"files"`
}

// Secrets configures the secret-scanning pass (git history + working tree).
type Secrets struct {
	Enabled          bool            `toml:"enabled"`
	EntropyThreshold float64         `toml:"entropy_threshold"`
	MinTokenLength   int             `toml:"min_token_length"`
	Patterns         []SecretPattern `toml:"patterns"`
	Exclude          SecretsExclude  `toml:"exclude"`
	// GitHistoryDepth is how many commits `scan --git-history` inspects for
	// secrets that were since removed from the working tree. 0 disables it.
	GitHistoryDepth int `toml:"git_history_depth"`
}

type SecretPattern struct {
	Name     string `toml:"name"`
	Regex    string `toml:"regex"`
	Severity string `toml:"severity"`
}

type SecretsExclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Caches struct {
	Files        int `toml:"files"`
	FileContents int `toml:"file_contents"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Port          int    `toml:"port"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

// Resolver configures cross-language bridge-reference confidence scoring.
type Resolver struct {
	BridgeScoring BridgeScoring `toml:"bridge_scoring"`
}

type BridgeScoring struct {
	ConfirmedThreshold int `toml:"confirmed_threshold"`
	ProbableThreshold  int `toml:"probable_threshold"`
}

// WriteQueueConfig configures the async write-behind queue that decouples
// index-store writes from the scan/watch hot path.
type WriteQueueConfig struct {
	Enabled              bool          `toml:"enabled"`
	MemoryCapacity       int           `toml:"memory_capacity"`
	BatchSize            int           `toml:"batch_size"`
	FlushInterval        time.Duration `toml:"flush_interval"`
	ShutdownDrainTimeout time.Duration `toml:"shutdown_drain_timeout"`
	RetryBaseDelay       time.Duration `toml:"retry_base_delay"`
	RetryMaxDelay        time.Duration `toml:"retry_max_delay"`
	SyncFallback         bool          `toml:"sync_fallback"`
	PersistentEnabled    bool          `toml:"persistent_enabled"`
	SpoolPath            string        `toml:"spool_path"`
}

func (q WriteQueueConfig) QueueEnabled() bool        { return q.Enabled }
func (q WriteQueueConfig) SyncFallbackEnabled() bool { return q.SyncFallback }
func (q WriteQueueConfig) PersistentQueueEnabled() bool {
	return q.PersistentEnabled
}

// DynamicGrammar registers a tree-sitter grammar loaded from a shared
// library at runtime rather than statically linked.
type DynamicGrammar struct {
	Name            string   `toml:"name"`
	Library         string   `toml:"library"`
	Extensions      []string `toml:"extensions"`
	Filenames       []string `toml:"filenames"`
	NamespaceNode   string   `toml:"namespace_node"`
	ImportNode      string   `toml:"import_node"`
	DefinitionNodes []string `toml:"definition_nodes"`
}

// Reachability configures the entry-point set and safety-tier policy:
// which simple names count as entry points by convention, which file-path
// substrings mark test scaffolding, and two implementer-decided flags
// (see DESIGN.md) governing alias resolution and local-function targets.
type Reachability struct {
	EntryPointNames                   []string `toml:"entry_point_names"`
	TestPathMarkers                   []string `toml:"test_path_markers"`
	ResolveThroughAlias               bool     `toml:"resolve_through_alias"`
	LocalFunctionsAreTargets          bool     `toml:"local_functions_are_targets"`
	StringLiteralsCountAsProbablySafe bool     `toml:"string_literals_count_as_probably_safe"`
}

// ContextDefaults configures the Context Gatherer's default depths and
// budget.
type ContextDefaults struct {
	ForwardDepth  int `toml:"forward_depth"`
	BackwardDepth int `toml:"backward_depth"`
	TokenBudget   int `toml:"token_budget"`
	SkeletonAfter int `toml:"skeleton_after_hops"`
}
