// Package indexer wires the parser, resolver, reachability analyzer,
// context gatherer, and index store into the operations the CLI and RPC
// surfaces expose: scan, clean, annotate, export, stats, and gather_context.
// Every operation is scoped to a single project directory carrying its own
// `.index-chan/` state, independent of any other project on disk.
package indexer

import (
	stdcontext "context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"indexchan/internal/core/backup"
	"indexchan/internal/core/config"
	cherrors "indexchan/internal/core/errors"
	"indexchan/internal/core/watcher"
	"indexchan/internal/data/store"
	"indexchan/internal/engine/analyzer"
	"indexchan/internal/engine/context"
	"indexchan/internal/engine/parser"
	"indexchan/internal/engine/resolver"
	"indexchan/internal/engine/secrets"
	"indexchan/internal/output"
	"indexchan/internal/ui/report/formats"
)

// StateDirName is the per-project directory holding the index store,
// backups, and an optional config override.
const StateDirName = ".index-chan"

// IgnoreFileName is the gitignore-style exclude file consulted alongside
// config.Exclude during a scan.
const IgnoreFileName = ".indexchanignore"

// Engine bundles the parser and configuration needed to run every
// operation rooted at a single project directory.
type Engine struct {
	Root    string
	Config  *config.Config
	Parser  *parser.Parser
	secrets *secrets.Detector // nil when config.Secrets.Enabled is false
}

// StateDir returns `<root>/.index-chan`.
func (e *Engine) StateDir() string { return filepath.Join(e.Root, StateDirName) }

func (e *Engine) storePath() string {
	return filepath.Join(e.StateDir(), "store.db")
}

func (e *Engine) backupManager() *backup.Manager {
	return backup.NewManager(e.Root)
}

// LoadConfig loads `<root>/.index-chan/config.toml` if present, falling
// back to built-in defaults so `scan` works before `init` has run.
func LoadConfig(root string) (*config.Config, error) {
	path := filepath.Join(root, StateDirName, "config.toml")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return config.Default(), nil
		}
		return nil, cherrors.Wrap(err, cherrors.CodeIO, "stat project config")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, cherrors.Wrap(err, cherrors.CodeInput, "load project config")
	}
	return cfg, nil
}

// New builds an Engine rooted at root, constructing the parser from the
// resolved language registry the same way the grammar loader does.
func New(root string, cfg *config.Config) (*Engine, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, cherrors.Wrap(err, cherrors.CodeInput, "resolve project root")
	}

	registry, err := parser.BuildLanguageRegistry(languageOverrides(cfg))
	if err != nil {
		return nil, cherrors.Wrap(err, cherrors.CodeInput, "build language registry")
	}
	loader, err := parser.NewGrammarLoaderWithRegistry(cfg.GrammarsPath, registry, cfg.GrammarVerification.IsEnabled())
	if err != nil {
		return nil, cherrors.Wrap(err, cherrors.CodeInput, "load grammars")
	}
	p := parser.NewParser(loader)
	if err := p.RegisterDefaultExtractors(); err != nil {
		return nil, cherrors.Wrap(err, cherrors.CodeInput, "register extractors")
	}

	var detector *secrets.Detector
	if cfg.Secrets.Enabled {
		patterns := make([]secrets.PatternConfig, 0, len(cfg.Secrets.Patterns))
		for _, pat := range cfg.Secrets.Patterns {
			patterns = append(patterns, secrets.PatternConfig{Name: pat.Name, Regex: pat.Regex, Severity: pat.Severity})
		}
		detector, err = secrets.NewDetector(secrets.Config{
			EntropyThreshold: cfg.Secrets.EntropyThreshold,
			MinTokenLength:   cfg.Secrets.MinTokenLength,
			Patterns:         patterns,
		})
		if err != nil {
			return nil, cherrors.Wrap(err, cherrors.CodeInput, "build secret detector")
		}
	}

	return &Engine{Root: absRoot, Config: cfg, Parser: p, secrets: detector}, nil
}

func languageOverrides(cfg *config.Config) map[string]parser.LanguageOverride {
	overrides := make(map[string]parser.LanguageOverride, len(cfg.Languages))
	for lang, languageCfg := range cfg.Languages {
		overrides[lang] = parser.LanguageOverride{
			Enabled:    languageCfg.IsEnabled(),
			Extensions: append([]string(nil), languageCfg.Extensions...),
			Filenames:  append([]string(nil), languageCfg.Filenames...),
		}
	}
	return overrides
}

// ScanResult is everything a scan produces: the parsed files, the resolved
// reference graph, unresolved reference sites, the reachability report, and
// what changed in the index store.
type ScanResult struct {
	Files      []*parser.File
	Graph      *resolver.ReferenceGraph
	Unresolved []resolver.UnresolvedReference
	Analysis   analyzer.Report
	Refresh    store.RefreshResult
}

// Scan walks the project, (re)parses every supported file not excluded by
// `.indexchanignore` or config.Exclude, builds the reference graph, runs
// reachability, and persists the incremental refresh to the index store.
func (e *Engine) Scan() (ScanResult, error) {
	paths, err := e.discoverFiles()
	if err != nil {
		return ScanResult{}, err
	}

	st, err := store.Open(e.storePath(), 5*time.Second)
	if err != nil {
		return ScanResult{}, err
	}
	defer st.Close()

	known, err := st.KnownFiles()
	if err != nil {
		return ScanResult{}, err
	}

	var secretDirGlobs, secretFileGlobs []glob.Glob
	if e.secrets != nil {
		secretDirGlobs, err = compileGlobs(e.Config.Secrets.Exclude.Dirs, "secrets.exclude.dirs")
		if err != nil {
			return ScanResult{}, err
		}
		secretFileGlobs, err = compileGlobs(e.Config.Secrets.Exclude.Files, "secrets.exclude.files")
		if err != nil {
			return ScanResult{}, err
		}
	}

	files := make([]*parser.File, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		seen[p] = true
		content, err := os.ReadFile(p)
		if err != nil {
			return ScanResult{}, cherrors.Wrap(err, cherrors.CodeIO, fmt.Sprintf("read %s", p))
		}
		if hash, ok := known[p]; ok && hash == store.FileHash(content) {
			// unchanged; still needs re-parsing since the graph is
			// rebuilt from scratch every scan (no cross-scan file cache).
		}
		f, err := e.Parser.ParseFile(p, content)
		if err != nil {
			return ScanResult{}, cherrors.Wrap(err, cherrors.CodeParse, fmt.Sprintf("parse %s", p))
		}
		if e.secrets != nil && !secretsExcluded(e.Root, p, secretDirGlobs, secretFileGlobs) {
			f.Secrets = e.secrets.Detect(p, content)
		}
		files = append(files, f)
	}

	var removed []string
	for p := range known {
		if !seen[p] {
			removed = append(removed, p)
		}
	}
	sort.Strings(removed)

	opts := resolver.BuildOptions{
		ResolveThroughAlias:      e.Config.Reachability.ResolveThroughAlias,
		LocalFunctionsAreTargets: e.Config.Reachability.LocalFunctionsAreTargets,
	}
	rg, unresolved := resolver.Build(files, opts)
	report, err := analyzer.Analyze(stdcontext.Background(), rg, unresolved, e.Config.Reachability, nil)
	if err != nil {
		return ScanResult{}, err
	}

	refresh, err := st.Refresh(stdcontext.Background(), files, rg, unresolved, report, removed)
	if err != nil {
		return ScanResult{}, err
	}

	return ScanResult{Files: files, Graph: rg, Unresolved: unresolved, Analysis: report, Refresh: refresh}, nil
}

// ScanGitHistory inspects up to depth commits of version history for
// secrets that no longer appear in the working tree. It requires
// config.Secrets.Enabled (the detector built at Engine construction is
// reused) and the `git` binary on PATH; depth <= 0 is a no-op.
func (e *Engine) ScanGitHistory(depth int) ([]parser.Secret, error) {
	if depth <= 0 {
		return nil, nil
	}
	if e.secrets == nil {
		return nil, cherrors.New(cherrors.CodeInput, "secrets.enabled must be set to scan git history")
	}
	if !secrets.IsGitAvailable() {
		return nil, cherrors.New(cherrors.CodeInput, "git binary not found on PATH")
	}
	return secrets.ScanGitHistory(e.Root, depth, e.secrets)
}

// discoverFiles walks the project root, applying `.indexchanignore`,
// config.Exclude.Dirs/Files, the parser's supported-extension set, and the
// state directory's own exclusion (never index `.index-chan/` itself).
func (e *Engine) discoverFiles() ([]string, error) {
	ignorePolicy, err := watcher.LoadIgnorePolicy(filepath.Join(e.Root, IgnoreFileName))
	if err != nil {
		return nil, cherrors.Wrap(err, cherrors.CodeInput, "load ignore policy")
	}

	dirGlobs, err := compileGlobs(e.Config.Exclude.Dirs, "exclude dir")
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(e.Config.Exclude.Files, "exclude file")
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(e.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == e.Root {
			return nil
		}
		rel, err := filepath.Rel(e.Root, path)
		if err != nil {
			return err
		}
		base := filepath.Base(path)

		if d.IsDir() {
			if base == StateDirName || base == ".git" {
				return filepath.SkipDir
			}
			for _, g := range dirGlobs {
				if g.Match(base) {
					return filepath.SkipDir
				}
			}
			if ignorePolicy.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !e.Parser.IsSupportedPath(path) {
			return nil
		}
		for _, g := range fileGlobs {
			if g.Match(base) {
				return nil
			}
		}
		if ignorePolicy.Match(rel, false) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, cherrors.Wrap(err, cherrors.CodeIO, "walk project directory")
	}
	sort.Strings(files)
	return files, nil
}

// secretsExcluded reports whether path falls under config.Secrets.Exclude:
// any directory component matching a dirGlob, or the file's base name
// matching a fileGlob.
func secretsExcluded(root, path string, dirGlobs, fileGlobs []glob.Glob) bool {
	for _, g := range fileGlobs {
		if g.Match(filepath.Base(path)) {
			return true
		}
	}
	if len(dirGlobs) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	for _, seg := range strings.Split(filepath.Dir(rel), string(filepath.Separator)) {
		for _, g := range dirGlobs {
			if g.Match(seg) {
				return true
			}
		}
	}
	return false
}

func compileGlobs(patterns []string, label string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, cherrors.Wrap(err, cherrors.CodeInput, fmt.Sprintf("invalid %s pattern %q", label, p))
		}
		out = append(out, g)
	}
	return out, nil
}

// CleanOptions controls which safety tiers `clean` removes.
type CleanOptions struct {
	Auto     bool // remove without prompting (still records a backup)
	SafeOnly bool // restrict removal to DEFINITELY_SAFE
	DryRun   bool
}

// CleanResult reports what clean would do (dry-run) or did.
type CleanResult struct {
	Removed  []analyzer.DeadEntity
	Skipped  []analyzer.DeadEntity
	BackupID string
}

// Clean removes DEFINITELY_SAFE (and, unless SafeOnly, PROBABLY_SAFE) dead
// entities by deleting their source lines, backing up every touched file
// first so `--dry-run`-free runs are always undoable via the backup
// manager's restore.
func (e *Engine) Clean(scan ScanResult, opts CleanOptions) (CleanResult, error) {
	var target, skipped []analyzer.DeadEntity
	for _, d := range scan.Analysis.Dead {
		eligible := d.Tier == analyzer.DefinitelySafe || (!opts.SafeOnly && d.Tier == analyzer.ProbablySafe)
		if eligible {
			target = append(target, d)
		} else {
			skipped = append(skipped, d)
		}
	}

	if opts.DryRun || len(target) == 0 {
		return CleanResult{Removed: target, Skipped: skipped}, nil
	}

	byFile := groupByFile(target)
	mgr := e.backupManager()
	session, err := mgr.Begin("clean")
	if err != nil {
		return CleanResult{}, err
	}

	for file, entities := range byFile {
		if err := session.BackupFile(file); err != nil {
			return CleanResult{}, err
		}
		if err := removeEntityLines(file, entities); err != nil {
			return CleanResult{}, err
		}
	}

	if err := session.Commit(); err != nil {
		return CleanResult{}, err
	}

	return CleanResult{Removed: target, Skipped: skipped, BackupID: filepath.Base(session.Dir())}, nil
}

func groupByFile(dead []analyzer.DeadEntity) map[string][]analyzer.DeadEntity {
	out := make(map[string][]analyzer.DeadEntity)
	for _, d := range dead {
		if d.Entity == nil {
			continue
		}
		out[d.Entity.File] = append(out[d.Entity.File], d)
	}
	return out
}

// removeEntityLines deletes each dead entity's declared line range from its
// file, working bottom-up so earlier deletions don't shift later ranges.
func removeEntityLines(path string, entities []analyzer.DeadEntity) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return cherrors.Wrap(err, cherrors.CodeIO, fmt.Sprintf("read %s for clean", path))
	}
	lines := strings.Split(string(content), "\n")

	sort.Slice(entities, func(i, j int) bool {
		return entities[i].Entity.Location.Line > entities[j].Entity.Location.Line
	})

	for _, d := range entities {
		start := d.Entity.Location.Line - 1
		end := start + max(d.Entity.LOC, 1)
		if start < 0 || start >= len(lines) {
			continue
		}
		if end > len(lines) {
			end = len(lines)
		}
		lines = append(lines[:start], lines[end:]...)
	}

	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// AnnotateOptions controls the annotate operation.
type AnnotateOptions struct {
	DryRun bool
}

// AnnotateResult reports which files received a dead-code marker comment
// above each NEEDS_REVIEW/PROBABLY_SAFE entity.
type AnnotateResult struct {
	Annotated map[string]int // file -> annotation count
}

// annotationPrefix marks a line this tool inserted, so a second annotate
// pass (or clean) can recognize and skip past it without re-annotating.
const annotationPrefix = "// indexchan: possibly unused"

// Annotate inserts a one-line marker comment above every dead entity that
// clean would not remove outright (PROBABLY_SAFE and NEEDS_REVIEW), naming
// the safety tier and reason, so a reviewer sees the classification inline.
func (e *Engine) Annotate(scan ScanResult, opts AnnotateOptions) (AnnotateResult, error) {
	var toAnnotate []analyzer.DeadEntity
	for _, d := range scan.Analysis.Dead {
		if d.Tier == analyzer.DefinitelySafe {
			continue
		}
		toAnnotate = append(toAnnotate, d)
	}

	result := AnnotateResult{Annotated: make(map[string]int)}
	if len(toAnnotate) == 0 {
		return result, nil
	}

	byFile := groupByFile(toAnnotate)
	var mgr *backup.Manager
	var session *backup.Session
	if !opts.DryRun {
		mgr = e.backupManager()
		var err error
		session, err = mgr.Begin("annotate")
		if err != nil {
			return AnnotateResult{}, err
		}
	}

	for file, entities := range byFile {
		if opts.DryRun {
			result.Annotated[file] = len(entities)
			continue
		}
		if err := session.BackupFile(file); err != nil {
			return AnnotateResult{}, err
		}
		n, err := insertAnnotations(file, entities)
		if err != nil {
			return AnnotateResult{}, err
		}
		result.Annotated[file] = n
	}

	if !opts.DryRun {
		if err := session.Commit(); err != nil {
			return AnnotateResult{}, err
		}
	}
	return result, nil
}

func insertAnnotations(path string, entities []analyzer.DeadEntity) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, cherrors.Wrap(err, cherrors.CodeIO, fmt.Sprintf("read %s for annotate", path))
	}
	lines := strings.Split(string(content), "\n")

	sort.Slice(entities, func(i, j int) bool {
		return entities[i].Entity.Location.Line > entities[j].Entity.Location.Line
	})

	inserted := 0
	for _, d := range entities {
		idx := d.Entity.Location.Line - 1
		if idx < 0 || idx > len(lines) {
			continue
		}
		if idx > 0 && strings.Contains(lines[idx-1], annotationPrefix) {
			continue
		}
		marker := fmt.Sprintf("%s: %s (%s)", annotationPrefix, d.Reason, d.Tier)
		lines = append(lines[:idx], append([]string{marker}, lines[idx:]...)...)
		inserted++
	}

	if inserted == 0 {
		return 0, nil
	}
	return inserted, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644)
}

// Undo restores the most recent (or a named) backup manifest.
func (e *Engine) Undo(manifestID string) (*backup.RestoreResult, error) {
	mgr := e.backupManager()
	dir := manifestID
	if dir == "" {
		latest, err := mgr.LatestBackup()
		if err != nil {
			return nil, err
		}
		dir = latest
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(e.Root, StateDirName, "backups", dir)
	}
	return mgr.Restore(dir)
}

// Stats returns aggregate index-store counts for the `stats` subcommand.
func (e *Engine) Stats() (store.Stats, error) {
	st, err := store.Open(e.storePath(), 5*time.Second)
	if err != nil {
		return store.Stats{}, err
	}
	defer st.Close()
	return st.Stats()
}

// GatherContext resolves an anchor entity from the scanned graph and
// expands its forward/backward context per config.Context defaults, or
// per-call overrides when provided (0 leaves the configured default).
func (e *Engine) GatherContext(scan ScanResult, anchor string, forwardDepth, backwardDepth, tokenBudget int) (context.Bundle, error) {
	id, _, ok := context.ResolveAnchor(scan.Graph, anchor)
	if !ok {
		return context.Bundle{}, cherrors.Newf(cherrors.CodeNotFound, "no entity matches anchor %q", anchor)
	}

	opts := context.Options{
		ForwardDepth:  e.Config.Context.ForwardDepth,
		BackwardDepth: e.Config.Context.BackwardDepth,
		TokenBudget:   e.Config.Context.TokenBudget,
		SkeletonAfter: e.Config.Context.SkeletonAfter,
	}
	if forwardDepth > 0 {
		opts.ForwardDepth = forwardDepth
	}
	if backwardDepth > 0 {
		opts.BackwardDepth = backwardDepth
	}
	if tokenBudget > 0 {
		opts.TokenBudget = tokenBudget
	}

	return context.Gather(stdcontext.Background(), scan.Graph, scan.Analysis, id, opts), nil
}

// Init creates `.index-chan/` with a default config.toml and backups
// directory, and a starter `.indexchanignore` at the project root if one
// does not already exist.
func Init(root string) error {
	stateDir := filepath.Join(root, StateDirName)
	if err := os.MkdirAll(filepath.Join(stateDir, "backups"), 0o755); err != nil {
		return cherrors.Wrap(err, cherrors.CodeIO, "create state directory")
	}

	configPath := filepath.Join(stateDir, "config.toml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.WriteFile(configPath, []byte(defaultConfigTOML), 0o644); err != nil {
			return cherrors.Wrap(err, cherrors.CodeIO, "write default config")
		}
	}

	ignorePath := filepath.Join(root, IgnoreFileName)
	if _, err := os.Stat(ignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(ignorePath, []byte(defaultIgnoreFile), 0o644); err != nil {
			return cherrors.Wrap(err, cherrors.CodeIO, "write default ignore file")
		}
	}
	return nil
}

const defaultConfigTOML = `version = 1

[reachability]
entry_point_names = ["main", "index", "init"]
test_path_markers = ["test", "spec", "__tests__"]
local_functions_are_targets = true

[context]
forward_depth = 2
backward_depth = 1
token_budget = 8000
skeleton_after_hops = 1
`

const defaultIgnoreFile = `node_modules/
dist/
build/
vendor/
.git/
`

// Export renders the scanned graph into one of the supported formats
// ("dot", "graphml", "json").
func (e *Engine) Export(scan ScanResult, format string) (string, error) {
	nodes, edges := output.BuildExportGraph(scan.Graph, scan.Analysis)
	switch strings.ToLower(format) {
	case "dot":
		return output.GenerateEntityDOT(nodes, edges)
	case "graphml":
		return output.GenerateEntityGraphML(nodes, edges)
	case "json":
		return output.GenerateEntityJSON(nodes, edges)
	case "sarif":
		var found []parser.Secret
		for _, f := range scan.Files {
			found = append(found, f.Secrets...)
		}
		data, err := formats.GenerateSARIF(e.Root, scan.Analysis.Dead, found)
		if err != nil {
			return "", cherrors.Wrap(err, cherrors.CodeInternal, "render sarif")
		}
		return string(data), nil
	default:
		return "", cherrors.Newf(cherrors.CodeInput, "unsupported export format %q (want dot, graphml, json, or sarif)", format)
	}
}

// Watch rescans the project whenever fsnotify reports a relevant change,
// invoking onScan with each resulting ScanResult (or the scan error, which
// callers should log rather than treat as fatal — a single bad scan should
// not tear down the watcher).
func (e *Engine) Watch(ctx stdcontext.Context, onScan func(ScanResult, error)) error {
	w, err := watcher.NewWatcher(e.Config.Watch.Debounce, e.Config.Exclude.Dirs, e.Config.Exclude.Files, func([]string) {
		result, err := e.Scan()
		onScan(result, err)
	})
	if err != nil {
		return err
	}
	w.SetLanguageFilters(e.Parser.SupportedExtensions(), e.Parser.SupportedFilenames(), e.Parser.SupportedTestFileSuffixes())

	if err := w.Watch([]string{e.Root}); err != nil {
		w.Close()
		return err
	}

	<-ctx.Done()
	return w.Close()
}
