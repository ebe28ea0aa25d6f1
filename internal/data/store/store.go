// Package store implements the persistent Index Store: a SQLite-backed
// database of files, entities, references, unresolved reference sites, and
// dead-code classifications, refreshed incrementally as files change on
// disk.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	_ "modernc.org/sqlite"

	cherrors "indexchan/internal/core/errors"
	"indexchan/internal/engine/analyzer"
	"indexchan/internal/engine/parser"
	"indexchan/internal/engine/resolver"
	"indexchan/internal/shared/observability"
)

const driverName = "sqlite"

type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Open creates/opens the SQLite index store at path, applying the schema
// and the same WAL/busy-timeout/foreign-keys pragmas the rest of the
// project's SQLite-backed stores use.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, cherrors.New(cherrors.CodeInput, "store path must not be empty")
	}
	if dir := filepath.Dir(cleanPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, cherrors.Wrap(err, cherrors.CodeIO, "create store directory")
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, cherrors.Wrap(err, cherrors.CodeIO, "open index store")
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, cherrors.Wrap(err, cherrors.CodeIO, "ping index store")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, cherrors.Wrap(err, cherrors.CodeInvariant, "apply index store schema")
	}

	return &Store{db: db, path: cleanPath}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// FileHash computes the content hash stored alongside a file's row, used
// by Stale to decide whether a file needs re-parsing.
func FileHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// KnownFiles returns every file path currently tracked, with its stored
// content hash, for the caller to diff against the filesystem.
func (s *Store) KnownFiles() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT path, content_hash FROM files`)
	if err != nil {
		return nil, cherrors.Wrap(err, cherrors.CodeIO, "query known files")
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, cherrors.Wrap(err, cherrors.CodeIO, "scan known file row")
		}
		out[path] = hash
	}
	return out, rows.Err()
}

// RefreshResult summarizes what an incremental refresh did.
type RefreshResult struct {
	FilesAdded     int
	FilesChanged   int
	FilesRemoved   int
	FilesUnchanged int
	Entities       int
	References     int
	Unresolved     int
	DeadCode       int
}

// Refresh runs the five-step incremental refresh: hash-diff the candidate
// file set against what's stored, drop rows for files that disappeared,
// replace entity/reference rows for files that changed, re-run resolution
// across the full surviving set (callers pass the already-resolved graph
// since resolution needs cross-file context), and persist reachability
// results. The whole operation runs in one transaction so a mid-refresh
// failure never leaves the store half-updated.
func (s *Store) Refresh(ctx context.Context, files []*parser.File, rg *resolver.ReferenceGraph, unresolved []resolver.UnresolvedReference, dead analyzer.Report, removedPaths []string) (RefreshResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "store.Refresh", trace.WithAttributes(
		attribute.Int("files", len(files)),
		attribute.Int("removed", len(removedPaths)),
	))
	defer span.End()
	_ = ctx

	start := time.Now()
	defer func() {
		observability.RefreshDuration.WithLabelValues("incremental").Observe(time.Since(start).Seconds())
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return RefreshResult{}, cherrors.Wrap(err, cherrors.CodeIO, "begin refresh transaction")
	}
	defer tx.Rollback()

	var result RefreshResult

	for _, path := range removedPaths {
		if err := deleteFileLocked(tx, path); err != nil {
			return result, err
		}
		result.FilesRemoved++
	}

	for _, f := range files {
		changed, err := upsertFileLocked(tx, f)
		if err != nil {
			return result, err
		}
		if changed {
			result.FilesChanged++
		} else {
			result.FilesUnchanged++
		}
	}

	if err := replaceEntitiesLocked(tx, files); err != nil {
		return result, err
	}
	if err := replaceReferencesLocked(tx, rg); err != nil {
		return result, err
	}
	if err := replaceUnresolvedLocked(tx, unresolved); err != nil {
		return result, err
	}
	if err := replaceDeadCodeLocked(tx, dead.Dead); err != nil {
		return result, err
	}

	if err := tx.Commit(); err != nil {
		return result, cherrors.Wrap(err, cherrors.CodeIO, "commit refresh transaction")
	}

	result.Entities = len(rg.Entities)
	result.References = len(rg.Edges)
	result.Unresolved = len(unresolved)
	result.DeadCode = len(dead.Dead)
	return result, nil
}

func upsertFileLocked(tx *sql.Tx, f *parser.File) (changed bool, err error) {
	hash := f.ContentHash
	var existing string
	err = tx.QueryRow(`SELECT content_hash FROM files WHERE path = ?`, f.Path).Scan(&existing)
	if err != nil && err != sql.ErrNoRows {
		return false, cherrors.Wrap(err, cherrors.CodeIO, "read existing file hash")
	}
	changed = err == sql.ErrNoRows || existing != hash

	_, err = tx.Exec(`INSERT INTO files(path, language, content_hash, parsed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET language=excluded.language, content_hash=excluded.content_hash, parsed_at=excluded.parsed_at`,
		f.Path, f.Language, hash, f.ParsedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return changed, cherrors.Wrap(err, cherrors.CodeIO, "upsert file row")
	}
	return changed, nil
}

func deleteFileLocked(tx *sql.Tx, path string) error {
	if _, err := tx.Exec(`DELETE FROM files WHERE path = ?`, path); err != nil {
		return cherrors.Wrap(err, cherrors.CodeIO, "delete file row")
	}
	return nil
}

func replaceEntitiesLocked(tx *sql.Tx, files []*parser.File) error {
	for _, f := range files {
		if _, err := tx.Exec(`DELETE FROM entities WHERE file_path = ?`, f.Path); err != nil {
			return cherrors.Wrap(err, cherrors.CodeIO, "clear entities for file")
		}
		for _, def := range f.Definitions {
			id := string(resolver.EntityID(f.Path + "#" + def.FullName))
			_, err := tx.Exec(`INSERT INTO entities(id, file_path, name, full_name, kind, exported, line, column, loc, signature)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				id, f.Path, def.Name, def.FullName, int(def.Kind), boolToInt(def.Exported),
				def.Location.Line, def.Location.Column, def.LOC, def.Signature)
			if err != nil {
				return cherrors.Wrap(err, cherrors.CodeIO, "insert entity row")
			}
		}
	}
	return nil
}

func replaceReferencesLocked(tx *sql.Tx, rg *resolver.ReferenceGraph) error {
	if _, err := tx.Exec(`DELETE FROM refs`); err != nil {
		return cherrors.Wrap(err, cherrors.CodeIO, "clear references")
	}
	for _, e := range rg.Edges {
		var to any
		if e.To != "" {
			to = string(e.To)
		}
		_, err := tx.Exec(`INSERT INTO refs(from_file, from_line, name, to_entity, resolved, ambiguous) VALUES (?, ?, ?, ?, ?, ?)`,
			e.FromFile, e.FromLine, e.Name, to, boolToInt(e.Resolved), boolToInt(e.Ambiguous))
		if err != nil {
			return cherrors.Wrap(err, cherrors.CodeIO, "insert reference row")
		}
	}
	return nil
}

func replaceUnresolvedLocked(tx *sql.Tx, unresolved []resolver.UnresolvedReference) error {
	if _, err := tx.Exec(`DELETE FROM unresolved`); err != nil {
		return cherrors.Wrap(err, cherrors.CodeIO, "clear unresolved references")
	}
	for _, u := range unresolved {
		_, err := tx.Exec(`INSERT INTO unresolved(file_path, name, line, column) VALUES (?, ?, ?, ?)`,
			u.File, u.Reference.Name, u.Reference.Location.Line, u.Reference.Location.Column)
		if err != nil {
			return cherrors.Wrap(err, cherrors.CodeIO, "insert unresolved reference row")
		}
	}
	return nil
}

func replaceDeadCodeLocked(tx *sql.Tx, dead []analyzer.DeadEntity) error {
	if _, err := tx.Exec(`DELETE FROM dead_code`); err != nil {
		return cherrors.Wrap(err, cherrors.CodeIO, "clear dead code")
	}
	for _, d := range dead {
		_, err := tx.Exec(`INSERT INTO dead_code(entity_id, tier, reason) VALUES (?, ?, ?)`,
			string(d.ID), string(d.Tier), d.Reason)
		if err != nil {
			return cherrors.Wrap(err, cherrors.CodeIO, "insert dead code row")
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// EntityRow is a flattened entities-table row returned by search queries.
type EntityRow struct {
	ID       string
	FilePath string
	Name     string
	FullName string
	Kind     int
	Exported bool
	Line     int
}

// Search finds entities whose name or full name contains query
// (case-insensitive), ordered by file path then line.
func (s *Store) Search(query string) ([]EntityRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	like := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.Query(`SELECT id, file_path, name, full_name, kind, exported, line FROM entities
		WHERE LOWER(name) LIKE ? OR LOWER(full_name) LIKE ?
		ORDER BY file_path, line`, like, like)
	if err != nil {
		return nil, cherrors.Wrap(err, cherrors.CodeIO, "search entities")
	}
	defer rows.Close()

	var out []EntityRow
	for rows.Next() {
		var r EntityRow
		var exported int
		if err := rows.Scan(&r.ID, &r.FilePath, &r.Name, &r.FullName, &r.Kind, &exported, &r.Line); err != nil {
			return nil, cherrors.Wrap(err, cherrors.CodeIO, "scan search row")
		}
		r.Exported = exported != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Dependencies returns the entity IDs entityID refers to (its outgoing,
// resolved references).
func (s *Store) Dependencies(entityID string) ([]string, error) {
	return s.refEndpoints(`SELECT to_entity FROM refs WHERE from_file = (SELECT file_path FROM entities WHERE id = ?) AND to_entity IS NOT NULL AND resolved = 1`, entityID)
}

// Dependents returns the entity IDs that refer to entityID.
func (s *Store) Dependents(entityID string) ([]string, error) {
	return s.refEndpoints(`SELECT DISTINCT e.id FROM entities e JOIN refs r ON r.from_file = e.file_path WHERE r.to_entity = ?`, entityID)
}

func (s *Store) refEndpoints(query string, arg string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, cherrors.Wrap(err, cherrors.CodeIO, "query reference endpoints")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id sql.NullString
		if err := rows.Scan(&id); err != nil {
			return nil, cherrors.Wrap(err, cherrors.CodeIO, "scan reference endpoint")
		}
		if id.Valid {
			out = append(out, id.String)
		}
	}
	return out, rows.Err()
}

// Stats returns aggregate counts for the `stats` subcommand.
type Stats struct {
	Files      int
	Entities   int
	References int
	Unresolved int
	DeadByTier map[string]int
}

func (s *Store) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats Stats
	stats.DeadByTier = make(map[string]int)

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&stats.Files); err != nil {
		return stats, cherrors.Wrap(err, cherrors.CodeIO, "count files")
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM entities`).Scan(&stats.Entities); err != nil {
		return stats, cherrors.Wrap(err, cherrors.CodeIO, "count entities")
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM refs WHERE resolved = 1`).Scan(&stats.References); err != nil {
		return stats, cherrors.Wrap(err, cherrors.CodeIO, "count references")
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM unresolved`).Scan(&stats.Unresolved); err != nil {
		return stats, cherrors.Wrap(err, cherrors.CodeIO, "count unresolved")
	}

	rows, err := s.db.Query(`SELECT tier, COUNT(*) FROM dead_code GROUP BY tier`)
	if err != nil {
		return stats, cherrors.Wrap(err, cherrors.CodeIO, "count dead code by tier")
	}
	defer rows.Close()
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return stats, cherrors.Wrap(err, cherrors.CodeIO, "scan dead code tier row")
		}
		stats.DeadByTier[tier] = n
	}
	return stats, rows.Err()
}
