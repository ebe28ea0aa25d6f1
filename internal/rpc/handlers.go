package rpc

import (
	"encoding/json"

	cherrors "indexchan/internal/core/errors"
	"indexchan/internal/core/indexer"
	"indexchan/internal/data/store"
)

type scanParams struct {
	Dir string `json:"dir"`
}

type scanResult struct {
	FilesScanned int `json:"files_scanned"`
	Entities     int `json:"entities"`
	References   int `json:"references"`
	Unresolved   int `json:"unresolved"`
	Dead         int `json:"dead"`
}

func handleScan(raw json.RawMessage) (any, error) {
	p, err := unmarshalParams[scanParams](raw)
	if err != nil {
		return nil, err
	}
	eng, err := openEngine(p.Dir)
	if err != nil {
		return nil, err
	}
	res, err := eng.Scan()
	if err != nil {
		return nil, err
	}
	return scanResult{
		FilesScanned: len(res.Files),
		Entities:     res.Refresh.Entities,
		References:   res.Refresh.References,
		Unresolved:   res.Refresh.Unresolved,
		Dead:         res.Refresh.DeadCode,
	}, nil
}

type searchParams struct {
	Dir      string `json:"dir"`
	Query    string `json:"query"`
	UseGraph bool   `json:"use_graph"`
}

type searchHit struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	File         string   `json:"file"`
	Line         int      `json:"line"`
	Exported     bool     `json:"exported"`
	Dependencies []string `json:"dependencies,omitempty"`
	Dependents   []string `json:"dependents,omitempty"`
}

// handleSearch queries the persisted index store rather than re-scanning,
// so it works against whatever the last `scan` (CLI or RPC) committed.
// When use_graph is set, each hit is augmented with its immediate
// dependency/dependent entity IDs from the same store.
func handleSearch(raw json.RawMessage) (any, error) {
	p, err := unmarshalParams[searchParams](raw)
	if err != nil {
		return nil, err
	}
	if p.Query == "" {
		return nil, cherrors.New(cherrors.CodeInput, "search requires a non-empty query")
	}

	st, closeFn, err := openStore(p.Dir)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	rows, err := st.Search(p.Query)
	if err != nil {
		return nil, err
	}

	hits := make([]searchHit, 0, len(rows))
	for _, r := range rows {
		hit := searchHit{ID: r.ID, Name: r.Name, File: r.FilePath, Line: r.Line, Exported: r.Exported}
		if p.UseGraph {
			hit.Dependencies, _ = st.Dependencies(r.ID)
			hit.Dependents, _ = st.Dependents(r.ID)
		}
		hits = append(hits, hit)
	}
	return struct {
		Hits []searchHit `json:"hits"`
	}{Hits: hits}, nil
}

func handleStats(raw json.RawMessage) (any, error) {
	p, err := unmarshalParams[baseParams](raw)
	if err != nil {
		return nil, err
	}
	st, closeFn, err := openStore(p.Dir)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return st.Stats()
}

type gatherContextParams struct {
	Dir           string `json:"dir"`
	Anchor        string `json:"anchor"`
	ForwardDepth  int    `json:"forward_depth"`
	BackwardDepth int    `json:"backward_depth"`
	TokenBudget   int    `json:"token_budget"`
}

// handleGatherContext re-scans, since a context bundle is built from the
// in-memory reference graph, not the flattened index store rows.
func handleGatherContext(raw json.RawMessage) (any, error) {
	p, err := unmarshalParams[gatherContextParams](raw)
	if err != nil {
		return nil, err
	}
	if p.Anchor == "" {
		return nil, cherrors.New(cherrors.CodeInput, "gather_context requires an anchor")
	}
	eng, err := openEngine(p.Dir)
	if err != nil {
		return nil, err
	}
	scan, err := eng.Scan()
	if err != nil {
		return nil, err
	}
	return eng.GatherContext(scan, p.Anchor, p.ForwardDepth, p.BackwardDepth, p.TokenBudget)
}

type entityRefParams struct {
	Dir      string `json:"dir"`
	EntityID string `json:"entity_id"`
}

func handleGetDependencies(raw json.RawMessage) (any, error) {
	return handleEntityRefs(raw, (*store.Store).Dependencies)
}

func handleGetDependents(raw json.RawMessage) (any, error) {
	return handleEntityRefs(raw, (*store.Store).Dependents)
}

func handleEntityRefs(raw json.RawMessage, lookup func(*store.Store, string) ([]string, error)) (any, error) {
	p, err := unmarshalParams[entityRefParams](raw)
	if err != nil {
		return nil, err
	}
	if p.EntityID == "" {
		return nil, cherrors.New(cherrors.CodeInput, "entity_id is required")
	}
	st, closeFn, err := openStore(p.Dir)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	ids, err := lookup(st, p.EntityID)
	if err != nil {
		return nil, err
	}
	return struct {
		EntityIDs []string `json:"entity_ids"`
	}{EntityIDs: ids}, nil
}

type changesParams struct {
	Dir      string `json:"dir"`
	Auto     bool   `json:"auto"`
	SafeOnly bool   `json:"safe_only"`
}

// handleValidateChanges reports what clean would touch without writing
// anything, the same result preview_changes returns, kept as a distinct
// method name since a caller may want to validate before committing to a
// preview/apply pair against the same anchor state.
func handleValidateChanges(raw json.RawMessage) (any, error) {
	return runCleanPreview(raw)
}

func handlePreviewChanges(raw json.RawMessage) (any, error) {
	return runCleanPreview(raw)
}

func runCleanPreview(raw json.RawMessage) (any, error) {
	p, err := unmarshalParams[changesParams](raw)
	if err != nil {
		return nil, err
	}
	eng, err := openEngine(p.Dir)
	if err != nil {
		return nil, err
	}
	scan, err := eng.Scan()
	if err != nil {
		return nil, err
	}
	return eng.Clean(scan, indexer.CleanOptions{Auto: p.Auto, SafeOnly: p.SafeOnly, DryRun: true})
}

// handleApplyChanges runs the real clean, backing up every touched file
// through the same session Undo restores from.
func handleApplyChanges(raw json.RawMessage) (any, error) {
	p, err := unmarshalParams[changesParams](raw)
	if err != nil {
		return nil, err
	}
	eng, err := openEngine(p.Dir)
	if err != nil {
		return nil, err
	}
	scan, err := eng.Scan()
	if err != nil {
		return nil, err
	}
	return eng.Clean(scan, indexer.CleanOptions{Auto: p.Auto, SafeOnly: p.SafeOnly, DryRun: false})
}
