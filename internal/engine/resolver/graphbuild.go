package resolver

import (
	"sort"
	"strings"
	"time"

	"indexchan/internal/engine/parser"
	"indexchan/internal/shared/observability"
)

// UnresolvedReference is a reference site that no scope layer could match
// to an entity.
type UnresolvedReference struct {
	Reference parser.Reference
	File      string
}

// EntityID uniquely identifies a Definition across the whole project:
// file path plus its fully qualified name, so two same-named methods on
// different receivers in different files never collide.
type EntityID string

func entityID(filePath, fullName string) EntityID {
	return EntityID(filePath + "#" + fullName)
}

// Entity is a promoted parser.Definition, addressable by EntityID and
// carrying the file it was found in.
type Entity struct {
	ID   EntityID
	File string
	parser.Definition
}

// Edge is a resolved or unresolved reference site.
type Edge struct {
	FromFile string
	FromLine int
	Name     string
	To       EntityID // empty when unresolved
	Resolved bool
	// Ambiguous is set when more than one global candidate scored equally
	// and a tie-break had to choose among them.
	Ambiguous bool
}

// ReferenceGraph is the resolved Entity/Reference graph the rest of the
// pipeline (reachability, context gathering) walks.
type ReferenceGraph struct {
	Entities map[EntityID]*Entity
	Edges    []Edge

	// outgoing/incoming index edges by entity for fast traversal.
	outgoing map[EntityID][]EntityID
	incoming map[EntityID][]EntityID
}

func (rg *ReferenceGraph) Outgoing(id EntityID) []EntityID { return rg.outgoing[id] }
func (rg *ReferenceGraph) Incoming(id EntityID) []EntityID { return rg.incoming[id] }

// nameTable maps a simple name to every entity declared under it, sorted
// deterministically (exported first, then file path, then full name) so
// tie-breaks are reproducible.
type nameTable map[string][]*Entity

// BuildOptions controls the two Open-Question flags the project leaves
// configurable rather than picking a single fixed answer for every repo.
type BuildOptions struct {
	// ResolveThroughAlias: when true, a reference using an import alias
	// (e.g. `import { foo as bar }`) also resolves against the original
	// exported name, not just the alias.
	ResolveThroughAlias bool
	// LocalFunctionsAreTargets: when true, unexported/local functions and
	// closures are valid resolution targets, not just module-level
	// exported definitions.
	LocalFunctionsAreTargets bool
}

// Build runs the two-pass resolution algorithm over every parsed file:
// pass 1 indexes names (global table, per-file local table, import table),
// pass 2 walks every reference site through the four-layer scope order
// (enclosing class/namespace, same file, imports, global table) with a
// deterministic tie-break.
func Build(files []*parser.File, opts BuildOptions) (*ReferenceGraph, []UnresolvedReference) {
	start := time.Now()

	global := make(nameTable)
	localByFile := make(map[string]nameTable, len(files))
	entities := make(map[EntityID]*Entity)

	// Pass 1: name indexing.
	for _, f := range files {
		local := make(nameTable)
		for i := range f.Definitions {
			def := f.Definitions[i]
			if !opts.LocalFunctionsAreTargets && !def.Exported && def.Scope == "nested" {
				continue
			}
			id := entityID(f.Path, def.FullName)
			ent := &Entity{ID: id, File: f.Path, Definition: def}
			entities[id] = ent

			local[def.Name] = append(local[def.Name], ent)
			if def.Exported {
				global[def.Name] = append(global[def.Name], ent)
			}
		}
		for name, group := range local {
			local[name] = sortCandidates(group)
		}
		localByFile[f.Path] = local
	}
	for name, group := range global {
		global[name] = sortCandidates(group)
	}
	observability.ResolverPassDuration.WithLabelValues("index").Observe(time.Since(start).Seconds())

	passStart := time.Now()
	rg := &ReferenceGraph{
		Entities: entities,
		outgoing: make(map[EntityID][]EntityID),
		incoming: make(map[EntityID][]EntityID),
	}
	var unresolved []UnresolvedReference

	for _, f := range files {
		local := localByFile[f.Path]
		enclosing := enclosingIndex(f)

		var currentEntity EntityID
		for _, ref := range f.References {
			if ref.Name == "" {
				continue
			}
			site := findEnclosingEntity(f.Path, enclosing, ref.Location.Line)
			currentEntity = site

			target, ambiguous, ok := resolveLayered(f, ref, local, global, opts)
			if !ok {
				unresolved = append(unresolved, UnresolvedReference{Reference: ref, File: f.Path})
				rg.Edges = append(rg.Edges, Edge{FromFile: f.Path, FromLine: ref.Location.Line, Name: ref.Name, Resolved: false})
				continue
			}

			rg.Edges = append(rg.Edges, Edge{
				FromFile:  f.Path,
				FromLine:  ref.Location.Line,
				Name:      ref.Name,
				To:        target.ID,
				Resolved:  true,
				Ambiguous: ambiguous,
			})
			if currentEntity != "" {
				rg.outgoing[currentEntity] = append(rg.outgoing[currentEntity], target.ID)
			}
			rg.incoming[target.ID] = append(rg.incoming[target.ID], currentEntity)
		}
	}
	observability.ResolverPassDuration.WithLabelValues("edges").Observe(time.Since(passStart).Seconds())
	observability.GraphEntities.Set(float64(len(entities)))
	resolvedCount := 0
	for _, e := range rg.Edges {
		if e.Resolved {
			resolvedCount++
		}
	}
	observability.GraphReferences.Set(float64(resolvedCount))
	observability.GraphUnresolved.Set(float64(len(unresolved)))

	return rg, unresolved
}

// resolveLayered walks the four layers in order: enclosing class/namespace,
// same file, imports, global name table. The first layer with a candidate
// wins; within the global layer, ties are broken exported-first (already
// guaranteed, since global only holds exported defs), same-file-first,
// then lexicographically by EntityID.
func resolveLayered(f *parser.File, ref parser.Reference, local, global nameTable, opts BuildOptions) (*Entity, bool, bool) {
	simple := simpleName(ref.Name)

	// Layer 1+2: enclosing scope and same file share the local table; a
	// dotted reference like Type.method first tries an exact FullName match
	// within the file before falling back to the simple name.
	if candidates, ok := local[simple]; ok && len(candidates) > 0 {
		if hinted := pickByHint(candidates, ref); hinted != nil {
			return hinted, len(candidates) > 1, true
		}
		if dotted := matchFullName(candidates, ref.Name); dotted != nil {
			return dotted, false, true
		}
		return candidates[0], len(candidates) > 1, true
	}

	// Layer 3: imports. An aliased or qualified reference (pkg.Symbol)
	// resolves against the imported module's exported name; when
	// ResolveThroughAlias is set, the alias itself is also tried.
	for _, imp := range f.Imports {
		if matchesImport(imp, ref.Name, opts.ResolveThroughAlias) {
			if candidates, ok := global[simple]; ok && len(candidates) > 0 {
				if hinted := pickByHint(candidates, ref); hinted != nil {
					return hinted, len(candidates) > 1, true
				}
				return candidates[0], len(candidates) > 1, true
			}
		}
	}

	// Layer 4: global name table.
	if candidates, ok := global[simple]; ok && len(candidates) > 0 {
		if hinted := pickByHint(candidates, ref); hinted != nil {
			return hinted, len(candidates) > 1, true
		}
		return candidates[0], len(candidates) > 1, true
	}

	return nil, false, false
}

// pickByHint breaks a tie among same-named candidates using the reference's
// syntactic hint: a qualified_call prefers the candidate whose receiver or
// enclosing qualifier matches the call's qualifier; a type_position prefers
// a class/interface/type-alias candidate over a function or variable with
// the same simple name. Returns nil when the hint gives no preference,
// leaving the caller's existing tie-break in place.
func pickByHint(candidates []*Entity, ref parser.Reference) *Entity {
	switch ref.Hint {
	case parser.HintQualifiedCall:
		qualifier := qualifierOf(ref.Name)
		if qualifier == "" {
			return nil
		}
		simple := simpleName(ref.Name)
		for _, c := range candidates {
			if c.FullName == qualifier+"."+simple || strings.HasSuffix(c.FullName, "."+qualifier+"."+simple) {
				return c
			}
		}
		return nil
	case parser.HintTypePosition:
		for _, c := range candidates {
			if c.Kind == parser.KindClass || c.Kind == parser.KindInterface || c.Kind == parser.KindType {
				return c
			}
		}
		return nil
	default:
		return nil
	}
}

// qualifierOf returns the segment immediately before the final dotted
// component of a qualified reference name, e.g. "pkg.Type.method" -> "Type".
func qualifierOf(name string) string {
	trimmed := strings.TrimLeft(name, "*&")
	parts := strings.Split(trimmed, ".")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

func simpleName(name string) string {
	trimmed := strings.TrimLeft(name, "*&")
	parts := strings.Split(trimmed, ".")
	return parts[len(parts)-1]
}

func matchFullName(candidates []*Entity, ref string) *Entity {
	ref = strings.TrimLeft(ref, "*&")
	for _, c := range candidates {
		if c.FullName == ref || strings.HasSuffix(c.FullName, "."+ref) {
			return c
		}
	}
	return nil
}

func matchesImport(imp parser.Import, refName string, resolveThroughAlias bool) bool {
	if imp.Alias != "" && strings.HasPrefix(refName, imp.Alias+".") {
		return true
	}
	for _, item := range imp.Items {
		if item == refName || strings.HasSuffix(refName, "."+item) {
			return true
		}
		if resolveThroughAlias && imp.Alias != "" && item == refName {
			return true
		}
	}
	if strings.HasPrefix(refName, imp.Module+".") {
		return true
	}
	return false
}

// sortCandidates imposes the deterministic tie-break order: exported
// first, same-file first is handled at call time (global has no file
// context), lexicographically-first by EntityID last.
func sortCandidates(entities []*Entity) []*Entity {
	sorted := append([]*Entity(nil), entities...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Exported != sorted[j].Exported {
			return sorted[i].Exported
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

type enclosingEntry struct {
	fullName string
	start    int
	end      int
}

// enclosingIndex builds a simple line-range index of class/namespace-ish
// definitions (Kind Class or Interface) within a file, used to find which
// entity encloses a reference site for the outgoing/incoming edge index.
func enclosingIndex(f *parser.File) []enclosingEntry {
	var entries []enclosingEntry
	for _, def := range f.Definitions {
		if def.Kind != parser.KindFunction && def.Kind != parser.KindMethod {
			continue
		}
		entries = append(entries, enclosingEntry{fullName: def.FullName, start: def.Location.Line, end: def.Location.Line + def.LOC})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].start < entries[j].start })
	return entries
}

func findEnclosingEntity(filePath string, entries []enclosingEntry, line int) EntityID {
	var best *enclosingEntry
	for i := range entries {
		e := &entries[i]
		if e.start <= line && line <= e.end {
			if best == nil || e.start > best.start {
				best = e
			}
		}
	}
	if best == nil {
		return ""
	}
	return entityID(filePath, best.fullName)
}
