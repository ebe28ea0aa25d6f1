// Package analyzer computes liveness and dead-code safety tiers over a
// resolved reference graph: which entities are reachable from a configured
// entry-point set, and for the unreachable remainder, how safe each one is
// to delete.
package analyzer

import (
	"context"
	"strings"
	"time"

	"indexchan/internal/core/config"
	cherrors "indexchan/internal/core/errors"
	"indexchan/internal/engine/resolver"
	"indexchan/internal/shared/observability"
)

// SafetyTier classifies an unreachable entity's deletion risk.
type SafetyTier string

const (
	DefinitelySafe SafetyTier = "DEFINITELY_SAFE"
	ProbablySafe   SafetyTier = "PROBABLY_SAFE"
	NeedsReview    SafetyTier = "NEEDS_REVIEW"
)

// OracleCategory is the closed set of revised classifications an oracle may
// return for a non-live entity.
type OracleCategory string

const (
	OracleSafeToDelete   OracleCategory = "SAFE_TO_DELETE"
	OracleKeepForFuture  OracleCategory = "KEEP_FOR_FUTURE"
	OracleExperimental   OracleCategory = "EXPERIMENTAL"
	OracleWorkInProgress OracleCategory = "WORK_IN_PROGRESS"
	OracleNeedsReview    OracleCategory = "NEEDS_REVIEW"
)

// ChangeHistory is the optional "recent change history" an oracle's context
// may be enriched with when a collaborator (e.g. a git log reader) supplies
// it; an oracle implementation is free to ignore it.
type ChangeHistory struct {
	LastCommit string
	Author     string
	Timestamp  time.Time
}

// OracleRequest is the context handed to an oracle for one non-live entity:
// its signature, declaration site, leading comment, and any available
// change history.
type OracleRequest struct {
	EntityID       resolver.EntityID
	Name           string
	Signature      string
	FilePath       string
	Line           int
	LeadingComment string
	ChangeHistory  *ChangeHistory
}

// OracleVerdict is an oracle's revised classification plus its confidence
// in [0, 1].
type OracleVerdict struct {
	Category   OracleCategory
	Confidence float64
}

// Oracle lets an external signal (an LLM, a test-coverage report, a usage
// log) override or corroborate the static classification. No concrete
// oracle ships with this package; wiring one in is left to the caller.
type Oracle interface {
	Classify(ctx context.Context, req OracleRequest) (OracleVerdict, error)
}

// DeadEntity is one unreachable entity along with its safety tier and the
// reason that tier was assigned.
type DeadEntity struct {
	ID     resolver.EntityID
	Entity *resolver.Entity
	Tier   SafetyTier
	Reason string
}

// Report is the full output of Analyze: every entity's liveness plus the
// dead-code classification for the unreachable set.
type Report struct {
	Reachable map[resolver.EntityID]bool
	Dead      []DeadEntity
}

// Analyze runs BFS reachability from the configured entry points and then
// classifies every unreachable entity into a safety tier. When oracle is
// non-nil, each non-live entity is additionally run through it and the
// result folded in by applyOracle's fixed combination policy.
func Analyze(ctx context.Context, rg *resolver.ReferenceGraph, unresolved []resolver.UnresolvedReference, cfg config.Reachability, oracle Oracle) (Report, error) {
	entryPoints := findEntryPoints(rg, cfg.EntryPointNames)
	reachable := bfs(rg, entryPoints)

	unresolvedNames := make(map[string]bool)
	for _, u := range unresolved {
		unresolvedNames[simpleRefName(u.Reference.Name)] = true
	}

	var dead []DeadEntity
	for id, ent := range rg.Entities {
		if reachable[id] {
			continue
		}
		tier, reason := classify(ent, cfg, unresolvedNames)
		tier, reason, err := applyOracle(ctx, oracle, id, ent, tier, reason)
		if err != nil {
			return Report{}, cherrors.Wrap(err, cherrors.CodeInternal, "oracle classify")
		}
		dead = append(dead, DeadEntity{ID: id, Entity: ent, Tier: tier, Reason: reason})
	}

	counts := map[SafetyTier]int{}
	for _, d := range dead {
		counts[d.Tier]++
	}
	for tier, n := range counts {
		observability.DeadCodeTotal.WithLabelValues(string(tier)).Set(float64(n))
	}

	return Report{Reachable: reachable, Dead: dead}, nil
}

func findEntryPoints(rg *resolver.ReferenceGraph, names []string) []resolver.EntityID {
	nameSet := make(map[string]bool, len(names))
	for _, n := range names {
		nameSet[n] = true
	}

	var entries []resolver.EntityID
	for id, ent := range rg.Entities {
		if nameSet[ent.Name] || ent.Exported {
			entries = append(entries, id)
		}
	}
	return entries
}

// bfs walks the outgoing edges from every entry point, marking every
// reachable entity.
func bfs(rg *resolver.ReferenceGraph, entryPoints []resolver.EntityID) map[resolver.EntityID]bool {
	visited := make(map[resolver.EntityID]bool, len(rg.Entities))
	queue := append([]resolver.EntityID(nil), entryPoints...)
	for _, id := range entryPoints {
		visited[id] = true
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range rg.Outgoing(current) {
			if next == "" || visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return visited
}

func classify(ent *resolver.Entity, cfg config.Reachability, unresolvedNames map[string]bool) (SafetyTier, string) {
	if ent.Exported {
		return NeedsReview, "exported; may be used externally"
	}

	path := strings.ToLower(ent.File)
	for _, marker := range cfg.TestPathMarkers {
		if strings.Contains(path, strings.ToLower(marker)) {
			return NeedsReview, "defined under a test path; may be referenced from test scaffolding"
		}
	}

	if unresolvedNames[ent.Name] {
		if cfg.StringLiteralsCountAsProbablySafe {
			return ProbablySafe, "an unresolved reference site shares this name; possible dynamic call"
		}
		return NeedsReview, "an unresolved reference site shares this name"
	}

	return DefinitelySafe, "not exported, not reachable, no matching unresolved reference"
}

// applyOracle folds in an optional external verdict using the fixed
// combination policy: any oracle category other than SAFE_TO_DELETE (i.e.
// the oracle wants the entity kept, in one of its four non-delete flavors)
// at confidence >= 0.75 promotes the tier to NEEDS_REVIEW regardless of the
// syntactic tier; SAFE_TO_DELETE at confidence >= 0.95 permits demoting a
// syntactic NEEDS_REVIEW down to PROBABLY_SAFE, but never to
// DEFINITELY_SAFE. Anything below those thresholds leaves the syntactic
// tier untouched.
func applyOracle(ctx context.Context, oracle Oracle, id resolver.EntityID, ent *resolver.Entity, tier SafetyTier, reason string) (SafetyTier, string, error) {
	if oracle == nil {
		return tier, reason, nil
	}

	req := OracleRequest{
		EntityID:  id,
		Name:      ent.Name,
		Signature: ent.Signature,
		FilePath:  ent.File,
		Line:      ent.Location.Line,
	}
	verdict, err := oracle.Classify(ctx, req)
	if err != nil {
		return tier, reason, err
	}

	switch {
	case verdict.Category != OracleSafeToDelete && verdict.Confidence >= 0.75:
		return NeedsReview, reason + "; oracle reports " + string(verdict.Category) + " with high confidence", nil
	case verdict.Category == OracleSafeToDelete && verdict.Confidence >= 0.95 && tier == NeedsReview:
		return ProbablySafe, reason + "; oracle reports SAFE_TO_DELETE with high confidence", nil
	default:
		return tier, reason, nil
	}
}

func simpleRefName(name string) string {
	trimmed := strings.TrimLeft(name, "*&")
	idx := strings.LastIndex(trimmed, ".")
	if idx == -1 {
		return trimmed
	}
	return trimmed[idx+1:]
}
