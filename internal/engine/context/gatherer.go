// Package context assembles bounded context bundles around an anchor
// entity: a forward/backward expansion of the reference graph, rendered
// either in full or as an elided skeleton once a token budget is
// exhausted, plus a signal-to-noise quality score for the result.
package context

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"indexchan/internal/engine/analyzer"
	"indexchan/internal/engine/parser"
	"indexchan/internal/engine/resolver"
	"indexchan/internal/shared/observability"
)

// Quality buckets a bundle by how much of it is likely to be useful
// context versus noise, based on identifier-token length.
type Quality string

const (
	High   Quality = "HIGH"
	Medium Quality = "MEDIUM"
	Low    Quality = "LOW"
)

// RenderMode controls how much of an entity's body is included.
type RenderMode string

const (
	Full     RenderMode = "full"
	Skeleton RenderMode = "skeleton"
)

// Member is one entity included in a bundle, along with its distance from
// the anchor and how it should be rendered.
type Member struct {
	ID       resolver.EntityID
	Entity   *resolver.Entity
	Distance int // negative = backward (caller side), positive = forward (callee side), 0 = anchor
	Mode     RenderMode
	Snippet  string
}

// Bundle is the Context Gatherer's output for a single anchor.
type Bundle struct {
	Anchor   resolver.EntityID
	Members  []Member
	Quality  Quality
	Tokens   int
	Dropped  int // members removed entirely by budget eviction
	Elisions []string
}

// Options configures one gather call; zero values fall back to the
// project's configured defaults (internal/core/config.ContextDefaults).
type Options struct {
	ForwardDepth  int
	BackwardDepth int
	TokenBudget   int
	SkeletonAfter int // hops beyond which members render as skeletons
}

// ResolveAnchor finds the entity a user-supplied anchor string refers to.
// It accepts three forms: a simple name ("handleRequest"), a
// file-qualified name ("src/server.ts:handleRequest"), or a
// type-qualified name ("Server.handleRequest").
func ResolveAnchor(rg *resolver.ReferenceGraph, anchor string) (resolver.EntityID, *resolver.Entity, bool) {
	if file, name, ok := strings.Cut(anchor, ":"); ok {
		for id, ent := range rg.Entities {
			if ent.File == file && (ent.Name == name || ent.FullName == name) {
				return id, ent, true
			}
		}
		return "", nil, false
	}

	var best resolver.EntityID
	var bestEnt *resolver.Entity
	found := 0
	for id, ent := range rg.Entities {
		if ent.FullName == anchor || ent.Name == anchor {
			if ent.FullName == anchor {
				return id, ent, true // exact type-qualified match wins immediately
			}
			best, bestEnt, found = id, ent, found+1
		}
	}
	if found > 0 {
		return best, bestEnt, true
	}
	return "", nil, false
}

// Gather builds a context bundle around anchor: BFS outward (forward,
// callees) to ForwardDepth hops and inward (backward, callers) to
// BackwardDepth hops, then trims to TokenBudget.
func Gather(ctx context.Context, rg *resolver.ReferenceGraph, report analyzer.Report, anchorID resolver.EntityID, opts Options) Bundle {
	_, span := observability.Tracer.Start(ctx, "context.Gather", trace.WithAttributes(
		attribute.String("anchor", string(anchorID)),
		attribute.Int("forward_depth", opts.ForwardDepth),
		attribute.Int("backward_depth", opts.BackwardDepth),
	))
	defer span.End()

	start := time.Now()
	defer func() { observability.ContextGatherDuration.Observe(time.Since(start).Seconds()) }()

	anchor, ok := rg.Entities[anchorID]
	if !ok {
		return Bundle{Anchor: anchorID}
	}

	members := map[resolver.EntityID]*Member{
		anchorID: {ID: anchorID, Entity: anchor, Distance: 0, Mode: Full},
	}

	expand(rg, anchorID, opts.ForwardDepth, 1, rg.Outgoing, members)
	expand(rg, anchorID, opts.BackwardDepth, -1, rg.Incoming, members)
	coLocate(rg, anchor, members)

	ordered := orderedMembers(members)
	applyRenderMode(ordered, opts.SkeletonAfter)
	tokens, dropped, elisions := fitBudget(ordered, opts.TokenBudget)

	finalMembers := make([]Member, 0, len(ordered)-dropped)
	for _, m := range ordered {
		if m.Snippet == "" && m.Mode == "" {
			continue
		}
		finalMembers = append(finalMembers, *m)
	}

	quality := scoreQuality(finalMembers)

	return Bundle{
		Anchor:   anchorID,
		Members:  finalMembers,
		Quality:  quality,
		Tokens:   tokens,
		Dropped:  dropped,
		Elisions: elisions,
	}
}

func expand(rg *resolver.ReferenceGraph, start resolver.EntityID, maxDepth, sign int, next func(resolver.EntityID) []resolver.EntityID, members map[resolver.EntityID]*Member) {
	if maxDepth <= 0 {
		return
	}
	frontier := []resolver.EntityID{start}
	for depth := 1; depth <= maxDepth; depth++ {
		var nextFrontier []resolver.EntityID
		for _, id := range frontier {
			for _, n := range next(id) {
				if n == "" {
					continue
				}
				if _, seen := members[n]; seen {
					continue
				}
				ent, ok := rg.Entities[n]
				if !ok {
					continue
				}
				members[n] = &Member{ID: n, Entity: ent, Distance: depth * sign, Mode: Full}
				nextFrontier = append(nextFrontier, n)
			}
		}
		frontier = nextFrontier
	}
}

// coLocate adds every other entity declared in the anchor's enclosing
// class/namespace (same FullName prefix, same file) at distance 0, since
// sibling methods are often necessary context even with no direct edge.
func coLocate(rg *resolver.ReferenceGraph, anchor *resolver.Entity, members map[resolver.EntityID]*Member) {
	prefix, ok := enclosingPrefix(anchor.FullName)
	if !ok {
		return
	}
	for id, ent := range rg.Entities {
		if _, seen := members[id]; seen {
			continue
		}
		if ent.File != anchor.File {
			continue
		}
		if strings.HasPrefix(ent.FullName, prefix+".") {
			members[id] = &Member{ID: id, Entity: ent, Distance: 0, Mode: Full}
		}
	}
}

func enclosingPrefix(fullName string) (string, bool) {
	idx := strings.LastIndex(fullName, ".")
	if idx == -1 {
		return "", false
	}
	return fullName[:idx], true
}

func orderedMembers(members map[resolver.EntityID]*Member) []*Member {
	ordered := make([]*Member, 0, len(members))
	for _, m := range members {
		ordered = append(ordered, m)
	}
	sort.Slice(ordered, func(i, j int) bool {
		di, dj := abs(ordered[i].Distance), abs(ordered[j].Distance)
		if di != dj {
			return di < dj
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

func applyRenderMode(ordered []*Member, skeletonAfter int) {
	for _, m := range ordered {
		if m.Distance == 0 {
			m.Mode = Full
			continue
		}
		if skeletonAfter > 0 && abs(m.Distance) > skeletonAfter {
			m.Mode = Skeleton
		}
	}
}

// fitBudget renders every member's snippet, then evicts from the tail
// (furthest distance first, then by snippet size) until the total token
// estimate fits within budget. Eviction first demotes Full members to
// Skeleton before dropping a member outright.
func fitBudget(ordered []*Member, budget int) (tokens, dropped int, elisions []string) {
	if budget <= 0 {
		budget = 8000
	}
	for _, m := range ordered {
		m.Snippet = renderSnippet(m)
	}

	total := func() int {
		sum := 0
		for _, m := range ordered {
			sum += estimateTokens(m.Snippet)
		}
		return sum
	}

	for total() > budget {
		demoted := false
		for i := len(ordered) - 1; i >= 0; i-- {
			if ordered[i].Mode == Full && ordered[i].Distance != 0 {
				ordered[i].Mode = Skeleton
				ordered[i].Snippet = renderSnippet(ordered[i])
				demoted = true
				elisions = append(elisions, fmt.Sprintf("%s demoted to skeleton", ordered[i].Entity.FullName))
				break
			}
		}
		if demoted {
			continue
		}

		// Nothing left to demote; drop the furthest, largest member.
		worst := -1
		for i := len(ordered) - 1; i >= 0; i-- {
			if ordered[i].Distance == 0 {
				continue
			}
			if worst == -1 || abs(ordered[i].Distance) > abs(ordered[worst].Distance) {
				worst = i
			}
		}
		if worst == -1 {
			break // only the anchor remains; accept going over budget
		}
		elisions = append(elisions, fmt.Sprintf("%s dropped (budget)", ordered[worst].Entity.FullName))
		ordered[worst].Snippet = ""
		ordered[worst].Mode = ""
		dropped++
	}

	return total(), dropped, elisions
}

func renderSnippet(m *Member) string {
	if m.Mode == Skeleton {
		return fmt.Sprintf("%s %s(...) { ... }", kindLabel(m.Entity), m.Entity.Name)
	}
	return fmt.Sprintf("%s %s%s { /* %d loc */ }", kindLabel(m.Entity), m.Entity.Name, m.Entity.Signature, m.Entity.LOC)
}

func kindLabel(ent *resolver.Entity) string {
	switch ent.Kind {
	case parser.KindClass:
		return "class"
	case parser.KindMethod:
		return "method"
	case parser.KindType:
		return "type"
	case parser.KindInterface:
		return "interface"
	default:
		return "function"
	}
}

func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// scoreQuality classifies a bundle by the fraction of identifier tokens
// that are informative (length >= 3) versus low-signal (1-2 chars, such
// as loop counters or placeholder args).
func scoreQuality(members []Member) Quality {
	informative, total := 0, 0
	for _, m := range members {
		for _, tok := range tokenize(m.Entity.Name) {
			total++
			if len([]rune(tok)) >= 3 {
				informative++
			}
		}
	}
	if total == 0 {
		return Low
	}
	ratio := float64(informative) / float64(total)
	switch {
	case ratio >= 0.8:
		return High
	case ratio >= 0.5:
		return Medium
	default:
		return Low
	}
}

func tokenize(name string) []string {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			flush()
			current.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}
