// Package output renders a resolved reference graph into the export
// formats the `export` subcommand supports: DOT, GraphML, and JSON. Each
// node carries {id,name,kind,file,start_line,end_line,exported,live}; each
// edge carries {source,target,kind}, generalizing the dependency-graph DOT
// generator above from module nodes to entity nodes.
package output

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"indexchan/internal/engine/analyzer"
	"indexchan/internal/engine/parser"
	"indexchan/internal/engine/resolver"
)

// ExportNode is one entity rendered into an export format.
type ExportNode struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Exported  bool   `json:"exported"`
	Live      bool   `json:"live"`
}

// ExportEdge is one resolved reference rendered into an export format.
type ExportEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

// BuildExportGraph flattens a ReferenceGraph plus its reachability report
// into the node/edge shape every export format shares.
func BuildExportGraph(rg *resolver.ReferenceGraph, report analyzer.Report) ([]ExportNode, []ExportEdge) {
	nodes := make([]ExportNode, 0, len(rg.Entities))
	for id, ent := range rg.Entities {
		nodes = append(nodes, ExportNode{
			ID:        string(id),
			Name:      ent.Name,
			Kind:      entityKindLabel(ent.Kind),
			File:      ent.File,
			StartLine: ent.Location.Line,
			EndLine:   ent.Location.Line + ent.LOC,
			Exported:  ent.Exported,
			Live:      report.Reachable[id],
		})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	edges := make([]ExportEdge, 0, len(rg.Edges))
	for _, e := range rg.Edges {
		if !e.Resolved || e.To == "" {
			continue
		}
		from, ok := enclosingEntityID(rg, e.FromFile, e.FromLine)
		if !ok {
			continue
		}
		kind := "calls"
		if e.Ambiguous {
			kind = "calls_ambiguous"
		}
		edges = append(edges, ExportEdge{Source: string(from), Target: string(e.To), Kind: kind})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})

	return nodes, edges
}

// enclosingEntityID finds the entity that owns the line a reference site
// was found at, so an edge's source is an entity, not a bare file:line.
func enclosingEntityID(rg *resolver.ReferenceGraph, file string, line int) (resolver.EntityID, bool) {
	var best resolver.EntityID
	bestLine := -1
	for id, ent := range rg.Entities {
		if ent.File != file || ent.Location.Line > line {
			continue
		}
		if ent.Location.Line > bestLine {
			bestLine = ent.Location.Line
			best = id
		}
	}
	return best, bestLine != -1
}

func entityKindLabel(k parser.DefinitionKind) string {
	switch k {
	case parser.KindClass:
		return "class"
	case parser.KindMethod:
		return "method"
	case parser.KindVariable:
		return "variable"
	case parser.KindConstant:
		return "constant"
	case parser.KindType:
		return "type"
	case parser.KindInterface:
		return "interface"
	default:
		return "function"
	}
}

// GenerateEntityDOT renders the entity graph as Graphviz DOT, in the same
// visual vocabulary as the module-level DOTGenerator above (rounded boxes,
// red highlighting), but with dead entities (not reachable, not just
// unresolved) rather than import cycles as the thing worth calling out.
func GenerateEntityDOT(nodes []ExportNode, edges []ExportEdge) (string, error) {
	var buf strings.Builder
	buf.WriteString("digraph entities {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n\n")

	for _, n := range nodes {
		label := fmt.Sprintf("%s\\n%s:%d", n.Name, n.File, n.StartLine)
		if n.Live {
			buf.WriteString(fmt.Sprintf("  %q [label=%q, color=\"darkslategrey\"];\n", n.ID, label))
		} else {
			buf.WriteString(fmt.Sprintf("  %q [label=%q, fillcolor=\"mistyrose\", style=\"rounded,filled\", color=\"red\"];\n", n.ID, label))
		}
	}
	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(fmt.Sprintf("  %q -> %q [label=%q];\n", e.Source, e.Target, e.Kind))
	}
	buf.WriteString("}\n")
	return buf.String(), nil
}

// graphMLDocument mirrors the minimal subset of the GraphML schema needed
// to round-trip node/edge attribute data into tools like yEd or Gephi.
type graphMLDocument struct {
	XMLName xml.Name     `xml:"graphml"`
	Keys    []graphMLKey `xml:"key"`
	Graph   graphMLGraph `xml:"graph"`
}

type graphMLKey struct {
	ID   string `xml:"id,attr"`
	For  string `xml:"for,attr"`
	Name string `xml:"attr.name,attr"`
	Type string `xml:"attr.type,attr"`
}

type graphMLGraph struct {
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphMLNode `xml:"node"`
	Edges       []graphMLEdge `xml:"edge"`
}

type graphMLNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphMLData `xml:"data"`
}

type graphMLEdge struct {
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphMLData `xml:"data"`
}

type graphMLData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// GenerateEntityGraphML renders the entity graph as GraphML.
func GenerateEntityGraphML(nodes []ExportNode, edges []ExportEdge) (string, error) {
	doc := graphMLDocument{
		Keys: []graphMLKey{
			{ID: "name", For: "node", Name: "name", Type: "string"},
			{ID: "kind", For: "node", Name: "kind", Type: "string"},
			{ID: "file", For: "node", Name: "file", Type: "string"},
			{ID: "start_line", For: "node", Name: "start_line", Type: "int"},
			{ID: "end_line", For: "node", Name: "end_line", Type: "int"},
			{ID: "exported", For: "node", Name: "exported", Type: "boolean"},
			{ID: "live", For: "node", Name: "live", Type: "boolean"},
			{ID: "kind", For: "edge", Name: "kind", Type: "string"},
		},
		Graph: graphMLGraph{EdgeDefault: "directed"},
	}

	for _, n := range nodes {
		doc.Graph.Nodes = append(doc.Graph.Nodes, graphMLNode{
			ID: n.ID,
			Data: []graphMLData{
				{Key: "name", Value: n.Name},
				{Key: "kind", Value: n.Kind},
				{Key: "file", Value: n.File},
				{Key: "start_line", Value: fmt.Sprintf("%d", n.StartLine)},
				{Key: "end_line", Value: fmt.Sprintf("%d", n.EndLine)},
				{Key: "exported", Value: fmt.Sprintf("%t", n.Exported)},
				{Key: "live", Value: fmt.Sprintf("%t", n.Live)},
			},
		})
	}
	for _, e := range edges {
		doc.Graph.Edges = append(doc.Graph.Edges, graphMLEdge{
			Source: e.Source,
			Target: e.Target,
			Data:   []graphMLData{{Key: "kind", Value: e.Kind}},
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal graphml: %w", err)
	}
	return xml.Header + string(out) + "\n", nil
}

// entityGraphJSON is the wire shape for the JSON export format.
type entityGraphJSON struct {
	Nodes []ExportNode `json:"nodes"`
	Edges []ExportEdge `json:"edges"`
}

// GenerateEntityJSON renders the entity graph as JSON.
func GenerateEntityJSON(nodes []ExportNode, edges []ExportEdge) (string, error) {
	if nodes == nil {
		nodes = []ExportNode{}
	}
	if edges == nil {
		edges = []ExportEdge{}
	}
	data, err := json.MarshalIndent(entityGraphJSON{Nodes: nodes, Edges: edges}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json graph: %w", err)
	}
	return string(data) + "\n", nil
}
