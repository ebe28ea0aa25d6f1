// Package registry holds the per-language grammar registry: which file
// extensions and filenames route to which tree-sitter language, whether a
// language ships an extractor at all, and the generic node-kind mapping a
// DynamicExtractor needs when no hand-written extractor exists for it.
package registry

import "sort"

// LanguageSpec describes one language entry in the grammar registry.
type LanguageSpec struct {
	Enabled             bool
	Extensions          []string
	Filenames           []string
	TestFileSuffixes    []string
	RequireVerification bool
	// IsDynamic marks a language with no hand-written Extractor: the parser
	// falls back to a generic DynamicExtractor configured by DynamicConfig.
	IsDynamic     bool
	DynamicConfig *DynamicExtractorConfig
}

// LanguageOverride is the subset of LanguageSpec a project's config file
// may adjust: turning a language on/off and widening or narrowing which
// extensions/filenames route to it.
type LanguageOverride struct {
	Enabled    bool
	Extensions []string
	Filenames  []string
}

// DynamicExtractorConfig tells DynamicExtractor which AST node kinds carry
// namespace declarations, imports, and definitions for a language that has
// no dedicated hand-written extractor.
type DynamicExtractorConfig struct {
	NamespaceNode   string
	ImportNode      string
	DefinitionNodes []string
}

func defaultRegistry() map[string]LanguageSpec {
	return map[string]LanguageSpec{
		"go": {
			Enabled:          true,
			Extensions:       []string{".go"},
			TestFileSuffixes: []string{"_test.go"},
		},
		"gomod": {
			Enabled:   true,
			Filenames: []string{"go.mod"},
		},
		"gosum": {
			Enabled:   true,
			Filenames: []string{"go.sum"},
		},
		"python": {
			Enabled:          true,
			Extensions:       []string{".py"},
			TestFileSuffixes: []string{"_test.py"},
		},
		"javascript": {
			Enabled:          true,
			Extensions:       []string{".js", ".jsx", ".mjs", ".cjs"},
			TestFileSuffixes: []string{".test.js", ".spec.js"},
		},
		"typescript": {
			Enabled:          true,
			Extensions:       []string{".ts"},
			TestFileSuffixes: []string{".test.ts", ".spec.ts"},
		},
		"tsx": {
			Enabled:          true,
			Extensions:       []string{".tsx"},
			TestFileSuffixes: []string{".test.tsx", ".spec.tsx"},
		},
		"java": {
			Enabled:          true,
			Extensions:       []string{".java"},
			TestFileSuffixes: []string{"Test.java"},
			IsDynamic:        true,
			DynamicConfig: &DynamicExtractorConfig{
				NamespaceNode:   "package_declaration",
				ImportNode:      "import_declaration",
				DefinitionNodes: []string{"class_declaration", "interface_declaration", "method_declaration", "constructor_declaration"},
			},
		},
		"rust": {
			Enabled:          true,
			Extensions:       []string{".rs"},
			TestFileSuffixes: []string{"_test.rs"},
			IsDynamic:        true,
			DynamicConfig: &DynamicExtractorConfig{
				NamespaceNode:   "mod_item",
				ImportNode:      "use_declaration",
				DefinitionNodes: []string{"function_item", "struct_item", "impl_item", "trait_item"},
			},
		},
		// css and html carry no function/class/method entities under the
		// Entity model, so they are registered for grammar loading but left
		// disabled here until a stylesheet/markup-specific model exists.
		"css": {
			Extensions: []string{".css"},
		},
		"html": {
			Extensions: []string{".html", ".htm"},
		},
	}
}

// DefaultLanguageRegistry returns the built-in registry with no project
// overrides applied.
func DefaultLanguageRegistry() map[string]LanguageSpec {
	return defaultRegistry()
}

// BuildLanguageRegistry starts from the default registry and layers a
// project's per-language overrides on top: an override replaces Enabled
// outright, and appends to (rather than replaces) Extensions/Filenames so
// a project can widen an existing language without losing its defaults.
func BuildLanguageRegistry(overrides map[string]LanguageOverride) (map[string]LanguageSpec, error) {
	registry := defaultRegistry()

	langs := make([]string, 0, len(overrides))
	for lang := range overrides {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		override := overrides[lang]
		spec := registry[lang]
		spec.Enabled = override.Enabled
		spec.Extensions = mergeUnique(spec.Extensions, override.Extensions)
		spec.Filenames = mergeUnique(spec.Filenames, override.Filenames)
		registry[lang] = spec
	}

	return registry, nil
}

func mergeUnique(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, v := range base {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range extra {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
