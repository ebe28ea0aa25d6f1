// # internal/engine/parser/typescript.go
package parser

import (
	"strings"
	"time"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// TSExtractor extracts entities and references from JavaScript, TypeScript,
// and TSX source. The three languages share enough of the tree-sitter
// grammar (class/method/function shapes, import statements, call
// expressions) to use one extractor across all three; Extract's caller
// supplies which dialect it is via filePath's extension.
type TSExtractor struct {
	engine *ExtractorEngine
}

func (e *TSExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file := &File{
		Path:     filePath,
		Language: tsLanguageFromPath(filePath),
		ParsedAt: time.Now(),
	}

	ctx := &ExtractionContext{Source: source, File: file}
	e.engine = NewExtractorEngine(map[string]NodeHandler{
		"import_statement":       e.extractImport,
		"class_declaration":      e.extractClass,
		"interface_declaration":  e.extractInterface,
		"method_definition":      e.extractMethod,
		"method_signature":       e.extractMethodSignature,
		"function_declaration":   e.extractFunction,
		"lexical_declaration":    e.extractVarDecl,
		"variable_declaration":   e.extractVarDecl,
		"type_alias_declaration": e.extractTypeAlias,
		"call_expression":        e.extractCall,
		"new_expression":         e.extractNewExpression,
		"identifier":             e.captureLocal,
	})
	e.engine.Walk(ctx, root)

	return file, nil
}

func tsLanguageFromPath(filePath string) string {
	switch {
	case strings.HasSuffix(filePath, ".tsx"):
		return "tsx"
	case strings.HasSuffix(filePath, ".ts"):
		return "typescript"
	default:
		return "javascript"
	}
}

func (e *TSExtractor) captureLocal(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.Text(node)
	if name == "" {
		return true
	}
	for _, imp := range ctx.File.Imports {
		if imp.Alias == name || ModuleReferenceBase(ctx.File.Language, imp.Module) == name {
			ctx.File.References = append(ctx.File.References, Reference{
				Name:     name,
				Location: ctx.Location(node),
				Hint:     HintImportTarget,
			})
			return true
		}
	}
	ctx.File.LocalSymbols = append(ctx.File.LocalSymbols, name)
	return true
}

func (e *TSExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	var module, alias string
	var items []string
	for i := uint(0); i < node.ChildCount(); i++ {
		ch := node.Child(i)
		switch ch.Kind() {
		case "string":
			module = trimQuoted(ctx.Text(ch))
		case "import_clause":
			for j := uint(0); j < ch.ChildCount(); j++ {
				spec := ch.Child(j)
				switch spec.Kind() {
				case "identifier":
					alias = ctx.Text(spec)
				case "namespace_import":
					alias = ctx.ChildText(spec, "identifier")
				case "named_imports":
					for k := uint(0); k < spec.ChildCount(); k++ {
						item := spec.Child(k)
						if item.Kind() != "import_specifier" {
							continue
						}
						if name := item.ChildByFieldName("name"); name != nil {
							items = append(items, ctx.Text(name))
						}
					}
				}
			}
		}
	}
	if module == "" {
		return true
	}
	ctx.File.Imports = append(ctx.File.Imports, Import{
		Module:    module,
		RawImport: module,
		Alias:     alias,
		Items:     items,
		Location:  ctx.Location(node),
	})
	return true
}

func (e *TSExtractor) extractClass(ctx *ExtractionContext, node *sitter.Node) bool {
	return e.extractTypeBody(ctx, node, KindClass, "class")
}

func (e *TSExtractor) extractInterface(ctx *ExtractionContext, node *sitter.Node) bool {
	return e.extractTypeBody(ctx, node, KindInterface, "interface")
}

// extractTypeBody handles both class_declaration and interface_declaration:
// it records the Definition, pushes the name onto ClassStack so nested
// members qualify their FullName, walks the body itself, then pops the
// stack. Handling both kinds through one function keeps the push/pop
// bracket in a single place instead of duplicating it.
func (e *TSExtractor) extractTypeBody(ctx *ExtractionContext, node *sitter.Node, kind DefinitionKind, typeHint string) bool {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return false
	}
	name := ctx.Text(nameNode)
	if name == "" {
		return false
	}

	e.extractHeritageReferences(ctx, node)

	signature := name
	if heritage := node.ChildByFieldName("heritage"); heritage != nil {
		signature += " " + ctx.Text(heritage)
	}

	loc := int(node.EndPosition().Row-node.StartPosition().Row) + 1
	if loc < 1 {
		loc = 1
	}

	ctx.File.Definitions = append(ctx.File.Definitions, Definition{
		Name:       name,
		FullName:   qualifyTSName(ctx, name),
		Kind:       kind,
		Exported:   tsIsExported(node),
		Visibility: "public",
		Scope:      "global",
		Signature:  signature,
		TypeHint:   typeHint,
		LOC:        loc,
		Location:   ctx.Location(node),
	})

	ctx.ClassStack = append(ctx.ClassStack, name)
	body := node.ChildByFieldName("body")
	if body != nil {
		for i := uint(0); i < body.ChildCount(); i++ {
			e.engine.Walk(ctx, body.Child(i))
		}
	}
	ctx.ClassStack = ctx.ClassStack[:len(ctx.ClassStack)-1]

	return true
}

// extractHeritageReferences walks a class/interface's non-body children for
// "extends"/"implements" type references, recording each as a type-position
// reference so the resolver can prefer a matching class/interface entity
// over a same-named function or variable.
func (e *TSExtractor) extractHeritageReferences(ctx *ExtractionContext, node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		ch := node.Child(i)
		switch ch.Kind() {
		case "class_heritage", "extends_clause", "extends_type_clause", "implements_clause":
			e.extractHeritageReferences(ctx, ch)
		case "identifier", "type_identifier", "nested_type_identifier":
			ctx.File.References = append(ctx.File.References, Reference{
				Name:     ctx.Text(ch),
				Location: ctx.Location(ch),
				Hint:     HintTypePosition,
			})
		}
	}
}

func (e *TSExtractor) extractMethod(ctx *ExtractionContext, node *sitter.Node) bool {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return false
	}
	name := ctx.Text(nameNode)
	if name == "" {
		return false
	}

	params := node.ChildByFieldName("parameters")
	if params != nil {
		ctx.AppendLocalIdentifiers(params)
	}

	paramCount := e.countTSParameters(params)
	branches, nesting := e.computeTSComplexity(node.ChildByFieldName("body"), 0)
	loc := int(node.EndPosition().Row-node.StartPosition().Row) + 1
	if loc < 1 {
		loc = 1
	}
	score := (branches * 2) + (nesting * 2) + paramCount + (loc / 10)
	if score == 0 {
		score = 1
	}

	signature := name + e.tsParamsText(ctx, params)
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		signature += ctx.Text(ret)
	}

	ctx.File.Definitions = append(ctx.File.Definitions, Definition{
		Name:            name,
		FullName:        qualifyTSName(ctx, name),
		Kind:            KindMethod,
		Exported:        !e.isPrivateMember(ctx, node, name),
		Visibility:      e.memberVisibility(ctx, node),
		Scope:           "method",
		Signature:       signature,
		TypeHint:        "method",
		ParameterCount:  paramCount,
		BranchCount:     branches,
		NestingDepth:    nesting,
		LOC:             loc,
		ComplexityScore: score,
		Location:        ctx.Location(node),
	})
	return false
}

// extractMethodSignature handles an interface's declaration-only members
// (method_signature): same identity rules as a concrete method, but there
// is no body to compute complexity from.
func (e *TSExtractor) extractMethodSignature(ctx *ExtractionContext, node *sitter.Node) bool {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return false
	}
	name := ctx.Text(nameNode)
	if name == "" {
		return false
	}
	params := node.ChildByFieldName("parameters")
	signature := name + e.tsParamsText(ctx, params)
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		signature += ctx.Text(ret)
	}

	ctx.File.Definitions = append(ctx.File.Definitions, Definition{
		Name:           name,
		FullName:       qualifyTSName(ctx, name),
		Kind:           KindMethod,
		Exported:       true,
		Visibility:     "public",
		Scope:          "method",
		Signature:      signature,
		TypeHint:       "method",
		ParameterCount: e.countTSParameters(params),
		LOC:            1,
		Location:       ctx.Location(node),
	})
	return false
}

func (e *TSExtractor) extractFunction(ctx *ExtractionContext, node *sitter.Node) bool {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return false
	}
	name := ctx.Text(nameNode)
	if name == "" {
		return false
	}

	params := node.ChildByFieldName("parameters")
	if params != nil {
		ctx.AppendLocalIdentifiers(params)
	}

	paramCount := e.countTSParameters(params)
	branches, nesting := e.computeTSComplexity(node.ChildByFieldName("body"), 0)
	loc := int(node.EndPosition().Row-node.StartPosition().Row) + 1
	if loc < 1 {
		loc = 1
	}
	score := (branches * 2) + (nesting * 2) + paramCount + (loc / 10)
	if score == 0 {
		score = 1
	}

	signature := name + e.tsParamsText(ctx, params)
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		signature += ctx.Text(ret)
	}

	ctx.File.Definitions = append(ctx.File.Definitions, Definition{
		Name:            name,
		FullName:        qualifyTSName(ctx, name),
		Kind:            KindFunction,
		Exported:        tsIsExported(node),
		Visibility:      "public",
		Scope:           "global",
		Signature:       signature,
		TypeHint:        "function",
		ParameterCount:  paramCount,
		BranchCount:     branches,
		NestingDepth:    nesting,
		LOC:             loc,
		ComplexityScore: score,
		Location:        ctx.Location(node),
	})
	return false
}

// extractVarDecl handles both `const`/`let`/`var` statements. A declarator
// whose value is a function or arrow expression is recorded as a Function
// definition (the common `const handler = () => {}` idiom); any other
// declarator is recorded as a Variable or Constant.
func (e *TSExtractor) extractVarDecl(ctx *ExtractionContext, node *sitter.Node) bool {
	isConst := strings.HasPrefix(ctx.Text(node), "const")

	for i := uint(0); i < node.ChildCount(); i++ {
		declarator := node.Child(i)
		if declarator.Kind() != "variable_declarator" {
			continue
		}
		nameNode := declarator.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := ctx.Text(nameNode)
		if name == "" {
			continue
		}
		value := declarator.ChildByFieldName("value")
		if value != nil && (value.Kind() == "arrow_function" || value.Kind() == "function_expression" || value.Kind() == "function") {
			e.extractFunctionValue(ctx, name, value)
			continue
		}

		kind := KindVariable
		if isConst {
			kind = KindConstant
		}
		ctx.File.Definitions = append(ctx.File.Definitions, Definition{
			Name:       name,
			FullName:   qualifyTSName(ctx, name),
			Kind:       kind,
			Exported:   tsIsExported(node),
			Visibility: "public",
			Scope:      "global",
			TypeHint:   "variable",
			LOC:        1,
			Location:   ctx.Location(declarator),
		})
	}
	return false
}

// extractFunctionValue records a `const name = (...) => {...}` (or plain
// function-expression) declarator as a Function definition, the way it is
// actually called at every use site.
func (e *TSExtractor) extractFunctionValue(ctx *ExtractionContext, name string, value *sitter.Node) {
	params := value.ChildByFieldName("parameters")
	if params != nil {
		ctx.AppendLocalIdentifiers(params)
	}

	paramCount := e.countTSParameters(params)
	branches, nesting := e.computeTSComplexity(value.ChildByFieldName("body"), 0)
	loc := int(value.EndPosition().Row-value.StartPosition().Row) + 1
	if loc < 1 {
		loc = 1
	}
	score := (branches * 2) + (nesting * 2) + paramCount + (loc / 10)
	if score == 0 {
		score = 1
	}

	signature := name + e.tsParamsText(ctx, params)
	if ret := value.ChildByFieldName("return_type"); ret != nil {
		signature += ctx.Text(ret)
	}

	ctx.File.Definitions = append(ctx.File.Definitions, Definition{
		Name:            name,
		FullName:        qualifyTSName(ctx, name),
		Kind:            KindFunction,
		Exported:        tsIsExported(value),
		Visibility:      "public",
		Scope:           "global",
		Signature:       signature,
		TypeHint:        "function",
		ParameterCount:  paramCount,
		BranchCount:     branches,
		NestingDepth:    nesting,
		LOC:             loc,
		ComplexityScore: score,
		Location:        ctx.Location(value),
	})
}

func (e *TSExtractor) extractTypeAlias(ctx *ExtractionContext, node *sitter.Node) bool {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return false
	}
	name := ctx.Text(nameNode)
	if name == "" {
		return false
	}
	signature := name
	if value := node.ChildByFieldName("value"); value != nil {
		signature += " = " + ctx.Text(value)
	}

	ctx.File.Definitions = append(ctx.File.Definitions, Definition{
		Name:       name,
		FullName:   qualifyTSName(ctx, name),
		Kind:       KindType,
		Exported:   tsIsExported(node),
		Visibility: "public",
		Scope:      "global",
		Signature:  signature,
		TypeHint:   "type",
		LOC:        1,
		Location:   ctx.Location(node),
	})
	return false
}

func (e *TSExtractor) extractCall(ctx *ExtractionContext, node *sitter.Node) bool {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return false
	}
	name := ctx.Text(fn)
	if name == "" {
		return false
	}
	hint := HintUnqualifiedCall
	if fn.Kind() == "member_expression" {
		hint = HintQualifiedCall
		parts := strings.Split(name, ".")
		if len(parts) > 2 {
			name = parts[len(parts)-2] + "." + parts[len(parts)-1]
		}
	}
	ctx.File.References = append(ctx.File.References, Reference{
		Name:     name,
		Location: ctx.Location(fn),
		Context:  callReferenceContext(ctx.File.Language, name),
		Hint:     hint,
	})
	return false
}

func (e *TSExtractor) extractNewExpression(ctx *ExtractionContext, node *sitter.Node) bool {
	ctor := node.ChildByFieldName("constructor")
	if ctor == nil {
		return false
	}
	name := ctx.Text(ctor)
	if name == "" {
		return false
	}
	ctx.File.References = append(ctx.File.References, Reference{
		Name:     name,
		Location: ctx.Location(ctor),
		Context:  callReferenceContext(ctx.File.Language, name),
		Hint:     HintTypePosition,
	})
	return false
}

func (e *TSExtractor) countTSParameters(params *sitter.Node) int {
	if params == nil {
		return 0
	}
	count := 0
	for i := uint(0); i < params.ChildCount(); i++ {
		switch params.Child(i).Kind() {
		case "(", ")", ",":
		default:
			count++
		}
	}
	return count
}

func (e *TSExtractor) tsParamsText(ctx *ExtractionContext, params *sitter.Node) string {
	if params == nil {
		return "()"
	}
	return ctx.Text(params)
}

func (e *TSExtractor) computeTSComplexity(body *sitter.Node, depth int) (branches int, maxDepth int) {
	if body == nil {
		return 0, depth
	}
	maxDepth = depth
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		childDepth := depth
		switch child.Kind() {
		case "if_statement", "for_statement", "for_in_statement", "while_statement", "do_statement", "switch_statement", "catch_clause", "ternary_expression":
			branches++
			childDepth = depth + 1
		}
		childBranches, childMax := e.computeTSComplexity(child, childDepth)
		branches += childBranches
		if childMax > maxDepth {
			maxDepth = childMax
		}
	}
	return branches, maxDepth
}

// isPrivateMember reports whether a class member is marked TS `private`,
// named with a `#` private-field prefix, or starts with `_` by convention.
func (e *TSExtractor) isPrivateMember(ctx *ExtractionContext, node *sitter.Node, name string) bool {
	if strings.HasPrefix(name, "#") || strings.HasPrefix(name, "_") {
		return true
	}
	return e.memberVisibility(ctx, node) != "public"
}

func (e *TSExtractor) memberVisibility(ctx *ExtractionContext, node *sitter.Node) string {
	for i := uint(0); i < node.ChildCount(); i++ {
		ch := node.Child(i)
		if ch.Kind() == "accessibility_modifier" {
			return ctx.Text(ch)
		}
	}
	return "public"
}

// tsIsExported reports whether a top-level declaration is wrapped in an
// `export` statement.
func tsIsExported(node *sitter.Node) bool {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == "export_statement" {
			return true
		}
	}
	return false
}

// qualifyTSName prefixes name with the innermost enclosing class/interface
// on the stack, giving methods a Class.method identity distinct from a
// same-named method on another type in the same file.
func qualifyTSName(ctx *ExtractionContext, name string) string {
	if cls := ctx.EnclosingClass(); cls != "" {
		return cls + "." + name
	}
	return name
}

var _ = unicode.IsUpper // referenced by sibling extractors in this package; kept for import symmetry
