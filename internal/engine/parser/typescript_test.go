package parser

import (
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

func TestTSExtractor_ReceiverQualification(t *testing.T) {
	source := `
class Counter {
	inc() {
		return 1
	}
}

class Timer {
	inc() {
		return 2
	}
}
`
	parser := sitter.NewParser()
	parser.SetLanguage(sitter.NewLanguage(tree_sitter_javascript.Language()))
	tree := parser.Parse([]byte(source), nil)

	e := &TSExtractor{}
	file, err := e.Extract(tree.RootNode(), []byte(source), "test.js")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	fullNames := map[string]bool{}
	for _, def := range file.Definitions {
		if def.Name == "inc" {
			fullNames[def.FullName] = true
		}
	}

	if !fullNames["Counter.inc"] {
		t.Errorf("expected Counter.inc in definitions, got %v", fullNames)
	}
	if !fullNames["Timer.inc"] {
		t.Errorf("expected Timer.inc in definitions, got %v", fullNames)
	}
	if len(fullNames) != 2 {
		t.Errorf("expected exactly 2 distinct FullNames for same-named methods on different classes, got %v", fullNames)
	}
}

func TestTSExtractor_ImportsAndCallHints(t *testing.T) {
	source := `
import { Widget } from "./widget"
import * as utils from "./utils"

function build() {
	utils.make()
	Widget.create()
	helper()
}
`
	parser := sitter.NewParser()
	parser.SetLanguage(sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()))
	tree := parser.Parse([]byte(source), nil)

	e := &TSExtractor{}
	file, err := e.Extract(tree.RootNode(), []byte(source), "test.ts")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(file.Imports) != 2 {
		t.Fatalf("expected 2 imports, got %d: %+v", len(file.Imports), file.Imports)
	}

	var sawQualified, sawUnqualified bool
	for _, ref := range file.References {
		switch ref.Name {
		case "utils.make", "Widget.create":
			if ref.Hint == HintQualifiedCall {
				sawQualified = true
			}
		case "helper":
			if ref.Hint == HintUnqualifiedCall {
				sawUnqualified = true
			}
		}
	}
	if !sawQualified {
		t.Errorf("expected at least one qualified_call hint among references: %+v", file.References)
	}
	if !sawUnqualified {
		t.Errorf("expected an unqualified_call hint for helper(): %+v", file.References)
	}
}

func TestTSExtractor_InterfaceHeritageTypePosition(t *testing.T) {
	source := `
interface Shape {
	area(): number
}

class Circle implements Shape {
	area() {
		return 1
	}
}
`
	parser := sitter.NewParser()
	parser.SetLanguage(sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()))
	tree := parser.Parse([]byte(source), nil)

	e := &TSExtractor{}
	file, err := e.Extract(tree.RootNode(), []byte(source), "test.ts")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	var sawShapeTypePosition bool
	for _, ref := range file.References {
		if ref.Name == "Shape" && ref.Hint == HintTypePosition {
			sawShapeTypePosition = true
		}
	}
	if !sawShapeTypePosition {
		t.Errorf("expected a type_position reference to Shape from the implements clause: %+v", file.References)
	}

	var foundInterface, foundMethod bool
	for _, def := range file.Definitions {
		if def.Name == "Shape" && def.Kind == KindInterface {
			foundInterface = true
		}
		if def.FullName == "Circle.area" {
			foundMethod = true
		}
	}
	if !foundInterface {
		t.Errorf("expected Shape interface definition")
	}
	if !foundMethod {
		t.Errorf("expected Circle.area method definition")
	}
}
