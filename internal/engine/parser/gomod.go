// # internal/engine/parser/gomod.go
package parser

import (
	"bufio"
	"bytes"
	"strings"
	"time"

	"golang.org/x/mod/modfile"

	"indexchan/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// GoModExtractor reads go.mod as a dependency manifest rather than source:
// every required module becomes an Import (so the resolver's import table
// and the dead-code analyzer's reachability graph can see the project's
// third-party surface), and the module directive itself becomes the file's
// module name.
type GoModExtractor struct{}

// Extract satisfies the Extractor interface for registry storage; go.mod
// has no tree-sitter grammar, so ParseFile always routes it through
// ExtractRaw instead and this method is never invoked.
func (e *GoModExtractor) Extract(node *sitter.Node, source []byte, filePath string) (*File, error) {
	return nil, errors.New(errors.CodeNotSupported, "gomod: use ExtractRaw")
}

func (e *GoModExtractor) ExtractRaw(source []byte, filePath string) (*File, error) {
	file := &File{
		Path:     filePath,
		Language: "gomod",
		ParsedAt: time.Now(),
	}

	mf, err := modfile.Parse(filePath, source, nil)
	if err != nil {
		return file, nil
	}
	if mf.Module != nil {
		file.Module = mf.Module.Mod.Path
		file.PackageName = mf.Module.Mod.Path
	}
	for _, req := range mf.Require {
		line := 0
		if req.Syntax != nil {
			line = req.Syntax.Start.Line
		}
		file.Imports = append(file.Imports, Import{
			Module:    req.Mod.Path,
			RawImport: req.Mod.String(),
			Used:      !req.Indirect,
			Location:  Location{File: filePath, Line: line},
		})
	}
	return file, nil
}

// GoSumExtractor parses go.sum's flat "module version hash" line format.
// go.sum carries no third-party parser in this project's dependency set, so
// a bufio.Scanner line reader is used directly; the format is a fixed
// three-column text table, not a grammar any library would meaningfully
// abstract.
type GoSumExtractor struct{}

// Extract satisfies the Extractor interface for registry storage; go.sum
// has no tree-sitter grammar, so ParseFile always routes it through
// ExtractRaw instead and this method is never invoked.
func (e *GoSumExtractor) Extract(node *sitter.Node, source []byte, filePath string) (*File, error) {
	return nil, errors.New(errors.CodeNotSupported, "gosum: use ExtractRaw")
}

func (e *GoSumExtractor) ExtractRaw(source []byte, filePath string) (*File, error) {
	file := &File{
		Path:     filePath,
		Language: "gosum",
		ParsedAt: time.Now(),
	}

	scanner := bufio.NewScanner(bytes.NewReader(source))
	lineNo := 0
	seen := make(map[string]bool)
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		module := fields[0]
		if seen[module] {
			continue
		}
		seen[module] = true
		file.Imports = append(file.Imports, Import{
			Module:    module,
			RawImport: strings.Join(fields, " "),
			Location:  Location{File: filePath, Line: lineNo},
		})
	}
	return file, nil
}
