// # internal/parser/parser.go
package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"indexchan/internal/core/errors"
	"indexchan/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type Parser struct {
	loader         *GrammarLoader
	extractors     map[string]Extractor // language -> extractor
	extensions     map[string]string
	filenames      map[string]string
	testFileSuffix []string
	cache          *ExtractionCache
}

// SetCache attaches an extraction cache; ParseFile consults it before
// invoking the grammar and populates it after a fresh extraction. A nil
// cache (the default) disables memoization.
func (p *Parser) SetCache(c *ExtractionCache) {
	p.cache = c
}

type Extractor interface {
	Extract(node *sitter.Node, source []byte, filePath string) (*File, error)
}

type RawExtractor interface {
	ExtractRaw(source []byte, filePath string) (*File, error)
}

func NewParser(loader *GrammarLoader) *Parser {
	p := &Parser{
		loader:     loader,
		extractors: make(map[string]Extractor),
		extensions: make(map[string]string),
		filenames:  make(map[string]string),
	}
	for lang, spec := range loader.LanguageRegistry() {
		if !spec.Enabled {
			continue
		}
		for _, ext := range spec.Extensions {
			p.extensions[strings.ToLower(ext)] = lang
		}
		for _, name := range spec.Filenames {
			p.filenames[strings.ToLower(path.Base(name))] = lang
		}
		p.testFileSuffix = append(p.testFileSuffix, spec.TestFileSuffixes...)
	}
	sort.Strings(p.testFileSuffix)
	return p
}

func (p *Parser) RegisterExtractor(lang string, e Extractor) {
	p.extractors[lang] = e
}

// DefaultExtractorForLanguage returns the hand-written Extractor this
// package ships for lang, if any. A language with no entry here falls back
// to a registry-configured DynamicExtractor (see RegisterDefaultExtractors)
// or has no extractor at all.
func DefaultExtractorForLanguage(lang string) (Extractor, bool) {
	switch lang {
	case "go":
		return &GoExtractor{}, true
	case "python":
		return &PythonExtractor{}, true
	case "javascript", "typescript", "tsx":
		return &TSExtractor{}, true
	case "gomod":
		return &GoModExtractor{}, true
	case "gosum":
		return &GoSumExtractor{}, true
	}
	return nil, false
}

func (p *Parser) RegisterDefaultExtractors() error {
	for lang, spec := range p.loader.LanguageRegistry() {
		if !spec.Enabled {
			continue
		}
		extractor, ok := DefaultExtractorForLanguage(lang)
		if !ok {
			if spec.IsDynamic && spec.DynamicConfig != nil {
				p.RegisterExtractor(lang, NewDynamicExtractor(*spec.DynamicConfig))
				continue
			}
			return errors.New(errors.CodeNotSupported, fmt.Sprintf("no default extractor for enabled language: %s", lang))
		}
		p.RegisterExtractor(lang, extractor)
	}
	return nil
}

func (p *Parser) ParseFile(path string, content []byte) (*File, error) {
	lang := p.detectLanguage(path)
	if lang == "" {
		return nil, errors.New(errors.CodeNotSupported, "unsupported language")
	}

	extractor := p.extractors[lang]
	if extractor == nil {
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("no extractor for: %s", lang))
	}

	if p.cache != nil {
		sum := sha256.Sum256(content)
		hash := hex.EncodeToString(sum[:])
		if cached, ok := p.cache.Get(lang, hash); ok {
			hit := *cached
			hit.Path = path
			return &hit, nil
		}
	}

	var res *File
	grammar := p.loader.languages[lang]
	if grammar == nil {
		rawExtractor, ok := extractor.(RawExtractor)
		if !ok {
			return nil, errors.New(errors.CodeInternal, fmt.Sprintf("grammar not loaded: %s", lang))
		}
		raw, err := rawExtractor.ExtractRaw(content, path)
		if err != nil {
			return nil, err
		}
		res = raw
	} else {
		parser := sitter.NewParser()
		defer parser.Close()
		parser.SetLanguage(grammar)

		tree := parser.Parse(content, nil)
		if tree == nil {
			return nil, errors.New(errors.CodeInternal, "parse failed")
		}
		defer tree.Close()

		root := tree.RootNode()
		extracted, err := extractor.Extract(root, content, path)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "extraction failed")
		}
		res = extracted
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	res.ContentHash = hash

	if p.cache != nil {
		cached := *res
		p.cache.Put(lang, hash, &cached)
	}

	return res, nil
}

func (p *Parser) detectLanguage(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if lang, ok := p.filenames[base]; ok {
		return lang
	}
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := p.extensions[ext]; ok {
		return lang
	}
	return ""
}

func (p *Parser) IsSupportedPath(filePath string) bool {
	return p.GetLanguage(filePath) != ""
}

func (p *Parser) GetLanguage(path string) string {
	return p.detectLanguage(path)
}

func (p *Parser) IsTestFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, suffix := range p.testFileSuffix {
		if strings.HasSuffix(base, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}

func (p *Parser) SupportedExtensions() []string {
	return util.SortedStringKeys(p.extensions)
}

func (p *Parser) SupportedFilenames() []string {
	return util.SortedStringKeys(p.filenames)
}

func (p *Parser) SupportedTestFileSuffixes() []string {
	out := make([]string, len(p.testFileSuffix))
	copy(out, p.testFileSuffix)
	return out
}
