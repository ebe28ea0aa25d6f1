package watcher

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// IgnorePolicy implements the `.indexchanignore` glob grammar: blank lines
// and lines starting with # are skipped, a leading ! negates a prior match,
// a trailing / anchors the pattern to directories only, and ** matches
// across path separators the way gobwas/glob's GlobSeparators does when
// left empty.
type IgnorePolicy struct {
	rules []ignoreRule
}

type ignoreRule struct {
	pattern  glob.Glob
	negate   bool
	dirOnly  bool
	anchored bool
}

// LoadIgnorePolicy reads path (typically `.indexchanignore` at the project
// root) and compiles it. A missing file yields an empty policy, not an
// error: having no ignore file is valid.
func LoadIgnorePolicy(path string) (*IgnorePolicy, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &IgnorePolicy{}, nil
		}
		return nil, err
	}
	defer f.Close()

	policy := &IgnorePolicy{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		negate := false
		if strings.HasPrefix(line, "!") {
			negate = true
			line = line[1:]
		}

		anchored := strings.HasPrefix(line, "/")
		line = strings.TrimPrefix(line, "/")

		dirOnly := strings.HasSuffix(line, "/")
		line = strings.TrimSuffix(line, "/")

		if line == "" {
			continue
		}

		pattern := line
		if !strings.Contains(pattern, "/") {
			pattern = "**/" + pattern
		}

		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}

		policy.rules = append(policy.rules, ignoreRule{
			pattern:  g,
			negate:   negate,
			dirOnly:  dirOnly,
			anchored: anchored,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return policy, nil
}

// Match reports whether relPath (slash-separated, relative to the project
// root) is ignored. Later rules override earlier ones, matching the
// gitignore-style precedence the grammar implies.
func (p *IgnorePolicy) Match(relPath string, isDir bool) bool {
	if p == nil {
		return false
	}
	rel := filepath.ToSlash(relPath)
	ignored := false
	for _, rule := range p.rules {
		if rule.dirOnly && !isDir {
			continue
		}
		if rule.pattern.Match(rel) {
			ignored = !rule.negate
		}
	}
	return ignored
}
