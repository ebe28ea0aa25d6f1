package formats

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"indexchan/internal/engine/analyzer"
	"indexchan/internal/engine/parser"
	"indexchan/internal/shared/version"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	ruleIDDeadDefinitelySafe = "DEAD001"
	ruleIDDeadProbablySafe   = "DEAD002"
	ruleIDDeadNeedsReview    = "DEAD003"
	ruleIDSecret             = "SEC001"
)

// sarifReport is the top-level SARIF document.
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
}

// GenerateSARIF renders a dead-code report and secret-scan findings as a
// SARIF v2.1.0 document, suitable for GitHub code scanning or any other
// SARIF-consuming viewer. File URIs are made relative to projectRoot so
// reports are safe to share outside the machine they were produced on.
func GenerateSARIF(projectRoot string, dead []analyzer.DeadEntity, secrets []parser.Secret) ([]byte, error) {
	rules := buildSARIFRules(dead, secrets)
	results := make([]sarifResult, 0, len(dead)+len(secrets))

	for _, d := range dead {
		results = append(results, sarifResult{
			RuleID:    deadCodeRuleID(d.Tier),
			Level:     deadCodeLevel(d.Tier),
			Message:   sarifMessage{Text: fmt.Sprintf("%s is unreachable: %s", d.Entity.FullName, d.Reason)},
			Locations: []sarifLocation{fileLocation(projectRoot, d.Entity.File, d.Entity.Location.Line, 0)},
		})
	}

	for _, s := range secrets {
		msg := fmt.Sprintf("Potential secret detected: %s (confidence %.0f%%)", s.Kind, s.Confidence*100)
		results = append(results, sarifResult{
			RuleID:    ruleIDSecret,
			Level:     secretSeverityToLevel(s.Severity),
			Message:   sarifMessage{Text: msg},
			Locations: []sarifLocation{fileLocation(projectRoot, s.Location.File, s.Location.Line, s.Location.Column)},
		})
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "indexchan",
						Version: version.Version,
						Rules:   rules,
					},
				},
				Results: results,
			},
		},
	}

	return json.MarshalIndent(report, "", "  ")
}

func deadCodeRuleID(tier analyzer.SafetyTier) string {
	switch tier {
	case analyzer.DefinitelySafe:
		return ruleIDDeadDefinitelySafe
	case analyzer.ProbablySafe:
		return ruleIDDeadProbablySafe
	default:
		return ruleIDDeadNeedsReview
	}
}

func deadCodeLevel(tier analyzer.SafetyTier) string {
	switch tier {
	case analyzer.DefinitelySafe:
		return "warning"
	case analyzer.ProbablySafe:
		return "warning"
	default:
		return "note"
	}
}

// buildSARIFRules returns only the rules relevant to the given findings.
func buildSARIFRules(dead []analyzer.DeadEntity, secrets []parser.Secret) []sarifRule {
	seen := make(map[string]bool, 4)
	rules := make([]sarifRule, 0, 4)
	add := func(id, name, desc, level string) {
		if seen[id] {
			return
		}
		seen[id] = true
		rules = append(rules, sarifRule{
			ID:               id,
			Name:             name,
			ShortDescription: sarifMessage{Text: desc},
			DefaultConfig:    sarifRuleDefaultConfig{Level: level},
		})
	}
	for _, d := range dead {
		switch d.Tier {
		case analyzer.DefinitelySafe:
			add(ruleIDDeadDefinitelySafe, "DeadCodeDefinitelySafe", "An unreachable entity with no exported or dynamic-dispatch hedge.", "warning")
		case analyzer.ProbablySafe:
			add(ruleIDDeadProbablySafe, "DeadCodeProbablySafe", "An unreachable entity with a weak dynamic-dispatch signal.", "warning")
		default:
			add(ruleIDDeadNeedsReview, "DeadCodeNeedsReview", "An unreachable but exported entity; deletion needs a human look.", "note")
		}
	}
	if len(secrets) > 0 {
		add(ruleIDSecret, "PotentialSecret", "A potential secret or high-entropy token was detected.", "warning")
	}
	return rules
}

// fileLocation converts an absolute file path to a forward-slash relative
// URI anchored at projectRoot, with an optional line/column region.
func fileLocation(projectRoot, file string, line, column int) sarifLocation {
	uri := file
	if projectRoot != "" && filepath.IsAbs(file) {
		if rel, err := filepath.Rel(projectRoot, file); err == nil {
			uri = rel
		}
	}
	uri = filepath.ToSlash(uri)

	loc := sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: uri, URIBaseID: "%SRCROOT%"},
		},
	}
	if line > 0 {
		loc.PhysicalLocation.Region = &sarifRegion{StartLine: line, StartColumn: column}
	}
	return loc
}

// secretSeverityToLevel maps a detector severity string to a SARIF level.
func secretSeverityToLevel(severity string) string {
	switch strings.ToLower(severity) {
	case "critical", "high":
		return "error"
	case "medium":
		return "warning"
	default:
		return "note"
	}
}
