package command

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"indexchan/internal/core/indexer"
	"indexchan/internal/engine/analyzer"
	"indexchan/internal/engine/parser"
)

func newScanCmd() *cobra.Command {
	var gitHistoryDepth int

	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Parse, resolve, and refresh the index store for a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine(targetDir(args))
			if err != nil {
				return err
			}
			if cache, cerr := parser.OpenExtractionCache(filepath.Join(eng.StateDir(), "extraction-cache.bolt"), 0); cerr == nil {
				eng.Parser.SetCache(cache)
				defer cache.Close()
			}
			res, err := eng.Scan()
			if err != nil {
				return err
			}
			printScanSummary(cmd, res)

			depth := gitHistoryDepth
			if depth == 0 {
				depth = eng.Config.Secrets.GitHistoryDepth
			}
			if depth > 0 {
				found, err := eng.ScanGitHistory(depth)
				if err != nil {
					return err
				}
				printGitHistorySecrets(cmd, found)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&gitHistoryDepth, "git-history", 0, "also scan this many commits of history for removed secrets (overrides secrets.git_history_depth)")
	return cmd
}

func openEngine(dir string) (*indexer.Engine, error) {
	cfg, err := indexer.LoadConfig(dir)
	if err != nil {
		return nil, err
	}
	return indexer.New(dir, cfg)
}

func printScanSummary(cmd *cobra.Command, res indexer.ScanResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "files: %d  entities: %d  references: %d  unresolved: %d\n",
		len(res.Files), res.Refresh.Entities, res.Refresh.References, res.Refresh.Unresolved)

	byTier := map[analyzer.SafetyTier]int{}
	for _, d := range res.Analysis.Dead {
		byTier[d.Tier]++
	}
	tiers := []analyzer.SafetyTier{analyzer.DefinitelySafe, analyzer.ProbablySafe, analyzer.NeedsReview}
	fmt.Fprintf(out, "dead code: %d total\n", len(res.Analysis.Dead))
	for _, t := range tiers {
		if n := byTier[t]; n > 0 {
			fmt.Fprintf(out, "  %s: %d\n", t, n)
		}
	}
}

func printGitHistorySecrets(cmd *cobra.Command, found []parser.Secret) {
	out := cmd.OutOrStdout()
	if len(found) == 0 {
		fmt.Fprintln(out, "git history: no secrets found")
		return
	}
	fmt.Fprintf(out, "git history: %d secret(s) found\n", len(found))
	for _, s := range found {
		fmt.Fprintf(out, "  [%s] %s %s\n", s.Severity, s.Kind, s.Location.File)
	}
}
