package command

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRootCmd_RegistersEverySubcommand(t *testing.T) {
	root := newRootCmd()

	want := []string{"scan", "clean", "annotate", "export", "init", "stats", "watch", "rpc"}
	got := map[string]bool{}
	for _, c := range root.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("expected a %q subcommand to be registered", name)
		}
	}
}

func TestExecute_UnknownSubcommandReturnsNonZero(t *testing.T) {
	code := Execute([]string{"bogus-subcommand"})
	if code == 0 {
		t.Errorf("expected a nonzero exit code for an unknown subcommand")
	}
}

func TestExecute_HelpReturnsZero(t *testing.T) {
	code := Execute([]string{"--help"})
	if code != 0 {
		t.Errorf("expected --help to exit 0, got %d", code)
	}
}

func TestExportCmd_RequiresOutputFlag(t *testing.T) {
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"export", t.TempDir()})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected export without -o to fail")
	}
	if !strings.Contains(err.Error(), "--output") {
		t.Errorf("expected the error to mention the missing --output flag, got %v", err)
	}
}

func TestTargetDir_DefaultsToCurrentDirectory(t *testing.T) {
	if got := targetDir(nil); got != "." {
		t.Errorf("expected default dir %q, got %q", ".", got)
	}
	if got := targetDir([]string{"/some/project"}); got != "/some/project" {
		t.Errorf("expected explicit dir to pass through, got %q", got)
	}
}
