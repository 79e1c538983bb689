package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"weft/alias"
	"weft/internal/config"
	"weft/ir"
	"weft/registry"
)

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "weft" {
		t.Errorf("expected Use 'weft', got %q", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("Short description should not be empty")
	}
	if rootCmd.Version != Version {
		t.Errorf("Version = %q, want %q", rootCmd.Version, Version)
	}
}

func TestAllCommandsRegistered(t *testing.T) {
	expected := []string{"dump", "check-move", "verify", "shell"}

	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range expected {
		if !registered[name] {
			t.Errorf("command %q should be registered", name)
		}
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		cmd     *cobra.Command
		flags   []string
		cmdName string
	}{
		{dumpCmd, []string{"graph", "rules", "schemas"}, "dump"},
		{checkMoveCmd, []string{"graph", "move", "pivot", "side", "apply"}, "check-move"},
		{verifyCmd, []string{"graph", "rules", "schemas"}, "verify"},
		{shellCmd, []string{"graph", "rules", "schemas"}, "shell"},
	}

	for _, tt := range tests {
		for _, flagName := range tt.flags {
			if tt.cmd.Flags().Lookup(flagName) == nil {
				t.Errorf("%s should have --%s flag", tt.cmdName, flagName)
			}
		}
	}
}

func TestExitCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errors.New("reading graph: no such file"), 1},
		{alias.ErrMissingSummary, 2},
		{alias.ErrVarargMutable, 2},
		{alias.ErrUnhandledKind, 2},
		{errNotIdempotent, 2},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Errorf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

// clearEnv isolates the test from ambient WEFT_* settings.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("WEFT_RULES", "")
	t.Setenv("WEFT_SCHEMAS", "")
	t.Setenv("WEFT_DEBUG", "")
}

func setGraphFlags(t *testing.T, graph string) {
	t.Helper()
	oldGraph, oldRules, oldSchemas := graphPath, rulesPath, schemasPath
	graphPath, rulesPath, schemasPath = graph, "", ""
	t.Cleanup(func() {
		graphPath, rulesPath, schemasPath = oldGraph, oldRules, oldSchemas
	})
}

func setMoveFlags(t *testing.T, move, side, pivot string, apply bool) {
	t.Helper()
	oldMove, oldSide, oldPivot, oldApply := moveName, moveSide, pivotName, moveApply
	moveName, moveSide, pivotName, moveApply = move, side, pivot, apply
	t.Cleanup(func() {
		moveName, moveSide, pivotName, moveApply = oldMove, oldSide, oldPivot, oldApply
	})
}

func writeTempGraph(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.ir")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String(), err
}

func TestRunDumpPrintsDatabaseAndFingerprint(t *testing.T) {
	clearEnv(t)
	path := writeTempGraph(t, `graph(%x : Tensor):
  %y : Tensor = aten::relu(%x)
  return (%y)
`)
	setGraphFlags(t, path)

	out, err := captureStdout(t, func() error { return runDump(dumpCmd, nil) })
	if err != nil {
		t.Fatalf("runDump failed: %v", err)
	}
	if !strings.Contains(out, "===1. GRAPH===") {
		t.Errorf("dump output missing graph section:\n%s", out)
	}
	if !strings.Contains(out, "fingerprint: ") {
		t.Errorf("dump output missing fingerprint:\n%s", out)
	}
}

func TestRunCheckMoveBlockedVerdict(t *testing.T) {
	clearEnv(t)
	path := writeTempGraph(t, `graph(%x : Tensor, %o : Tensor):
  %y : Tensor = aten::t(%x)
  %w : Tensor = aten::add_(%x, %o)
  return (%w)
`)
	setGraphFlags(t, path)
	setMoveFlags(t, "%y", "after", "%w", false)

	out, err := captureStdout(t, func() error { return runCheckMove(checkMoveCmd, nil) })
	if err != nil {
		t.Fatalf("runCheckMove failed: %v", err)
	}
	if !strings.HasPrefix(out, "blocked:") {
		t.Fatalf("output = %q, want blocked verdict", out)
	}
}

func TestRunCheckMoveAllowedVerdict(t *testing.T) {
	clearEnv(t)
	path := writeTempGraph(t, `graph(%x : Tensor, %o : Tensor):
  %y : Tensor = aten::relu(%x)
  %z : Tensor = aten::relu(%o)
  return (%y, %z)
`)
	setGraphFlags(t, path)
	setMoveFlags(t, "%z", "before", "%y", false)

	out, err := captureStdout(t, func() error { return runCheckMove(checkMoveCmd, nil) })
	if err != nil {
		t.Fatalf("runCheckMove failed: %v", err)
	}
	if !strings.HasPrefix(out, "ok:") {
		t.Fatalf("output = %q, want ok verdict", out)
	}
}

func TestRunCheckMoveApplyPrintsReorderedGraph(t *testing.T) {
	clearEnv(t)
	path := writeTempGraph(t, `graph(%x : Tensor, %o : Tensor):
  %y : Tensor = aten::relu(%x)
  %z : Tensor = aten::relu(%o)
  return (%y, %z)
`)
	setGraphFlags(t, path)
	setMoveFlags(t, "%z", "before", "%y", true)

	out, err := captureStdout(t, func() error { return runCheckMove(checkMoveCmd, nil) })
	if err != nil {
		t.Fatalf("runCheckMove failed: %v", err)
	}
	zAt := strings.Index(out, "%z : Tensor =")
	yAt := strings.Index(out, "%y : Tensor =")
	if zAt < 0 || yAt < 0 || zAt > yAt {
		t.Fatalf("output does not show the applied move:\n%s", out)
	}
}

func TestRunCheckMoveRejectsBadSide(t *testing.T) {
	clearEnv(t)
	setGraphFlags(t, "unused.ir")
	setMoveFlags(t, "%a", "sideways", "%b", false)

	if err := runCheckMove(checkMoveCmd, nil); err == nil {
		t.Fatal("expected error for bad --side")
	}
}

func TestRunVerifyAcceptsDeterministicBuild(t *testing.T) {
	clearEnv(t)
	path := writeTempGraph(t, `graph(%x : Tensor, %o : Tensor):
  %y : Tensor = aten::t(%x)
  %w : Tensor = aten::add_(%x, %o)
  return (%w)
`)
	setGraphFlags(t, path)

	out, err := captureStdout(t, func() error { return runVerify(verifyCmd, nil) })
	if err != nil {
		t.Fatalf("runVerify failed: %v", err)
	}
	if !strings.HasPrefix(out, "ok: ") {
		t.Fatalf("output = %q, want ok prefix", out)
	}
}

func TestDumpDiffMarksChangedLines(t *testing.T) {
	diff := dumpDiff("a\nb\nc\n", "a\nx\nc\n")
	if !strings.Contains(diff, "-b") {
		t.Errorf("diff missing deleted line:\n%s", diff)
	}
	if !strings.Contains(diff, "+x") {
		t.Errorf("diff missing inserted line:\n%s", diff)
	}
	if strings.Contains(diff, "-a") || strings.Contains(diff, "+a") {
		t.Errorf("diff should not mark unchanged lines:\n%s", diff)
	}
}

func TestBuildDatabaseErrorClassification(t *testing.T) {
	clearEnv(t)
	cfg := config.FromArgs("", "")

	_, err := buildDatabase(cfg, filepath.Join(t.TempDir(), "missing.ir"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if got := exitCode(err); got != 1 {
		t.Fatalf("exitCode for I/O failure = %d, want 1", got)
	}

	path := writeTempGraph(t, `graph(%x : Tensor):
  %y : Tensor = aten::frobnicate(%x)
  return (%y)
`)
	_, err = buildDatabase(cfg, path)
	if !errors.Is(err, alias.ErrMissingSummary) {
		t.Fatalf("error = %v, want ErrMissingSummary", err)
	}
	if got := exitCode(err); got != 2 {
		t.Fatalf("exitCode for contract violation = %d, want 2", got)
	}
}

func TestBuildRegistryAppliesFiles(t *testing.T) {
	dir := t.TempDir()
	schemas := filepath.Join(dir, "schemas.txt")
	if err := os.WriteFile(schemas, []byte("mylib::op(Tensor self) -> Tensor\n"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rules := filepath.Join(dir, "rules.yaml")
	rulesText := "rules:\n  - analysis: conservative\n    ops: [\"mylib::*\"]\n"
	if err := os.WriteFile(rules, []byte(rulesText), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reg, err := buildRegistry(&config.Config{SchemasPath: schemas, RulesPath: rules})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Match("mylib::op", []ir.Type{ir.TensorType}) == nil {
		t.Fatal("schema file not applied")
	}
	if got := reg.AnalysisKindFor("mylib::op"); got != registry.Conservative {
		t.Fatalf("AnalysisKindFor = %q, want conservative", got)
	}

	// The shared default registry must stay untouched.
	if registry.Default().Match("mylib::op", []ir.Type{ir.TensorType}) != nil {
		t.Fatal("default registry was mutated")
	}
}
