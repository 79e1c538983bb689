// Package main provides the weft CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"weft/alias"
	"weft/fingerprint"
	"weft/internal/config"
	"weft/internal/queryeval"
	"weft/parse"
	"weft/registry"
)

const historyFile = ".weft_history"

// Version is the current weft CLI version
var Version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:     "weft",
	Short:   "Weft - alias and mutation analysis for tensor program graphs",
	Long:    `Weft builds an alias database over a tensor-program graph from operator alias annotations, answers may-alias and mutation queries, and plans topologically safe node moves.`,
	Version: Version,
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Build the alias database for a graph and print it",
	Long: `Build the alias database for a graph and print it.

The dump shows the graph, every tracked value's points-to and
containment edges, and the registered writes, followed by the canonical
graph fingerprint.

Examples:
  weft dump -g graph.ir
  weft dump -g graph.ir -r rules.yaml -s schemas.txt`,
	RunE: runDump,
}

var checkMoveCmd = &cobra.Command{
	Use:   "check-move",
	Short: "Check whether a node can be moved across a pivot",
	Long: `Check whether a node can be moved directly before or after a pivot
node without changing observable behavior.

Nodes are addressed by an output value name. By default the move is a
dry run; --apply performs it and prints the reordered graph.

Examples:
  weft check-move -g graph.ir --move %y --pivot %w --side after
  weft check-move -g graph.ir --move %y --pivot %w --side before --apply`,
	RunE: runCheckMove,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Build the alias database twice and compare the results",
	Long: `Run the parse-and-analyze pipeline twice over the same graph file and
compare the dumps line by line. Any difference means analysis is not
deterministic for this input and is reported as a failure.`,
	RunE: runVerify,
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive alias query shell",
	Long: `Interactive shell for exploring a graph's alias database.

Load a graph with 'load <file>' (or pass -g) and issue queries such as
'alias %a %b', 'writers %v' or 'move %n before %p'. Type 'help' inside
the shell for the full command list.`,
	RunE: runShell,
}

var (
	// Input flags shared by the analysis commands
	graphPath   string
	rulesPath   string
	schemasPath string

	// Check-move flags
	moveName  string
	pivotName string
	moveSide  string
	moveApply bool
)

func init() {
	for _, cmd := range []*cobra.Command{dumpCmd, checkMoveCmd, verifyCmd, shellCmd} {
		cmd.Flags().StringVarP(&graphPath, "graph", "g", "", "Path to a graph file")
		cmd.Flags().StringVarP(&rulesPath, "rules", "r", "", "YAML analysis rules (default: $WEFT_RULES)")
		cmd.Flags().StringVarP(&schemasPath, "schemas", "s", "", "Operator declarations, one per line (default: $WEFT_SCHEMAS)")
	}
	dumpCmd.MarkFlagRequired("graph")
	checkMoveCmd.MarkFlagRequired("graph")
	verifyCmd.MarkFlagRequired("graph")

	checkMoveCmd.Flags().StringVar(&moveName, "move", "", "Output name of the node to move (e.g. %y)")
	checkMoveCmd.Flags().StringVar(&pivotName, "pivot", "", "Output name of the pivot node")
	checkMoveCmd.Flags().StringVar(&moveSide, "side", "after", "Move side: before or after")
	checkMoveCmd.Flags().BoolVar(&moveApply, "apply", false, "Perform the move and print the reordered graph")
	checkMoveCmd.MarkFlagRequired("move")
	checkMoveCmd.MarkFlagRequired("pivot")

	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(checkMoveCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(shellCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// errNotIdempotent reports that two builds over the same input
// disagreed.
var errNotIdempotent = errors.New("rebuild produced a different alias database")

// exitCode distinguishes graph contract violations (2) from I/O and
// usage failures (1).
func exitCode(err error) int {
	if errors.Is(err, alias.ErrMissingSummary) ||
		errors.Is(err, alias.ErrVarargMutable) ||
		errors.Is(err, alias.ErrUnhandledKind) ||
		errors.Is(err, errNotIdempotent) {
		return 2
	}
	return 1
}

// buildRegistry clones the default registry and applies the configured
// schema and rule files.
func buildRegistry(cfg *config.Config) (*registry.Registry, error) {
	reg := registry.Default().Clone()
	if cfg.SchemasPath != "" {
		if err := reg.LoadSchemas(cfg.SchemasPath); err != nil {
			return nil, err
		}
	}
	if cfg.RulesPath != "" {
		if err := reg.LoadRules(cfg.RulesPath); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// buildDatabase runs the full pipeline for one graph file: registry,
// parse, analyze.
func buildDatabase(cfg *config.Config, path string) (*alias.DB, error) {
	reg, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading graph: %w", err)
	}
	g, err := parse.NewGraphParser(reg).Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	db, err := alias.New(g, alias.WithRegistry(reg))
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", path, err)
	}
	if cfg.Debug {
		fmt.Fprint(os.Stderr, db.Dump())
	}
	return db, nil
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg := config.FromArgs(rulesPath, schemasPath)
	db, err := buildDatabase(cfg, graphPath)
	if err != nil {
		return err
	}
	fmt.Print(db.Dump())
	fmt.Printf("fingerprint: %s\n", fingerprint.GraphHex(db.Graph()))
	return nil
}

func runCheckMove(cmd *cobra.Command, args []string) error {
	if moveSide != "before" && moveSide != "after" {
		return fmt.Errorf("--side must be before or after, got %q", moveSide)
	}
	cfg := config.FromArgs(rulesPath, schemasPath)
	db, err := buildDatabase(cfg, graphPath)
	if err != nil {
		return err
	}

	op := "check-move"
	if moveApply {
		op = "move"
	}
	res := queryeval.Eval(db, queryeval.Query{Op: op, Args: []string{moveName, moveSide, pivotName}})
	if res.Error != "" {
		return errors.New(res.Error)
	}
	if res.Output != "true" {
		fmt.Printf("blocked: cannot move %s %s %s\n", moveName, moveSide, pivotName)
		return nil
	}
	if moveApply {
		fmt.Print(db.Graph().String())
		return nil
	}
	fmt.Printf("ok: %s can move %s %s\n", moveName, moveSide, pivotName)
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg := config.FromArgs(rulesPath, schemasPath)
	first, err := buildDatabase(cfg, graphPath)
	if err != nil {
		return err
	}
	second, err := buildDatabase(cfg, graphPath)
	if err != nil {
		return err
	}

	before, after := first.Dump(), second.Dump()
	if before == after {
		fmt.Printf("ok: %s\n", fingerprint.GraphHex(first.Graph()))
		return nil
	}
	fmt.Print(dumpDiff(before, after))
	return errNotIdempotent
}

// dumpDiff renders the changed lines between two dumps.
func dumpDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		default:
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			b.WriteString(prefix)
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg := config.FromArgs(rulesPath, schemasPath)

	var db *alias.DB
	if graphPath != "" {
		built, err := buildDatabase(cfg, graphPath)
		if err != nil {
			return err
		}
		db = built
		fmt.Printf("loaded %s\n", graphPath)
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		line, err := ln.Prompt("weft> ")
		if errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			continue
		}
		if err != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)

		fields := strings.Fields(line)
		switch fields[0] {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Printf("%s", shellHelp)
			continue
		case "load":
			if len(fields) != 2 {
				fmt.Fprintln(os.Stderr, "usage: load <graph-file>")
				continue
			}
			built, err := buildDatabase(cfg, fields[1])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			db = built
			fmt.Printf("loaded %s\n", fields[1])
			continue
		}

		if db == nil {
			fmt.Fprintln(os.Stderr, "no graph loaded; use: load <graph-file>")
			continue
		}
		res := queryeval.EvalLine(db, line)
		if res.Error != "" {
			fmt.Fprintln(os.Stderr, res.Error)
			continue
		}
		fmt.Println(res.Output)
	}
}

const shellHelp = `commands:
  load <file>                      parse a graph and build its alias database
  alias %a %b                      may the two values alias?
  contains %a %b                   may %a contain an alias of %b?
  wildcard %v                      may %v alias the wildcard set?
  writers %v                       statements writing to an alias of %v
  writes %n                        values written by the node producing %n
  reads %n                         values read by the node producing %n
  check-move %n before|after %p    dry-run a topological move
  move %n before|after %p          perform a topological move
  dump                             print the alias database
  graph                            print the graph
  fingerprint                      digest of the current graph text
  quit
`
