package main

import (
	"errors"
	"fmt"
	"github.com/dianpeng/sql2ra/catalog"
	"github.com/dianpeng/sql2ra/graph"
	"github.com/dianpeng/sql2ra/pipeline"
	"github.com/dianpeng/sql2ra/plan"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"io"
	"log/slog"
	"os"
	"strings"
)

type rootOptions struct {
	Catalog string
	NoColor bool
	Verbose bool
}

// stageError carries the stage name printed in front of a failure
type stageError struct {
	stage string
	err   error
}

func (self *stageError) Error() string { return self.err.Error() }
func (self *stageError) Unwrap() error { return self.err }

func oops(stage string, err error) error {
	return &stageError{stage: stage, err: err}
}

func stageOf(err error) (string, error) {
	se := &stageError{}
	if errors.As(err, &se) {
		return se.stage, se.err
	}
	pe := &pipeline.StageError{}
	if errors.As(err, &pe) {
		return pe.Stage, pe.Err
	}
	return "cli", err
}

func readQuery(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", oops("read sql", err)
	}
	return string(data), nil
}

func (self *rootOptions) catalog() (*catalog.Catalog, error) {
	if self.Catalog == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(self.Catalog)
	if err != nil {
		return nil, oops("catalog", err)
	}
	return cat, nil
}

func (self *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if self.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))
}

func (self *rootOptions) compile(cmd *cobra.Command, args []string) (*pipeline.Result, error) {
	text, err := readQuery(cmd, args)
	if err != nil {
		return nil, err
	}
	cat, err := self.catalog()
	if err != nil {
		return nil, err
	}
	return pipeline.NewCompiler(cat, self.logger(cmd)).Compile(text)
}

func newPlanCommand(opts *rootOptions) *cobra.Command {
	var styles map[string]string

	cmd := &cobra.Command{
		Use:   "plan [sql]",
		Short: "Print the optimization trace and the evaluation plan",
		Long: `Compile a query and print the optimization trace followed by the ordered
evaluation steps. The query is read from STDIN when no argument is given.

Example:
  sql2ra plan "SELECT Nome FROM Cliente WHERE Nome = 'Ana'"
  echo "SELECT Nome FROM Cliente" | sql2ra plan --style join=bold;red`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.compile(cmd, args)
			if err != nil {
				return err
			}

			name := "color"
			if opts.NoColor {
				name = "plain"
			}
			f, _ := plan.FormatByName(name)
			for kind, style := range styles {
				if err := f.SetStyle(kind, style); err != nil {
					return oops("format", err)
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), f.Print(r.Trace, r.Steps))
			return nil
		},
	}

	cmd.Flags().StringToStringVar(&styles, "style", nil, "override the style of a line kind, ie join=bold;red")
	return cmd
}

func newAlgebraCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "algebra [sql]",
		Short: "Print the relational algebra before and after optimization",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.compile(cmd, args)
			if err != nil {
				return err
			}
			title := color.New(color.FgBlue, color.Bold).SprintFunc()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n%s\n", title("##> Built"), r.Built)
			fmt.Fprintf(out, "%s\n%s\n", title("##> Optimized"), r.Optimized)
			return nil
		},
	}
}

func newDotCommand(opts *rootOptions) *cobra.Command {
	var output string
	var built bool

	cmd := &cobra.Command{
		Use:   "dot [sql]",
		Short: "Export the optimized operator tree as a Graphviz digraph",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.compile(cmd, args)
			if err != nil {
				return err
			}

			tree := r.Optimized
			if built {
				tree = r.Built
			}
			dot := graph.DOT(tree)

			if output == "" {
				fmt.Fprint(cmd.OutOrStdout(), dot)
				return nil
			}
			if err := os.WriteFile(output, []byte(dot), 0644); err != nil {
				return oops("save", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "specify path to save output file, default write to STDOUT")
	cmd.Flags().BoolVar(&built, "built", false, "export the tree before optimization")
	return cmd
}

func newTablesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables and columns of the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := opts.catalog()
			if err != nil {
				return err
			}
			name := color.New(color.FgGreen, color.Bold).SprintFunc()
			for _, table := range cat.Tables() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s(%s)\n", name(table), strings.Join(cat.Columns(table), ", "))
			}
			return nil
		},
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "sql2ra",
		Short: "Compile restricted SQL into relational algebra and an evaluation plan",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.NoColor {
				color.NoColor = true
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Catalog, "catalog", "", "catalog YAML file, default to the builtin schema")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log every compilation stage to STDERR")

	cmd.AddCommand(newPlanCommand(opts))
	cmd.AddCommand(newAlgebraCommand(opts))
	cmd.AddCommand(newDotCommand(opts))
	cmd.AddCommand(newTablesCommand(opts))
	return cmd
}

// run executes the command line and returns the process exit code
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		stage, cause := stageOf(err)
		fmt.Fprintf(stderr, "ERROR [%s] %s\n", stage, cause)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
