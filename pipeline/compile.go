package pipeline

import (
	"fmt"
	"github.com/dianpeng/sql2ra/algebra"
	"github.com/dianpeng/sql2ra/catalog"
	"github.com/dianpeng/sql2ra/plan"
	"github.com/dianpeng/sql2ra/sql"
	"io"
	"log/slog"
)

const (
	StageParse    = "parse"
	StageBuild    = "build"
	StageOptimize = "optimize"
)

// StageError tags an error with the stage that raised it
type StageError struct {
	Stage string
	Err   error
}

func (self *StageError) Error() string {
	return fmt.Sprintf("%s: %s", self.Stage, self.Err)
}

func (self *StageError) Unwrap() error { return self.Err }

// Result holds every intermediate form of one compiled query. Plan is Trace
// followed by Steps.
type Result struct {
	Query     *sql.ParsedQuery
	Built     *algebra.Tree
	Optimized *algebra.Tree
	Trace     []string
	Steps     []string
	Plan      []string
}

// Compiler runs text -> ParsedQuery -> tree -> optimized tree -> plan. It
// holds no per query state, one Compiler can serve concurrent callers.
type Compiler struct {
	Catalog   *catalog.Catalog
	Logger    *slog.Logger
	Optimizer *plan.Optimizer
}

func NewCompiler(cat *catalog.Catalog, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Compiler{
		Catalog:   cat,
		Logger:    logger,
		Optimizer: plan.NewOptimizer(),
	}
}

func (self *Compiler) oops(stage string, err error) error {
	self.Logger.Debug("compilation failed", "stage", stage, "error", err)
	return &StageError{
		Stage: stage,
		Err:   err,
	}
}

// Compile never returns a partial Result, on error only the error is set
func (self *Compiler) Compile(text string) (*Result, error) {
	q, err := sql.Parse(self.Catalog, text)
	if err != nil {
		return nil, self.oops(StageParse, err)
	}
	self.Logger.Debug("query parsed",
		"tables", q.From,
		"columns", len(q.Select),
		"conditions", len(q.Where),
	)

	built, err := algebra.Build(q)
	if err != nil {
		return nil, self.oops(StageBuild, err)
	}
	if err := built.Validate(); err != nil {
		return nil, self.oops(StageBuild, err)
	}
	self.Logger.Debug("tree built",
		"nodes", built.Len(),
		"algebra", built.String(),
	)

	optimized, trace := self.Optimizer.Optimize(built)
	if err := optimized.Validate(); err != nil {
		return nil, self.oops(StageOptimize, err)
	}
	self.Logger.Debug("tree optimized",
		"nodes", optimized.Len(),
		"rewrites", len(trace),
		"fingerprint", fmt.Sprintf("%016x", plan.Fingerprint(optimized)),
	)

	steps := plan.Generate(optimized)
	self.Logger.Debug("plan generated", "steps", len(steps))

	return &Result{
		Query:     q,
		Built:     built,
		Optimized: optimized,
		Trace:     trace,
		Steps:     steps,
		Plan:      plan.Generate(optimized, trace...),
	}, nil
}
