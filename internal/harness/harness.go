package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/dataview/internal/compiler"
	"github.com/roach88/dataview/internal/registry"
	"github.com/roach88/dataview/internal/store"
)

// Harness runs scenarios against one compiler.
type Harness struct {
	compiler *compiler.Compiler
	logger   *slog.Logger
}

// New creates a Harness. A nil logger discards output.
func New(c *compiler.Compiler, logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{compiler: c, logger: logger}
}

// Run executes a scenario with the built-in registry.
func Run(scenario *Scenario) (*Result, error) {
	return New(compiler.New(registry.Default()), nil).Run(context.Background(), scenario)
}

// Run compiles the scenario's request, executes it when the scenario needs
// results, and evaluates every assertion.
//
// The returned error reports a broken scenario (bad season, failing
// fixtures); assertion failures are recorded in the Result instead.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	sc, err := scenario.seasonContext()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: season: %w", scenario.Name, err)
	}

	result := NewResult()
	compiled, err := h.compiler.Compile(scenario.Request, sc)
	if err != nil {
		code, ok := compiler.CodeOf(err)
		if !ok {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		result.ErrorCode = string(code)
		if !slices.ContainsFunc(scenario.Assertions, func(a Assertion) bool { return a.Type == AssertErrorCode }) {
			result.AddError(fmt.Sprintf("compile failed: %v", err))
		}
	} else {
		result.Query = compiled.Query
		result.Hash = compiled.Hash
		result.Metadata = compiled.Metadata
	}

	if compiled != nil && (len(scenario.Fixtures) > 0 || slices.ContainsFunc(scenario.Assertions, Assertion.needsExecution)) {
		if err := h.execute(ctx, scenario, result); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}

	for _, a := range scenario.Assertions {
		if err := evaluate(result, a); err != nil {
			result.AddError(err.Error())
		}
	}

	h.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"executed", result.Executed,
		"errors", len(result.Errors),
	)
	return result, nil
}

// execute loads fixtures into a fresh in-memory database and runs the
// compiled query there.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) (err error) {
	db, err := store.OpenSQLite(":memory:")
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		err = errors.Join(err, db.Close())
	}()

	for i, stmt := range scenario.Fixtures {
		if _, err := db.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("fixtures[%d]: %w", i, err)
		}
	}

	rows, qerr := db.Query(ctx, result.Query)
	if qerr != nil {
		result.AddError(fmt.Sprintf("query failed: %v", qerr))
		return nil
	}
	result.Columns = rows.Columns
	result.Rows = rows.Rows
	result.Executed = true
	return nil
}
