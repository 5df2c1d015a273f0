package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dataview/internal/compiler"
	"github.com/roach88/dataview/internal/season"
	"github.com/roach88/dataview/internal/testutil"
)

// Scenario is one compile scenario.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Season defaults to testutil.Season when omitted.
	Season *SeasonSpec `yaml:"season,omitempty"`

	// Fixtures are SQL statements run against a fresh in-memory database
	// before the compiled query.
	Fixtures []string `yaml:"fixtures,omitempty"`

	Request    compiler.Request `yaml:"request"`
	Assertions []Assertion      `yaml:"assertions"`
}

// SeasonSpec is the season context a scenario compiles against.
type SeasonSpec struct {
	Year  int    `yaml:"year"`
	Week  int    `yaml:"week"`
	Phase string `yaml:"phase"`
	// Now is RFC 3339; testutil.Epoch when empty.
	Now string `yaml:"now,omitempty"`
}

// Assertion checks one property of the compiled view or its results.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Text is the substring for sql_contains and sql_not_contains.
	Text string `yaml:"text,omitempty"`

	// Code is the expected compile error code for error_code.
	Code string `yaml:"code,omitempty"`

	// Value is the expected number for cache_ttl, cache_expire_at and
	// row_count.
	Value *int64 `yaml:"value,omitempty"`

	// Columns is the expected result column list for columns.
	Columns []string `yaml:"columns,omitempty"`

	// Row and Expect select a result row and the values it must hold
	// (subset match) for row.
	Row    int            `yaml:"row,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertSQLContains    = "sql_contains"
	AssertSQLNotContains = "sql_not_contains"
	AssertErrorCode      = "error_code"
	AssertCacheTTL       = "cache_ttl"
	AssertCacheExpireAt  = "cache_expire_at"
	AssertColumns        = "columns"
	AssertRowCount       = "row_count"
	AssertRow            = "row"
)

// needsExecution reports whether the assertion inspects query results.
func (a Assertion) needsExecution() bool {
	switch a.Type {
	case AssertColumns, AssertRowCount, AssertRow:
		return true
	}
	return false
}

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every .yaml/.yml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scenarios: %w", err)
	}
	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	out := make([]*Scenario, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", name, s.Name, prev)
		}
		seen[s.Name] = name
		out = append(out, s)
	}
	return out, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Request.Columns) == 0 && len(s.Request.PrefixColumns) == 0 {
		return fmt.Errorf("request must select at least one column")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("at least one assertion is required")
	}
	if s.Season != nil {
		if _, err := s.Season.context(); err != nil {
			return fmt.Errorf("season: %w", err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertSQLContains, AssertSQLNotContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertErrorCode:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error_code", index)
		}
	case AssertCacheTTL, AssertRowCount:
		if a.Value == nil || *a.Value < 0 {
			return fmt.Errorf("assertions[%d]: a non-negative value is required for %s", index, a.Type)
		}
	case AssertCacheExpireAt:
		// A missing value asserts that no expiry is set.
	case AssertColumns:
		if len(a.Columns) == 0 {
			return fmt.Errorf("assertions[%d]: columns is required for columns", index)
		}
	case AssertRow:
		if a.Row < 0 {
			return fmt.Errorf("assertions[%d]: row must be non-negative", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for row", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// seasonContext returns the context the scenario compiles against.
func (s *Scenario) seasonContext() (season.Context, error) {
	if s.Season == nil {
		return testutil.Season(), nil
	}
	return s.Season.context()
}

func (s *SeasonSpec) context() (season.Context, error) {
	phase, err := season.ParsePhase(s.Phase)
	if err != nil {
		return season.Context{}, err
	}
	now := testutil.Epoch
	if s.Now != "" {
		now, err = time.Parse(time.RFC3339, s.Now)
		if err != nil {
			return season.Context{}, fmt.Errorf("now: %w", err)
		}
	}
	sc := season.Context{Year: s.Year, Week: s.Week, Phase: phase, Now: now.UTC()}
	return sc, sc.Validate()
}
