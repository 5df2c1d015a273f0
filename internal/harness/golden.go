package harness

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// contentAlias matches the hashed CTE aliases the compiler emits.
var contentAlias = regexp.MustCompile(`\b([tg])_[0-9a-f]{32}\b`)

// Snapshot renders a result as golden-file text. Hashed aliases are
// renumbered per prefix in order of first appearance (t_1, t_2, g_1) so a
// golden file survives changes to the alias hash while still pinning the
// query shape.
func Snapshot(name string, r *Result) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "-- scenario: %s\n", name)
	if r.ErrorCode != "" {
		fmt.Fprintf(&buf, "-- error: %s\n", r.ErrorCode)
		return []byte(buf.String())
	}
	fmt.Fprintf(&buf, "-- cache_ttl: %d\n", r.Metadata.CacheTTL)
	if r.Metadata.CacheExpireAt != nil {
		fmt.Fprintf(&buf, "-- cache_expire_at: %d\n", *r.Metadata.CacheExpireAt)
	}
	buf.WriteString(NormalizeAliases(r.Query))
	buf.WriteString("\n")
	return []byte(buf.String())
}

// NormalizeAliases renumbers hashed aliases in sql.
func NormalizeAliases(sql string) string {
	seen := make(map[string]string)
	counts := make(map[string]int)
	return contentAlias.ReplaceAllStringFunc(sql, func(alias string) string {
		if n, ok := seen[alias]; ok {
			return n
		}
		prefix := alias[:1]
		counts[prefix]++
		n := prefix + "_" + strconv.Itoa(counts[prefix])
		seen[alias] = n
		return n
	})
}

// RunWithGolden runs a scenario and compares its snapshot with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Snapshot(scenario.Name, result))
	return result, nil
}
