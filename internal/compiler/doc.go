// Package compiler turns declarative data-view requests into one SQL query.
//
// A request names columns from the registry, each with optional
// parameters. Compilation runs in fixed stages:
//
//   - normalize: resolve column ids, parse and default parameters, expand
//     dynamic year/week tokens against the season context
//   - dedup: identical (column_id, params) pairs share one instance whose
//     alias is a content hash, so equal requests render equal SQL
//   - synthesize: every instance becomes an inline expression, a direct
//     join, or a CTE grouped at the instance grain
//   - join: instances are joined to the base relation (player, or the
//     player_years / player_years_weeks split relations)
//   - filter and sort: where clauses become HAVING or outer WHERE terms,
//     sort entries become select-list ordinals with a pid tie-break
//   - cache: the minimum TTL across instances, plus any future as_of pin
//
// The package performs no I/O. A *Compiler may be shared between
// goroutines.
package compiler
