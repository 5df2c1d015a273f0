// Package store executes compiled data-view queries.
//
// Two backends implement Executor:
//   - SQLite (github.com/mattn/go-sqlite3): a local fixture database created
//     from the embedded schema.sql, used for development and tests
//   - PostgreSQL (github.com/jackc/pgx/v5/pgxpool): the production tables
//
// Both read the current season from the single-row season_state table and
// so also act as a season.Provider.
//
// Query results keep the select-list column order. Rows are returned in the
// order the database produced them; compiled queries always carry an
// ORDER BY, so that order is deterministic for a given dataset.
package store
