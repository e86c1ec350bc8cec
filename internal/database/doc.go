// Package database records zapreport runs in a history database.
//
// Every run is stored as one row holding its identifiers, timestamps,
// archive digest and the complete run record as JSON. Two backends are
// supported:
//   - SQLite (via modernc.org/sqlite), a single file in the XDG data dir
//   - PostgreSQL (via github.com/lib/pq), for teams sharing one history
//
// Both backends use the same schema and queries. Queries are written with
// '?' placeholders and rebound to '$n' for PostgreSQL.
package database
