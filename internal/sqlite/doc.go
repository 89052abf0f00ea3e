// Package sqlite implements rowstore.Engine on SQLite.
//
// Layout: one table per record kind, named after the kind, with an
// engine-owned z_pk INTEGER PRIMARY KEY AUTOINCREMENT column followed by one
// column per field in declaration order. The primary-key field carries a
// UNIQUE constraint and non-optional fields are NOT NULL.
//
// The table recstore_metadata holds a single JSON row recording the version,
// fingerprint and descriptor the store satisfies. PRAGMA user_version mirrors
// the version for external tools.
//
// Storage classes per kind:
//
//	integer  INTEGER
//	double   REAL
//	string   TEXT
//	boolean  INTEGER (0/1)
//	date     TEXT (2006-01-02T15:04:05.000000000Z, UTC)
//	binary   BLOB
//	uuid     TEXT (canonical form)
//	url      TEXT
//	opaque   BLOB
//
// Mutations run inside a lazily-begun transaction that stays open until
// Commit. Every Mutate is wrapped in a SAVEPOINT so a failing mutation leaves
// earlier uncommitted work intact.
package sqlite
