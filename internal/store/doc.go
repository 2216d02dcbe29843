// Package store persists rotation preferences and switch history in SQLite.
//
// Device state itself is never stored: the coordinator always re-reads the OS.
// The database only remembers which devices the user removed from cycling and
// an audit trail of switch attempts. Schema changes bump the version in
// schema.go; users delete the database to adopt the new schema.
package store
