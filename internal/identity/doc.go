// Package identity assigns durable identifiers to gamepads.
//
// A gamepad only reports a display name, and identical models report the
// same name. The Store keeps an append-only log of every {name, identifier}
// pair ever issued. The Resolver hands a newly connected pad the first
// identifier recorded for its name that no connected pad currently holds,
// and mints (and persists) a fresh one when every known identifier for the
// name is taken.
//
// Two Store backends exist: SQLiteStore (the identity_records table) and
// FileStore (a YAML sequence rewritten in full on each append).
package identity
