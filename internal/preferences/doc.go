// Package preferences persists small integer settings across restarts.
//
// Values live in the SQLite preferences table keyed by (namespace, key).
// PlayerDefaults uses the "playerDefaults" namespace for the sequence and
// speed the player starts with; setDefault writes both keys in one
// transaction.
package preferences
