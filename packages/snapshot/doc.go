// Package snapshot stores response bodies next to feature files and compares
// later responses against them.
//
// Snapshots of a feature file live in __snapshots__/<name>.snap.json, keyed
// by "<scenario>::<snapshot name>". A Store in update mode records missing or
// changed snapshots instead of failing.
package snapshot
