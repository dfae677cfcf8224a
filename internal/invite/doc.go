// Package invite defines the value types shared by the attribution engine,
// its store and the platform adapters.
//
// Identifiers are platform snowflakes carried as decimal strings. Every type
// here is a plain value: no behaviour depends on the platform client or the
// database driver.
package invite
