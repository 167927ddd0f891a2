// Package idgen produces run, call and checkpoint identifiers. Generators
// are package variables so tests can make identifiers deterministic; callers
// must treat the values as opaque strings.
package idgen
