// Package tool holds the explicitly registered tools a run may call and the
// execution guard wrapped around them.
package tool
