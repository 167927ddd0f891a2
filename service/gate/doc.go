// Package gate intercepts proposed tool calls. Calls whose policy needs no
// review proceed immediately; every other call is persisted as a checkpoint
// and the run is suspended until a reviewer decides.
package gate
