// Package observability persists tracked-run events as JSON Lines and derives
// run and step metrics from them on demand.
package observability
