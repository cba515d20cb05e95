// Package render is the boundary to the external render engine. The engine
// is a separate CLI binary that accepts a JSON render request on stdin and
// streams JSON events on stdout, ending with a result event. The package also
// provides the engine selector that routes a share of traffic to a canary
// binary with automatic fallback to the primary.
package render
