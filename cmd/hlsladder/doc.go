// Package main hosts the hlsladder CLI entrypoint and command graph.
//
// Commands resolve configuration once, build the structured logger, and hand
// off to the internal pipeline, publish, and ledger packages. Keep this
// package thin: add behavior to the internal packages first, then surface it
// through a command or flag here.
package main
