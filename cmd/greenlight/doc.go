// Command greenlight is the CLI for the governance-gated video production
// pipeline: it runs the execution worker, enqueues and inspects executions,
// evaluates gates, and generates derivative productions.
package main
