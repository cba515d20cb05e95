// Package production defines the video production lifecycle model, the
// execution log, and their SQLite persistence. Productions carry the
// governance artefacts (claim table, evidence pack, disclaimer plan,
// approval record) the gate evaluator consumes; execution logs record one
// row per pipeline attempt and are mutated only by the executor.
package production
