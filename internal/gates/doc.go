// Package gates implements the compliance gate evaluator: seven independent
// quality checks that together decide whether a production may publish, plus
// the artefact precondition check and the flag-driven quality score.
// Evaluation is pure and synchronous; callers supply everything through Input.
package gates
