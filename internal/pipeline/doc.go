// Package pipeline implements the reactive re-render core: one pipeline
// per preview session recomputes the rendered artifact whenever the
// watched source file changes, swaps the new result in atomically, and
// owns the temporary artifact lifecycle until supersession or teardown.
//
// Recomputes are serialized. A change arriving mid-render does not spawn
// a parallel invocation; it flags exactly one follow-up render after the
// current one completes.
package pipeline
