// Package render wraps the external document compiler. The Invoker owns
// path bookkeeping for each invocation: temporary output destinations,
// the forced non-self-contained and reactive-runtime options, and the
// deterministic sibling asset directory convention.
package render
