// Package watch polls a single source file's modification timestamp and
// emits a change notification when it advances.
package watch
