// Package reactive provides the minimal reactive primitive used by the
// preview pipeline: a Signal[T] value cell with an explicit subscriber
// list. Subscribers are notified after every committed value change;
// reading never observes a half-written value.
package reactive
