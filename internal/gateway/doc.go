// Package gateway is the single entry point through which requests mutate a
// queue.
//
// For every Request the Gateway resolves the channel context, checks the
// request shape, validates the anti-forgery token and only then touches the
// store. Indices sent by a client are never trusted: the store checks them
// against the queue length it holds under its lock, so a reorder computed
// against an older view fails with queue.OutOfRangeError instead of moving
// the wrong entry.
//
// Control operations (bot-join, bot-leave, pause, resume, skip) are handed
// to the media.Controller; bot-leave also resets the queue.
package gateway
