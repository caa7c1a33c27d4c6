// Package engine implements the narrative traversal state machine over a
// loaded scenario graph: current scene, text-block cursor, variables,
// flags, and visit history.
//
// The engine is synchronous and event-driven. Every operation runs to
// completion; the only suspension points are the scenario fetch inside
// Load (and cross-scenario advances) and the deferred commit of a passive
// scene transition, which lands behind a Scheduler timer. Operation
// failures never leave partial mutations behind.
package engine
