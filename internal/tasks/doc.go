// package tasks implements the translation task orchestrator.
//
// The core abstraction is Orchestrator, which owns the task state machine and
// reconciles worker status reports arriving through two channels: push
// callbacks received by the HTTP layer and a periodic sweep that polls the
// worker for every non-terminal task. Both channels funnel into the same
// Reconcile rule, so duplicate or reordered deliveries converge on the same
// state. The orchestrator also drives the confirmation workflow, the
// translation cache, and the artifact package/upload/cleanup lifecycle on
// terminal transitions.
package tasks
