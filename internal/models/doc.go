// package models defines the data model for the mod translation service.
//
// Entities are persisted through implementations of [Repository] in the
// repositories package. The task lifecycle is driven by the orchestrator in
// the tasks package; models only enforce local invariants via Validate.
package models
