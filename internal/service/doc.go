// Package service implements the multi-collection flows: registration, form
// submission and import, CRM reconciliation, lesson completion, and order and
// purchase recording.
//
// # Cross-collection writes
//
// There are no transactions across collections. Flows that touch two
// collections write the primary one (users, purchases) first and the
// dependent one (crm, course_progress) only after the primary write
// succeeded. If the dependent write then fails, the flow logs
// "crm write failed after user write" (or the equivalent for its
// collections) at error level and returns *PartialWriteError. Reconcile
// repairs the CRM side and is safe to run at any time.
//
// # Natural keys
//
// Registration dedups on normalized email among Registro users. Submission
// import dedups on the submission id, so one person submitting twice yields
// two users. That policy is deliberate; see upsert.SubmissionUserKey.
package service
