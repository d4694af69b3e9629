// Package harness runs YAML scenarios against the lexstore flows.
//
// Each scenario starts from an empty in-memory store with deterministic ids
// ("id-1", "id-2", ...) and a deterministic clock, seeds collections,
// invokes operations and then checks the trace and the final collections.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	seed:
//	  forms:
//	    - { id: contacto, name: Contacto, fields: [...] }
//	setup:
//	  - op: seed_default_forms
//	flow:
//	  - invoke: register
//	    args: { name: Ana, email: ana@example.com }
//	    expect:
//	      case: ok
//	      result: { outcome: inserted }
//	assertions:
//	  - type: trace_count
//	    op: register
//	    count: 1
//	  - type: final_state
//	    collection: users
//	    where: { email: ana@example.com }
//	    expect: { source: Registro }
//	  - type: record_count
//	    collection: crm
//	    count: 1
//
// # Cases
//
// Every completion carries a case: "ok" on success, otherwise one of
// "validation", "not_found", "partial_write", "conflict" or "error".
//
// # Golden Files
//
// RunWithGolden snapshots the trace and final collections as canonical JSON
// under testdata/golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
