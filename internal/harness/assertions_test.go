package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Type: "invocation", Op: "register", Args: map[string]any{"email": "ana@example.com", "name": "Ana"}, Seq: 1},
		{Type: "completion", Case: CaseOK, Seq: 2},
		{Type: "invocation", Op: "reconcile", Seq: 3},
		{Type: "completion", Case: CaseOK, Seq: 4},
		{Type: "invocation", Op: "register", Args: map[string]any{"email": "eva@example.com"}, Seq: 5},
		{Type: "completion", Case: CaseValidation, Seq: 6},
	}
}

func sampleState() map[string][]any {
	return map[string][]any{
		"users": {
			map[string]any{"id": "u1", "email": "ana@example.com", "source": "Registro"},
			map[string]any{"id": "u2", "email": "eva@example.com", "source": "Registro"},
			map[string]any{"id": "form_sub_s1", "email": "eva@example.com", "source": "Contacto"},
		},
		"crm": {
			map[string]any{"userId": "u1", "value": float64(0), "tags": []any{"Registro"}},
		},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Op: "register", Args: map[string]any{"name": "Ana"}}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Op: "reconcile"}))

	err := assertTraceContains(trace, Assertion{Op: "register", Args: map[string]any{"name": "Eva"}})
	require.Error(t, err)
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, AssertTraceContains, aerr.Type)
	assert.Contains(t, err.Error(), "[1] register")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Ops: []string{"register", "reconcile"}}))

	err := assertTraceOrder(trace, Assertion{Ops: []string{"reconcile", "register"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertTraceOrder(trace, Assertion{Ops: []string{"register", "check"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing op: check")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Op: "register", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Op: "check", Count: 0}))

	err := assertTraceCount(trace, Assertion{Op: "reconcile", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 invocations")
}

func TestAssertFinalState(t *testing.T) {
	state := sampleState()

	assert.NoError(t, assertFinalState(state, Assertion{
		Collection: "users",
		Where:      map[string]any{"id": "u1"},
		Expect:     map[string]any{"source": "Registro"},
	}))
	assert.NoError(t, assertFinalState(state, Assertion{
		Collection: "crm",
		Where:      map[string]any{"userId": "u1"},
		Expect:     map[string]any{"value": 0, "tags": []any{"Registro"}},
	}), "YAML integers equal JSON numbers")

	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{"not found", Assertion{Collection: "users", Where: map[string]any{"id": "zz"}, Expect: map[string]any{"id": "zz"}}, "record not found"},
		{"ambiguous", Assertion{Collection: "users", Where: map[string]any{"email": "eva@example.com"}, Expect: map[string]any{"source": "Registro"}}, "2 records matched"},
		{"mismatch", Assertion{Collection: "users", Where: map[string]any{"id": "u1"}, Expect: map[string]any{"source": "Contacto"}}, `field "source"`},
		{"missing field", Assertion{Collection: "users", Where: map[string]any{"id": "u1"}, Expect: map[string]any{"avatar": "x"}}, `field "avatar" missing`},
		{"absent collection", Assertion{Collection: "orders", Expect: map[string]any{"id": "o1"}}, "record not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertFinalState(state, tt.assertion)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAssertRecordCount(t *testing.T) {
	state := sampleState()

	assert.NoError(t, assertRecordCount(state, Assertion{Collection: "users", Count: 3}))
	assert.NoError(t, assertRecordCount(state, Assertion{Collection: "users", Where: map[string]any{"source": "Registro"}, Count: 2}))
	assert.NoError(t, assertRecordCount(state, Assertion{Collection: "orders", Count: 0}))

	err := assertRecordCount(state, Assertion{Collection: "crm", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 records")
}

func TestMatchSubset_Nested(t *testing.T) {
	actual := map[string]any{
		"user":    map[string]any{"id": "u1", "name": "Ana"},
		"outcome": "inserted",
	}

	assert.NoError(t, matchSubset(actual, map[string]any{"user": map[string]any{"id": "u1"}}))
	assert.Error(t, matchSubset(actual, map[string]any{"user": map[string]any{"id": "u2"}}))
	assert.Error(t, matchSubset("text", map[string]any{"a": 1}))
	assert.NoError(t, matchSubset(nil, nil))
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()
	result.State = sampleState()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Op: "register", Count: 2},
		{Type: AssertRecordCount, Collection: "crm", Count: 5},
		{Type: "bogus"},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "record_count")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)
}
