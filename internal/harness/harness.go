package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/refresh"
	"github.com/roach88/lexstore/internal/service"
	"github.com/roach88/lexstore/internal/store"
	"github.com/roach88/lexstore/internal/testutil"
)

// Harness executes one scenario.
type Harness struct {
	env    *env
	seq    *refresh.Clock
	logger *slog.Logger
}

// Run executes a scenario against a fresh in-memory store.
//
// Execution flow:
// 1. Seed collections
// 2. Execute setup steps (each must succeed)
// 3. Execute flow steps, checking expect clauses
// 4. Capture the final collections and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st := store.NewMemory()
	defer st.Close()
	return RunWithStore(context.Background(), scenario, st)
}

// RunWithStore executes a scenario against st, which should be empty.
func RunWithStore(ctx context.Context, scenario *Scenario, st store.CollectionStore) (*Result, error) {
	clock := testutil.NewDeterministicClock()
	h := &Harness{
		env: &env{
			store: st,
			svc: service.New(st,
				service.WithIDGenerator(&record.SequentialGenerator{Prefix: "id"}),
				service.WithClock(clock.Now),
			),
		},
		seq:    refresh.NewClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	if err := h.seed(ctx, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed: %w", err)
	}

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	if err := h.captureState(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to capture state: %w", err)
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// seed writes each collection in name order.
func (h *Harness) seed(ctx context.Context, seed map[string][]map[string]any) error {
	names := make([]string, 0, len(seed))
	for name := range seed {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		rows := seed[name]
		if rows == nil {
			rows = []map[string]any{}
		}
		data, err := record.MarshalCanonical(rows)
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		if _, err := h.env.store.Put(ctx, name, data, store.AnyVersion); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		h.logger.Info("collection seeded", "collection", name, "records", len(rows))
	}
	return nil
}

// invoke runs one operation and records it in the trace.
func (h *Harness) invoke(ctx context.Context, op string, args map[string]any, result *Result) (string, any, error) {
	result.AddInvocationTrace(op, args, h.seq.Next())

	fn, ok := operations[op]
	if !ok {
		return "", nil, fmt.Errorf("unknown op %q", op)
	}
	out, opErr := fn(ctx, h.env, Args(args))

	outputCase := errorCase(opErr)
	var (
		payload any
		errMsg  string
	)
	if opErr != nil {
		errMsg = opErr.Error()
	} else {
		var err error
		if payload, err = toJSONValue(out); err != nil {
			return "", nil, fmt.Errorf("op %s: encode result: %w", op, err)
		}
	}
	result.AddCompletionTrace(outputCase, payload, errMsg, h.seq.Next())

	h.logger.Info("step completed", "op", op, "case", outputCase)
	return outputCase, payload, opErr
}

// executeSetup runs setup steps; any failure aborts the scenario.
func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep, result *Result) error {
	for i, step := range setup {
		outputCase, _, err := h.invoke(ctx, step.Op, step.Args, result)
		if err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Op, err)
		}
		if outputCase != CaseOK {
			return fmt.Errorf("setup step %d (%s): case %s", i, step.Op, outputCase)
		}
	}
	return nil
}

// executeFlow runs flow steps. Mismatches are recorded on the result
// rather than returned.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		if _, ok := operations[step.Invoke]; !ok {
			return fmt.Errorf("flow step %d: unknown op %q", i, step.Invoke)
		}
		outputCase, payload, opErr := h.invoke(ctx, step.Invoke, step.Args, result)

		if step.Expect == nil {
			if opErr != nil {
				result.AddError(fmt.Sprintf("flow[%d] %s: unexpected %s: %v", i, step.Invoke, outputCase, opErr))
			}
			continue
		}
		if outputCase != step.Expect.Case {
			detail := ""
			if opErr != nil {
				detail = ": " + opErr.Error()
			}
			result.AddError(fmt.Sprintf("flow[%d] %s: expected case %s, got %s%s",
				i, step.Invoke, step.Expect.Case, outputCase, detail))
			continue
		}
		if len(step.Expect.Result) > 0 {
			if err := matchSubset(payload, step.Expect.Result); err != nil {
				result.AddError(fmt.Sprintf("flow[%d] %s: result %v", i, step.Invoke, err))
			}
		}
	}
	return nil
}

// captureState decodes every collection in the store into result.State.
func (h *Harness) captureState(ctx context.Context, result *Result) error {
	names, err := h.env.store.Names(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		snap, err := h.env.store.Get(ctx, name)
		if err != nil {
			return err
		}
		var rows []any
		if err := json.Unmarshal(snap.Data, &rows); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		if rows == nil {
			rows = []any{}
		}
		result.State[name] = rows
	}
	return nil
}

// toJSONValue converts v to the generic form encoding/json decodes into,
// so results compare equal to YAML expectations.
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
