package session

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParsePlan decodes a JSON or YAML list of steps. Both the flat form
// {"op": "search", "iterations": 200} and the keyed form
// {"search": {"iterations": 200}} are accepted, as is a document wrapping
// the list in a "trace" field.
func ParsePlan(data []byte) ([]Op, error) {
	var doc any
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: decode plan: %v", ErrInvalidOperation, err)
		}
	} else if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode plan: %v", ErrInvalidOperation, err)
	}

	if wrapper, ok := doc.(map[string]any); ok {
		doc = wrapper["trace"]
	}
	list, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: plan must be a list of steps", ErrInvalidOperation)
	}

	steps := make([]map[string]any, len(list))
	for i, item := range list {
		step, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: step %d: expected an object, got %T", ErrInvalidOperation, i, item)
		}
		steps[i] = step
	}
	return ParseSteps(steps)
}

// ParseSteps converts decoded step objects into operations.
func ParseSteps(steps []map[string]any) ([]Op, error) {
	ops := make([]Op, 0, len(steps))
	for i, step := range steps {
		op, err := parseStep(step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func parseStep(step map[string]any) (Op, error) {
	kind, params, err := splitStep(step)
	if err != nil {
		return nil, err
	}

	var op Op
	switch kind {
	case KindInitSearch:
		op, err = parseInitSearch(params)
	case KindSearch:
		op, err = decodeInto[Search](params)
	case KindApply:
		op, err = decodeInto[Apply](params)
	case KindEvaluate:
		op, err = decodeInto[Evaluate](params)
	case KindQuery:
		op, err = decodeInto[Query](params)
	default:
		return nil, fmt.Errorf("%w: unknown op %q", ErrInvalidOperation, kind)
	}
	if err != nil {
		return nil, err
	}
	if err := validateOp(op); err != nil {
		return nil, err
	}
	return op, nil
}

// splitStep separates the op name from its parameters.
func splitStep(step map[string]any) (string, map[string]any, error) {
	if raw, ok := step["op"]; ok {
		kind, ok := raw.(string)
		if !ok {
			return "", nil, fmt.Errorf("%w: op must be a string, got %T", ErrInvalidOperation, raw)
		}
		params := maps.Clone(step)
		delete(params, "op")
		return kind, params, nil
	}

	if len(step) != 1 {
		keys := slices.Sorted(maps.Keys(step))
		return "", nil, fmt.Errorf("%w: step needs an op field or a single key, got %v", ErrInvalidOperation, keys)
	}
	for kind, body := range step {
		switch body := body.(type) {
		case map[string]any:
			return kind, body, nil
		case nil:
			return kind, map[string]any{}, nil
		default:
			return kind, shorthand(kind, body), nil
		}
	}
	panic("unreachable")
}

// shorthand expands scalar step bodies such as {"query": "a"} or {"apply": 3}.
func shorthand(kind string, body any) map[string]any {
	switch kind {
	case KindInitSearch:
		return map[string]any{"env": body}
	case KindApply:
		return map[string]any{"action": body}
	case KindSearch, KindEvaluate, KindQuery:
		return map[string]any{"var": body}
	}
	return map[string]any{}
}

// parseInitSearch folds every key besides env into the factory parameters.
func parseInitSearch(params map[string]any) (Op, error) {
	op := InitSearch{Params: map[string]any{}}
	for key, value := range params {
		switch key {
		case "env":
			name, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: init_search env must be a string, got %T", ErrInvalidOperation, value)
			}
			op.Env = name
		case "params":
			nested, ok := value.(map[string]any)
			if !ok && value != nil {
				return nil, fmt.Errorf("%w: init_search params must be an object, got %T", ErrInvalidOperation, value)
			}
			maps.Copy(op.Params, nested)
		default:
			op.Params[key] = value
		}
	}
	return op, nil
}

func decodeInto[T Op](params map[string]any) (Op, error) {
	var op T
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidOperation, op.Kind(), err)
	}
	if err := json.Unmarshal(data, &op); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidOperation, op.Kind(), err)
	}
	return op, nil
}

// Steps encodes ops in the flat form accepted by ParsePlan.
func Steps(ops []Op) ([]map[string]any, error) {
	steps := make([]map[string]any, 0, len(ops))
	for _, op := range ops {
		data, err := json.Marshal(op)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", op.Kind(), err)
		}
		step := map[string]any{}
		if err := json.Unmarshal(data, &step); err != nil {
			return nil, fmt.Errorf("encode %s: %w", op.Kind(), err)
		}
		step["op"] = op.Kind()
		steps = append(steps, step)
	}
	return steps, nil
}

// MarshalPlan encodes ops as a JSON plan.
func MarshalPlan(ops []Op) ([]byte, error) {
	steps, err := Steps(ops)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(steps, "", "  ")
}
