package telemetry

import "math"

func slot(raw []any, i int) any {
	if i < 0 || i >= len(raw) {
		return nil
	}
	return raw[i]
}

func floatAt(raw []any, i int) *float64 {
	v, ok := slot(raw, i).(float64)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func intAt(raw []any, i int) *int64 {
	f := floatAt(raw, i)
	if f == nil {
		return nil
	}
	n := int64(*f)
	return &n
}

func stringAt(raw []any, i int) *string {
	v, ok := slot(raw, i).(string)
	if !ok {
		return nil
	}
	return &v
}

func boolAt(raw []any, i int) *bool {
	v, ok := slot(raw, i).(bool)
	if !ok {
		return nil
	}
	return &v
}

// intsAt decodes a JSON number array, skipping entries of other types
func intsAt(raw []any, i int) []int {
	list, ok := slot(raw, i).([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		if v, ok := item.(float64); ok {
			out = append(out, int(v))
		}
	}
	return out
}

func valueOf[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
