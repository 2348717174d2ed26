package logging

// Extra keys are typed on the way in and flattened here once, keeping the
// zap and zerolog backends symmetric.

func zapFields(extra map[ExtraKey]any) []any {
	fields := make([]any, 0, len(extra)*2)
	for k, v := range extra {
		fields = append(fields, string(k), v)
	}
	return fields
}

func zeroFields(extra map[ExtraKey]any) map[string]any {
	fields := make(map[string]any, len(extra))
	for k, v := range extra {
		fields[string(k)] = v
	}
	return fields
}
