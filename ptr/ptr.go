package ptr

func Int(i int) *int {
	return &i
}

func String(s string) *string {
	return &s
}

func Float64(f float64) *float64 {
	return &f
}

// Deref returns the value v points to, or fallback when v is nil.
func Deref[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
