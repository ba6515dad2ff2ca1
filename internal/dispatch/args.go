package dispatch

// Args holds validated call arguments. Values have already been coerced
// to their declared kinds: strings, int64, float64, bool, nested Args and
// []any. Optional parameters the caller omitted hold their defaults.
type Args map[string]any

func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

func (a Args) Int(name string) int {
	switch v := a[name].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func (a Args) Float(name string) float64 {
	switch v := a[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Object returns a nested object argument, or an empty Args.
func (a Args) Object(name string) Args {
	switch v := a[name].(type) {
	case Args:
		return v
	case map[string]any:
		return Args(v)
	}
	return Args{}
}

// Strings returns a string-array argument.
func (a Args) Strings(name string) []string {
	switch v := a[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
