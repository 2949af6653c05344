package signing

// Payload is the structured content of a token. Values must be JSON
// serializable. After redemption integers are int64 and floats float64;
// floats inside structs lose that distinction when integral.
type Payload map[string]any

// Int64 returns the integer stored under key.
func (p Payload) Int64(key string) (int64, bool) {
	switch v := p[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	default:
		return 0, false
	}
}

// String returns the string stored under key.
func (p Payload) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}
