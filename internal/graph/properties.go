package graph

// Properties exposes the named properties of a relationship.
type Properties interface {
	// Float returns the numeric value stored under key. ok is false when the
	// property is absent; err is an *InvalidPropertyError when it is present
	// but not numeric.
	Float(key string) (value float64, ok bool, err error)
}

// PropertyMap is the map-backed Properties used by the bundled sources.
type PropertyMap map[string]any

// Float implements Properties.
func (m PropertyMap) Float(key string) (float64, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case float32:
		return float64(n), true, nil
	case int:
		return float64(n), true, nil
	case int8:
		return float64(n), true, nil
	case int16:
		return float64(n), true, nil
	case int32:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case uint:
		return float64(n), true, nil
	case uint8:
		return float64(n), true, nil
	case uint16:
		return float64(n), true, nil
	case uint32:
		return float64(n), true, nil
	case uint64:
		return float64(n), true, nil
	default:
		return 0, true, &InvalidPropertyError{Key: key, Value: v}
	}
}
