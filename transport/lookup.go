package transport

// Lookup walks nested JSON objects and returns the value at path.
// It returns false when any segment is missing or not an object.
func Lookup(data map[string]any, path ...string) (any, bool) {
	var current any = data
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok || obj == nil {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// LookupString returns the non-empty string at path.
func LookupString(data map[string]any, path ...string) (string, bool) {
	v, ok := Lookup(data, path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// LookupObject returns the JSON object at path.
func LookupObject(data map[string]any, path ...string) (map[string]any, bool) {
	v, ok := Lookup(data, path...)
	if !ok {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	if !ok || obj == nil {
		return nil, false
	}
	return obj, true
}
