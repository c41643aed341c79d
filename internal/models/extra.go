package models

import "encoding/json"

// captureUnknown returns the fields in data that did not bind to any field
// of the already-decoded value v. The returned map is nil when every field
// was recognized.
func captureUnknown(data []byte, v any) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	known, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var knownKeys map[string]json.RawMessage
	if err := json.Unmarshal(known, &knownKeys); err != nil {
		return nil, err
	}

	for k := range knownKeys {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// mergeUnknown marshals v and overlays the retained unknown fields. Known
// fields always win on key collisions.
func mergeUnknown(v any, extra map[string]json.RawMessage) ([]byte, error) {
	known, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return known, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(known, &doc); err != nil {
		return nil, err
	}
	for k, val := range extra {
		if _, ok := doc[k]; !ok {
			doc[k] = val
		}
	}
	return json.Marshal(doc)
}
