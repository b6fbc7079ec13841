package painter

import (
	"encoding/json"
	"fmt"
)

// Providers disagree on what a successful edit response looks like.
// The shapes accepted here, in order of precedence:
//
//	{"output": ["<item>", ...]}
//	{"data": [{"b64": "..."} | {"b64_json": "..."} | {"url": "..."} | "<item>", ...]}
//	{"url": "<item>"}
//	[{"b64": ...} | "<item>", ...]
//
// where <item> is an http(s) URL, a data:image URI, or raw base64.
func extractOutputItem(body []byte) (string, error) {
	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("painter: decode response: %w", err)
	}

	switch payload := raw.(type) {
	case map[string]interface{}:
		if list, ok := payload["output"].([]interface{}); ok && len(list) > 0 {
			if item, ok := list[0].(string); ok && item != "" {
				return item, nil
			}
		}
		if list, ok := payload["data"].([]interface{}); ok && len(list) > 0 {
			if item := itemFromEntry(list[0]); item != "" {
				return item, nil
			}
		}
		if url, ok := payload["url"].(string); ok && url != "" {
			return url, nil
		}
	case []interface{}:
		if len(payload) > 0 {
			if item := itemFromEntry(payload[0]); item != "" {
				return item, nil
			}
		}
	}
	return "", ErrMissingOutput
}

// itemFromEntry unpacks a single list entry: either an object keyed by
// b64/b64_json/url, or a bare string.
func itemFromEntry(entry interface{}) string {
	switch v := entry.(type) {
	case map[string]interface{}:
		for _, key := range []string{"b64", "b64_json", "url"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
	case string:
		return v
	}
	return ""
}
