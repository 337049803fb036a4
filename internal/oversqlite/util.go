package oversqlite

import "fmt"

// toText renders an arbitrary scalar (as decoded from JSON: float64, bool,
// nil, or string) into the textual form canonicalizePKGo expects.
func toText(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
