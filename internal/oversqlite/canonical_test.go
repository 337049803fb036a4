package oversqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizePKGo(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want string
	}{
		{"string passthrough", "abc-123", "abc-123"},
		{"string trims whitespace", "  abc  ", "abc"},
		{"blob hex encoded", []byte{0xDE, 0xAD, 0xBE, 0xEF}, "deadbeef"},
		{"integer via toText", float64(42), "42"},
		{"nil", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, canonicalizePKGo(tc.in))
		})
	}
}
