package sensitive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsSSN(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"hyphenated", "123-45-6789", true},
		{"unhyphenated inside sentence", "my number is 219556789 ok", true},
		{"single hyphen", "id 123-456789 here", true},
		{"area 000", "000-45-6789", false},
		{"area 666", "666-45-6789", false},
		{"area 9xx", "912-45-6789", false},
		{"group 00", "123-00-6789", false},
		{"serial 0000", "123-45-0000", false},
		{"too long", "1234567890", false},
		{"glued to letters", "abc123456789", false},
		{"trailing letters", "123456789abc", false},
		{"no digits", "what is the meaning of pizza?", false},
		{"valid after invalid", "000-45-6789 and 123-45-6789", true},
		{"phone number", "call 555-1234", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ContainsSSN(tc.in))
		})
	}
}

func TestFilterCheck(t *testing.T) {
	var f Filter
	assert.True(t, f.Check("ssn: 123-45-6789"))
	assert.False(t, f.Check("hello there"))
}
