// Package sensitive detects sensitive data in free-text prompts before they
// are forwarded to the generation service.
package sensitive

import "regexp"

// ssnShape matches the 3-2-4 digit layout with optional hyphens. RE2 has no
// lookahead, so the excluded area/group/serial values are checked afterwards.
var ssnShape = regexp.MustCompile(`\b(\d{3})-?(\d{2})-?(\d{4})\b`)

// ContainsSSN reports whether text contains a substring shaped like a U.S.
// Social Security Number. Area numbers 000, 666 and 9xx, group 00 and serial
// 0000 are never issued and do not count.
func ContainsSSN(text string) bool {
	for _, m := range ssnShape.FindAllStringSubmatch(text, -1) {
		if validSSN(m[1], m[2], m[3]) {
			return true
		}
	}
	return false
}

func validSSN(area, group, serial string) bool {
	switch {
	case area == "000", area == "666", area[0] == '9':
		return false
	case group == "00":
		return false
	case serial == "0000":
		return false
	}
	return true
}

// Filter adapts ContainsSSN for callers that take a detector.
type Filter struct{}

// Check reports whether the prompt must be rejected.
func (Filter) Check(prompt string) bool {
	return ContainsSSN(prompt)
}
