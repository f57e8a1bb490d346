package generator

import "unicode"

// EstimateTokens provides a rough token estimate.
// Han characters count ~2 chars/token, everything else ~4 chars/token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	var han, other int
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			han++
			continue
		}
		other++
	}
	return (han+1)/2 + (other+3)/4
}
