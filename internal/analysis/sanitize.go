package analysis

import "strings"

// CleanResponse strips markdown code-fence wrapping from a model reply so
// the remainder parses as JSON: a leading ```json or ``` marker, a trailing
// ```, then surrounding whitespace. Pure and idempotent. Fences embedded
// inside the payload itself are out of scope; such replies may still fail
// to parse downstream.
func CleanResponse(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	if strings.HasSuffix(text, "```") {
		text = text[:len(text)-len("```")]
	}
	return strings.TrimSpace(text)
}
