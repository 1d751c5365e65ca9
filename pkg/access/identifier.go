package access

import (
	"fmt"
	"strings"
)

// delimiter separates resource from action in a canonical identifier.
const delimiter = ":"

// wordJoiner joins the words of a multi-word resource or action. Legacy data
// mixed hyphens and underscores ("business-units" next to "business_units"),
// which produced duplicate permission rows for the same capability; every
// write path funnels through Normalize so the catalog can no longer diverge.
const wordJoiner = "_"

// NormalizeResource canonicalizes a resource name: lowercase, with runs of
// spaces, hyphens and underscores collapsed to a single underscore. A
// resource containing the ":" delimiter is rejected as ambiguous.
func NormalizeResource(resource string) (string, error) {
	return normalizePart("resource", resource)
}

// NormalizeAction canonicalizes an action name under the same rules as
// NormalizeResource.
func NormalizeAction(action string) (string, error) {
	return normalizePart("action", action)
}

// Normalize returns the canonical "resource:action" identifier. It is pure
// and total for non-empty inputs; empty or delimiter-only inputs return
// ErrInvalidIdentifier.
func Normalize(resource, action string) (string, error) {
	r, err := NormalizeResource(resource)
	if err != nil {
		return "", err
	}
	a, err := NormalizeAction(action)
	if err != nil {
		return "", err
	}
	return r + delimiter + a, nil
}

func normalizePart(kind, value string) (string, error) {
	if strings.Contains(value, delimiter) {
		return "", fmt.Errorf("%w: %s %q contains %q", ErrInvalidIdentifier, kind, value, delimiter)
	}
	words := strings.FieldsFunc(strings.ToLower(value), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '-' || r == '_'
	})
	if len(words) == 0 {
		return "", fmt.Errorf("%w: empty %s", ErrInvalidIdentifier, kind)
	}
	return strings.Join(words, wordJoiner), nil
}
