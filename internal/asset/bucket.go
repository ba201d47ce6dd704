package asset

import (
	"slices"
	"strings"

	"github.com/assetvault/service/internal/apperr"
)

// BucketPolicy decides which bucket an upload lands in. An empty Allowed
// list accepts any requested bucket; an empty Default means there is no
// fallback.
type BucketPolicy struct {
	Allowed []string
	Default string
}

// Resolve applies the policy to the requested bucket. It is pure and runs
// before any external call.
func (p BucketPolicy) Resolve(requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		if p.Default == "" {
			return "", &apperr.Policy{Message: "no bucket provided and no default configured"}
		}
		return p.Default, nil
	}

	if len(p.Allowed) == 0 || slices.Contains(p.Allowed, requested) {
		return requested, nil
	}
	if p.Default != "" {
		return p.Default, nil
	}
	return "", &apperr.Policy{Message: "unsupported bucket: " + requested}
}
