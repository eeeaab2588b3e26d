package enums

import (
	"fmt"
	"slices"
)

// values is the closed list of members behind one enum type.
type values[T ~string] []T

func (v values[T]) has(x T) bool { return slices.Contains(v, x) }

// parse matches raw exactly; label names the type in the error.
func (v values[T]) parse(raw, label string) (T, error) {
	if x := T(raw); v.has(x) {
		return x, nil
	}
	return "", fmt.Errorf("invalid %s %q", label, raw)
}
