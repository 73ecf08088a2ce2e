package enums

import (
	"fmt"
	"slices"
)

// member looks v up in a closed set and names kind in the error.
func member[T ~string](set []T, kind, v string) (T, error) {
	if i := slices.Index(set, T(v)); i >= 0 {
		return set[i], nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, v)
}
