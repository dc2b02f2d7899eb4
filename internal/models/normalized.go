package models

// Normalized carries a value built from untrusted model output along with the
// names of the fields that were replaced by defaults.
type Normalized[T any] struct {
	Value     T
	Defaulted []string
}

// Clean reports whether every field came from the source unchanged.
func (n Normalized[T]) Clean() bool {
	return len(n.Defaulted) == 0
}

// MarkDefault records that field fell back to its default.
func (n *Normalized[T]) MarkDefault(field string) {
	n.Defaulted = append(n.Defaulted, field)
}
