package validate

// Kind classifies a violation.
type Kind string

// Violation kinds.
const (
	// KindTypeMismatch: the value's runtime type is incompatible with the
	// node's declared kind. The walk does not descend into mistyped values.
	KindTypeMismatch Kind = "type_mismatch"

	// KindMissingField: an Object field declared by the schema is absent
	// from the document.
	KindMissingField Kind = "missing_field"

	// KindConstraintFailed: the value has the right type but breaks a
	// constraint (length, bounds, pattern, enum, date format, expression).
	KindConstraintFailed Kind = "constraint_failed"

	// KindKeyTypeMismatch: a map key does not convert to the declared key
	// type.
	KindKeyTypeMismatch Kind = "key_type_mismatch"

	// KindNullDisallowed: a null value where the node is not nullable.
	KindNullDisallowed Kind = "null_disallowed"

	// KindDepthExceeded: the walk hit the configured depth limit.
	KindDepthExceeded Kind = "depth_exceeded"
)

// IsValid reports whether k is a known violation kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindTypeMismatch, KindMissingField, KindConstraintFailed,
		KindKeyTypeMismatch, KindNullDisallowed, KindDepthExceeded:
		return true
	}
	return false
}

// String returns the kind identifier.
func (k Kind) String() string {
	return string(k)
}

// AllKinds returns every violation kind.
func AllKinds() []Kind {
	return []Kind{
		KindTypeMismatch,
		KindMissingField,
		KindConstraintFailed,
		KindKeyTypeMismatch,
		KindNullDisallowed,
		KindDepthExceeded,
	}
}
