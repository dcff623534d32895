package schema

// Canonical constraint names. Definition files spell constraints with a +
// prefix and, for some constraints, several case variants; all spellings
// normalize to these canonical names before the builder interprets them.
const (
	ConstraintType      = "type"
	ConstraintRegex     = "regex"
	ConstraintMinLength = "min_length"
	ConstraintMaxLength = "max_length"
	ConstraintMin       = "min"
	ConstraintMax       = "max"
	ConstraintEnum      = "enum"
	ConstraintExpr      = "expr"
	ConstraintKeyType   = "key_type"
	ConstraintValueType = "value_type"
)

// aliases maps every accepted spelling of a reserved key to its canonical
// name. The set is fixed; spellings outside it are configuration errors.
var aliases = map[string]string{
	"+type": ConstraintType,

	"+regex": ConstraintRegex,
	"+Regex": ConstraintRegex,

	"+MinLength":  ConstraintMinLength,
	"+minLength":  ConstraintMinLength,
	"+min_length": ConstraintMinLength,

	"+MaxLength":  ConstraintMaxLength,
	"+maxLength":  ConstraintMaxLength,
	"+max_length": ConstraintMaxLength,

	"+min": ConstraintMin,
	"+max": ConstraintMax,

	"+enum": ConstraintEnum,
	"+expr": ConstraintExpr,

	"+KeyType":   ConstraintKeyType,
	"+ValueType": ConstraintValueType,
}

// ResolveAlias returns the canonical constraint name for a reserved key
// spelling, or false when the spelling is not part of the reserved set.
func ResolveAlias(key string) (string, bool) {
	canon, ok := aliases[key]
	return canon, ok
}

// kindConstraints lists the canonical constraints each kind accepts. A
// reserved key resolving to a constraint outside its node's set is an
// UNKNOWN_CONSTRAINT configuration error.
var kindConstraints = map[Kind]map[string]bool{
	KindObject: {
		ConstraintType: true,
	},
	KindString: {
		ConstraintType:      true,
		ConstraintRegex:     true,
		ConstraintMinLength: true,
		ConstraintMaxLength: true,
		ConstraintEnum:      true,
		ConstraintExpr:      true,
	},
	KindInteger: {
		ConstraintType: true,
		ConstraintMin:  true,
		ConstraintMax:  true,
		ConstraintExpr: true,
	},
	KindDecimal: {
		ConstraintType: true,
		ConstraintMin:  true,
		ConstraintMax:  true,
		ConstraintExpr: true,
	},
	KindBool: {
		ConstraintType: true,
		ConstraintExpr: true,
	},
	KindDate: {
		ConstraintType: true,
	},
	KindMap: {
		ConstraintType:      true,
		ConstraintKeyType:   true,
		ConstraintValueType: true,
	},
	KindList: {
		ConstraintType:      true,
		ConstraintValueType: true,
	},
}
