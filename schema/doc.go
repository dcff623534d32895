// Package schema defines the validation schema model and builds schema trees
// from YAML definitions.
//
// A schema is a tree of typed nodes. Object nodes hold ordered named fields,
// List and Map nodes hold child schemas for their elements and values, and
// the scalar kinds (String, Integer, Decimal, Bool, Date) carry optional
// constraints: length bounds, numeric bounds, full-string patterns, value
// enumerations, and CEL predicates.
//
// # Definition Format
//
// Definitions are YAML mappings rooted at a Root key. Each node is a mapping
// with a +type discriminator, or a bare type name for leaf kinds:
//
//	Root:
//	  +type: Object
//	  name:
//	    +type: String
//	    +MaxLength: 64
//	  age: Integer
//	  tags:
//	    +type: List
//	    +ValueType: String
//	  scores:
//	    +type: Map
//	    +KeyType: Integer
//	    +ValueType: Decimal
//
// A ? suffix marks a node nullable (String?). Constraint keys accept a fixed
// set of spellings (+MaxLength, +maxLength, +max_length) that normalize to
// one canonical constraint; unknown keys and duplicated constraints are
// configuration errors, reported with the schema path and a stable code
// before any document is validated.
//
// # Programmatic Construction
//
// Builder functions mirror the definition format:
//
//	node := schema.Object(
//		schema.Field{Name: "name", Node: schema.String().WithMaxLength(64)},
//		schema.Field{Name: "age", Node: schema.Integer().WithMin(0)},
//	)
//	if err := node.Check(); err != nil {
//		log.Fatal(err)
//	}
//
// Trees returned by Parse are checked during construction; Check exists for
// trees assembled by hand.
package schema
