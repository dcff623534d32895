// Package warden validates JSON documents against YAML schema definitions.
//
// Warden checks that a document has the shape a schema declares: the right
// types at the right places, required fields present, and every attached
// constraint satisfied. Validation never stops at the first problem; the
// result is a report listing every violation with the exact path where it
// occurred.
//
// # Core Concepts
//
// The module is organized around a small set of concepts:
//
//   - Definitions: YAML descriptions of the expected document shape,
//     compiled into immutable schema trees by the schema package
//   - Documents: JSON values decoded into a typed tree by the document
//     package, preserving key order and the integer/decimal distinction
//   - Reports: the outcome of one validation pass, a list of violations
//     with JSONPath-style locations, produced by the validate package
//   - Registry: named schema storage on etcd with live update watches,
//     provided by the registry package
//   - Queue: Redis-backed job distribution for validating documents on a
//     pool of workers, provided by the queue and worker packages
//
// # Getting Started
//
// The one-call entry point compiles, decodes, and validates together:
//
//	report, err := warden.Verify(definition, doc)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !report.OK() {
//	    fmt.Println(report)
//	}
//
// Callers that validate many documents against one definition should
// compile once and reuse the validator:
//
//	root, err := schema.Parse(definition)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v := validate.New(validate.WithStrictIntegers())
//	for _, doc := range docs {
//	    value, err := document.Decode(doc)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(v.Validate(root, value))
//	}
//
// # Schema Definitions
//
// A definition is a YAML mapping with a top-level Root key. Nodes declare
// their type with +type and attach constraints with further + keys; leaf
// nodes may be written as a bare type name:
//
//	Root:
//	  +type: Object
//	  name:
//	    +type: String
//	    +min_length: 1
//	  age:
//	    +type: Integer
//	    +min: 0
//	  tags:
//	    +type: List
//	    +ValueType: String
//	  active: Bool
//
// A ? suffix on a type name (String?) marks a node nullable. Constraint
// keys accept alternate spellings (+minLength, +MinLength); the schema
// package resolves them to one canonical form.
//
// # Validation Options
//
// The validate package accepts functional options that tighten or relax
// matching:
//
//	v := validate.New(
//	    validate.WithMaxDepth(64),        // recursion limit (default 256)
//	    validate.WithStrictIntegers(),    // reject 2.0 against Integer
//	    validate.WithAllowMissingFields() // absent declared fields allowed
//	)
//
// # Error Handling
//
// Warden distinguishes broken inputs from nonconforming documents. A
// definition that does not compile or a document that is not JSON is an
// error return; a well-formed document that breaks schema rules is a
// report full of violations, not an error:
//
//	report, err := warden.Verify(definition, doc)
//	if errors.Is(err, warden.ErrInvalidDefinition) {
//	    // the definition does not compile; unwrap *schema.ConfigError
//	    // for the schema path and error code
//	}
//	if errors.Is(err, warden.ErrInvalidDocument) {
//	    // the document is not valid JSON
//	}
//
// # Distributed Validation
//
// The worker package runs a validation daemon: it pops jobs from a Redis
// queue, resolves schemas inline or by name from the etcd registry, and
// publishes verdicts back to the submitter. Schemas resolved by name are
// cached compiled and hot-reloaded when the registry reports an update.
// See the worker and queue package documentation for the full protocol.
//
// # Observability
//
// Workers emit OpenTelemetry spans per job and metrics per verdict, and
// log through log/slog with structured attributes. Spans attach to the
// submitter's trace when the job carries trace identifiers.
//
// # Thread Safety
//
// Compiled schema trees are immutable and safe to share. Validators hold
// only matching policy and are safe for concurrent use. Queue and
// registry clients are safe for concurrent use by multiple goroutines.
package warden
