// Package validate matches decoded JSON documents against schema trees and
// reports every violation.
//
// Validation is a parallel recursive walk of the schema tree and the value
// tree. It never stops at the first problem: each broken rule becomes one
// Violation carrying the path where it occurred, a kind, and a detail line.
// A value whose runtime type contradicts its node's declared kind yields a
// single type_mismatch and the walk does not descend further there.
//
// Reports are deterministic. Object fields are visited in schema declaration
// order, list elements by index, and map entries in document order, so equal
// inputs always produce equal reports. A Validator holds only matching
// policy and is safe for concurrent use.
//
//	root, err := schema.Parse(definition)
//	if err != nil {
//		log.Fatal(err) // configuration error, reported before any data
//	}
//	doc, err := document.Decode(data)
//	if err != nil {
//		log.Fatal(err)
//	}
//	report := validate.Document(root, doc)
//	if !report.OK() {
//		fmt.Println(report)
//	}
package validate
