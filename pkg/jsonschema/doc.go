// Package jsonschema holds the wire representation of form documents: flat
// object schemas whose properties may carry the x-externalSource and
// x-validation.externalSource extensions, and the multi-step envelope
// {isMultiStep, steps:[{id, title, schema}]}.
//
// Parsing preserves property order (gjson walks the raw bytes) and encoding
// writes properties in slice order, so a document survives a round trip with
// its field order intact. Shape violations are reported as *MalformedError
// values carrying a JSON pointer.
package jsonschema
