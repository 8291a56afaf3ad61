// Package model defines the internal form model edited by the form builder:
// a FormSchema owns either a flat list of FormField values or an ordered list
// of FormStep pages. The model is canonical in memory; JSON Schema is only a
// wire/export format produced and parsed by the convert package.
//
// Fields may reference an ExternalDataSource twice: directly, to populate
// select options, and under Validation, to delegate validation to a remote
// endpoint. Both serialise verbatim under the x-externalSource and
// x-validation.externalSource extension keys.
package model
