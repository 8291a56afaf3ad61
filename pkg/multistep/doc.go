// Package multistep runs a multi-step form: it keeps one data table per step,
// copies mapped attributes of selected records into sibling fields, and merges
// the tables into a single payload when the final step is submitted.
//
// Renderers drive it with Step, Change and Next; the widgets returned by
// Widgets report their values back into the step they were built for.
package multistep
