// Package scenario defines the visual-novel data model (scenarios, scenes,
// text blocks, choices, effects) and the store that fetches, schema-checks,
// and caches scenario documents.
//
// Documents are YAML or JSON under the `scenarios/{id}.{ext}` content
// convention. Structure is enforced twice, deliberately: first against the
// embedded CUE schema for positional diagnostics, then by strict typed
// decoding into the closed Go model. A document that survives both can be
// traversed without nil checks.
package scenario
