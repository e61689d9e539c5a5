// Package core holds the domain types shared by every facetflow package:
// composed search parameters, widgets and their search state, metadata,
// result payloads and stored documents.
//
// Types here carry no behavior beyond pure transformations. SearchParameters
// in particular is an immutable value: setters return new values, which keeps
// parameter folds deterministic and safe to share across goroutines.
package core
