// Package widget holds the set of mounted widgets and a few stock connectors.
//
// Registry keeps widgets in registration order, which is the order composition
// folds them in. Any membership change, or an explicit Update after a widget's
// props changed, invokes the registered update handler.
//
// The connectors (SearchBox, RefinementList, Range, Pagination, HitsPerPage,
// Configure) build *core.Widget values whose state lives in a core.SearchState
// under the widget id. Scope mounts widgets against a non-primary index.
package widget
