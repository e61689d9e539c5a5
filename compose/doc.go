// Package compose folds widget contributions into query parameters.
//
// Compose partitions the mounted widgets by the index they target:
//   - shared: widgets with no target, folded over the baseline
//   - main: widgets targeting the primary index, folded over the shared result
//   - derived: every other target, one group per index, folded over the shared result
//
// Folds follow registration order, so identical inputs always produce
// identical parameters. Widgets without a GetSearchParameters slot take no part.
package compose
