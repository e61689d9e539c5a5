// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package search executes composed queries.
//
// Client is the backend seam the coordinator talks to. Searcher implements it
// locally over a storage.DocumentRepository:
//   - Text matching: every query word (stop words removed) must prefix a word of some field
//   - Conjunctive refinements require every value, disjunctive refinements any value
//   - Disjunctive facet counts and statistics ignore the facet's own refinements
//   - Results are paginated, highlighted and cached by parameter fingerprint
//
// A batch of queries runs concurrently on a worker pool. Relevance ranking is
// not attempted: hits come back in document id order.
package search
