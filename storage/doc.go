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


// Package storage provides the storage abstraction layer for facetflow.
//
// This package defines repository interfaces that decouple document storage
// from query execution. The search package only depends on these interfaces,
// so alternative backends can be swapped in without touching it.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - Repository: common transaction and lifecycle operations
//   - DocumentRepository: per-index document storage and scanning
//   - IndexRepository: index descriptions (document counts, update time)
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	docs, indices, backend, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Serialization
//
// Documents and index descriptions are stored in the MUS binary format using
// the serializers defined in core.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
