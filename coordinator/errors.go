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


package coordinator

import "errors"

var (
	// ErrClientRequired is returned when a search client is not provided.
	ErrClientRequired = errors.New("search client required")

	// ErrIndexNameRequired is returned when the primary index name is empty.
	ErrIndexNameRequired = errors.New("index name required")

	// ErrStopped is returned by operations on a stopped coordinator.
	ErrStopped = errors.New("coordinator stopped")

	// ErrIncompleteResponse is reported when a client answers a batch with
	// fewer payloads than requests, or with nil payloads.
	ErrIncompleteResponse = errors.New("incomplete search response")
)
