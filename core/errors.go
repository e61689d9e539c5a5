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


package core

import (
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyDocumentID indicates the document ID is empty after id assignment.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")

	// ErrEmptyDocument indicates a document carries no fields, facets or numbers.
	ErrEmptyDocument = errors.New("document has no attributes")

	// ErrEmptyIndexName indicates an index name is empty.
	ErrEmptyIndexName = errors.New("index name cannot be empty")

	// ErrInvalidIndexName indicates an index name contains reserved characters.
	ErrInvalidIndexName = errors.New("invalid index name")

	// ErrInvalidOperator indicates an unsupported numeric refinement operator.
	ErrInvalidOperator = errors.New("invalid numeric operator")

	// ErrInvalidAttribute indicates an empty or malformed attribute name.
	ErrInvalidAttribute = errors.New("invalid attribute name")
)

// DeferredError carries an error raised while a successful asynchronous
// response was being applied. It is reported outside of the update cycle that
// produced it so the failure stays visible.
type DeferredError struct {
	// Op names the operation whose response was being applied.
	Op  string
	Err error
}

func (e *DeferredError) Error() string {
	return fmt.Sprintf("deferred error applying %s response: %v", e.Op, e.Err)
}

func (e *DeferredError) Unwrap() error {
	return e.Err
}
