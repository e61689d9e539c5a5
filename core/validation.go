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
	"fmt"
	"strings"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - At least one field, facet or number must be present
//   - Attribute names must not be empty or contain separators
//
// NOT validated:
//   - Field contents (empty strings are legal values)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyDocumentID)
	}

	if len(doc.Fields) == 0 && len(doc.Facets) == 0 && len(doc.Numbers) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyDocument)
	}

	for name := range doc.Fields {
		if err := ValidateAttribute(name); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	}
	for name := range doc.Facets {
		if err := ValidateAttribute(name); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	}
	for name := range doc.Numbers {
		if err := ValidateAttribute(name); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	}

	return nil
}

// ValidateIndexName checks that an index name is usable as a storage key segment.
func ValidateIndexName(name string) error {
	if name == "" {
		return ErrEmptyIndexName
	}
	if strings.ContainsAny(name, ":\x00") {
		return fmt.Errorf("%w: %q contains a reserved character", ErrInvalidIndexName, name)
	}
	return nil
}

// ValidateAttribute checks an attribute name.
func ValidateAttribute(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAttribute)
	}
	if strings.ContainsRune(name, '\x00') {
		return fmt.Errorf("%w: %q", ErrInvalidAttribute, name)
	}
	return nil
}

// ValidateNumericOperator validates that op is a supported comparison.
func ValidateNumericOperator(op NumericOperator) error {
	switch op {
	case OpLess, OpLessOrEqual, OpEqual, OpNotEqual, OpGreaterOrEqual, OpGreater:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidOperator, string(op))
}

// ValidateSearchParameters checks the refinements carried by p.
func ValidateSearchParameters(p SearchParameters) error {
	if err := ValidateIndexName(p.Index); err != nil {
		return err
	}
	for _, r := range p.NumericRefinements {
		if err := ValidateNumericOperator(r.Operator); err != nil {
			return err
		}
		if err := ValidateAttribute(r.Attribute); err != nil {
			return err
		}
	}
	return nil
}
