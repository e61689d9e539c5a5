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


package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/facetflow/core"
	"github.com/poiesic/facetflow/storage"
)

// IndexRepository implements storage.IndexRepository for BadgerDB.
type IndexRepository struct {
	backend *Backend
}

var _ storage.IndexRepository = (*IndexRepository)(nil)

// NewIndexRepository creates a new IndexRepository.
func NewIndexRepository(backend *Backend) *IndexRepository {
	return &IndexRepository{
		backend: backend,
	}
}

// GetIndexInfo returns the description of index.
func (r *IndexRepository) GetIndexInfo(ctx context.Context, index string) (*core.IndexInfo, error) {
	var info *core.IndexInfo
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		info, err = readIndexInfo(tx, index)
		if err != nil {
			return err
		}
		if info == nil {
			return storage.ErrIndexNotFound
		}
		return nil
	}, false)
	return info, err
}

// ListIndices returns all known indices ordered by name.
func (r *IndexRepository) ListIndices(ctx context.Context) ([]*core.IndexInfo, error) {
	var infos []*core.IndexInfo
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(ctx, tx, makeIndexInfoPrefix(), func(_, val []byte) error {
			info, err := storage.UnmarshalIndexInfo(val)
			if err != nil {
				return err
			}
			infos = append(infos, info)
			return nil
		})
	}, false)
	return infos, err
}

// readIndexInfo reads an index description, returning nil, nil when absent.
func readIndexInfo(tx *badger.Txn, index string) (*core.IndexInfo, error) {
	item, err := tx.Get(makeIndexInfoKey(index))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var info *core.IndexInfo
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		info, unmarshalErr = storage.UnmarshalIndexInfo(val)
		return unmarshalErr
	})
	return info, err
}
