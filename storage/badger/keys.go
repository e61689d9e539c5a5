package badger

import "fmt"

// Key prefixes for different data types
const (
	documentPrefix  = "doc"
	indexInfoPrefix = "idx"
)

// makeDocumentKey generates a key for a document.
// Format: prefix:index:id
func makeDocumentKey(index, id string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", documentPrefix, index, id))
}

// makeDocumentPrefix generates the prefix shared by all documents of index.
// Index names cannot contain ':', so one index's prefix never matches another's.
func makeDocumentPrefix(index string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", documentPrefix, index))
}

// makeIndexInfoKey generates a key for an index description.
func makeIndexInfoKey(index string) []byte {
	return []byte(fmt.Sprintf("%s:%s", indexInfoPrefix, index))
}

// makeIndexInfoPrefix generates the prefix shared by all index descriptions.
func makeIndexInfoPrefix() []byte {
	return []byte(indexInfoPrefix + ":")
}
