// Package codecache persists compiled artifacts in a PebbleDB store
// keyed by a content hash of the function and compilation target, so a
// rebuilt process can skip recompiling unchanged functions.
package codecache

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"

	"flint/pkg/baseline"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("codecache: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Cache is a PebbleDB-backed artifact store.
type Cache struct {
	db *pebble.DB
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("codecache: open %s: %w", path, err)
	}
	return &Cache{db: db}, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get looks up the artifact stored under key. A miss returns nil with
// no error.
func (c *Cache) Get(key Key) (*baseline.Artifact, error) {
	val, closer, err := c.db.Get(key[:])
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("codecache: get: %w", err)
	}
	defer closer.Close()
	var art baseline.Artifact
	if err := cbor.Unmarshal(val, &art); err != nil {
		return nil, fmt.Errorf("codecache: unmarshal artifact: %w", err)
	}
	return &art, nil
}

// Put stores one artifact under key.
func (c *Cache) Put(key Key, art *baseline.Artifact) error {
	return c.PutAll(map[Key]*baseline.Artifact{key: art})
}

// PutAll stores a set of artifacts in one synced batch, so a crash
// leaves either all of a module's functions cached or none of them.
func (c *Cache) PutAll(arts map[Key]*baseline.Artifact) error {
	batch := c.db.NewIndexedBatch()
	defer batch.Close()
	for key, art := range arts {
		enc, err := encMode.Marshal(art)
		if err != nil {
			return fmt.Errorf("codecache: marshal artifact %d: %w", art.FuncIndex, err)
		}
		if err := batch.Set(key[:], enc, nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}
