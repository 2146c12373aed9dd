package cache

import (
	"encoding/binary"
	"fmt"
	"hash"

	"github.com/minio/highwayhash"
)

// hashKey is the fixed HighwayHash key. Changing it invalidates every cached artifact.
var hashKey = []byte("pgraph-artifact-cache-key-v1-000")

// Hasher derives cache keys from length-prefixed fields, so field boundaries
// are part of the key.
type Hasher struct {
	h hash.Hash64
}

// NewHasher creates an empty Hasher.
func NewHasher() (*Hasher, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return nil, fmt.Errorf("creating hasher: %w", err)
	}
	return &Hasher{h: h}, nil
}

// Write adds one field.
func (k *Hasher) Write(field []byte) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(field)))
	k.h.Write(n[:])
	k.h.Write(field)
}

// WriteString adds one string field.
func (k *Hasher) WriteString(field string) {
	k.Write([]byte(field))
}

// Key returns the key of the fields written so far.
func (k *Hasher) Key() string {
	return fmt.Sprintf("%016x", k.h.Sum64())
}
