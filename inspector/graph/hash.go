package graph

import (
	"fmt"

	"github.com/minio/highwayhash"
)

// hashKey must be 32 bytes long
var hashKey = []byte("odoocheck-content-hash-key-00032")

// ContentHash returns a 64 bit highwayhash of a source file content
func ContentHash(data []byte) (uint64, error) {
	hash, err := highwayhash.New64(hashKey)
	if err != nil {
		return 0, fmt.Errorf("failed to create hash: %w", err)
	}
	if _, err = hash.Write(data); err != nil {
		return 0, err
	}
	return hash.Sum64(), nil
}

// HexHash formats ContentHash output, it returns an empty string for an invalid key
func HexHash(data []byte) string {
	sum, err := ContentHash(data)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%016x", sum)
}
