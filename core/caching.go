package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/huangsam/migdelta/core/descriptor"
	"github.com/huangsam/migdelta/internal/contract"
	"github.com/huangsam/migdelta/schema"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// cachedParse parses content, reusing the operation list of an identical file
// parsed earlier. Only successful parses are stored.
func cachedParse(store contract.CacheStore, path string, content []byte) (schema.Descriptor, error) {
	if store == nil {
		return descriptor.Parse(path, content)
	}

	key := generateCacheKey(content)
	if ops, ok := checkCacheHit(store, key); ok {
		return schema.Descriptor{
			Path:       path,
			Group:      descriptor.OwningGroup(path),
			Operations: ops,
		}, nil
	}

	d, err := descriptor.Parse(path, content)
	if err != nil {
		return d, err
	}
	if data, err := json.Marshal(d.Operations); err == nil {
		if err := store.Set(key, data, currentCacheVersion, time.Now().Unix()); err != nil {
			contract.LogWarn("Failed to cache parse result", err)
		}
	}
	return d, nil
}

// checkCacheHit attempts to retrieve and decode a cached operation list
func checkCacheHit(store contract.CacheStore, key string) ([]schema.Operation, bool) {
	data, version, _, err := store.Get(key)
	if err != nil || version != currentCacheVersion {
		return nil, false
	}
	var ops []schema.Operation
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, false
	}
	return ops, true
}

// generateCacheKey derives the key from the extraction rules and the file content.
// The path is not part of the key since the owning group is recomputed on every hit.
func generateCacheKey(content []byte) string {
	sum := sha256.Sum256(content)
	return descriptor.Version + ":" + hex.EncodeToString(sum[:])
}
