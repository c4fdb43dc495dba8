// Package cache provides stores for translated text keyed by
// autotrans.CacheKey or autotrans.ServerCacheKey.
//
// The page client uses an InMemoryCache for the lifetime of a session; the
// translation server can share a RedisCache between instances. Both can be
// snapshotted and reloaded with an Exporter and Importer.
package cache

import "github.com/ZaguanLabs/autotrans"

// Clearable is implemented by caches that can drop all entries.
type Clearable interface {
	autotrans.TranslationCache
	Clear()
	Len() int
}

// Snapshotter is implemented by caches whose entries can be listed for export.
type Snapshotter interface {
	Entries() map[string]string
}
