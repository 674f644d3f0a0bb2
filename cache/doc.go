/*
Copyright 2025 The memofetch authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package cache provides a Store interface for a cache store, along with
// two implementations of this interface: an unbounded store with optional
// expiration (Cache) and a least recently used store with a capacity
// bound (LRU). Expirable defines an interface for a cache with expiring
// items, implemented by Cache.
//
// Both implementations are generic over the stored value type, which has
// to be defined when creating the cache. For example, for storing string
// values in an LRU of capacity 10:
//
//	cache, err := NewLRU[string](10)
//
// The cache implementations are self-instrumenting and export metrics
// about the internal operations of the cache if configured with a metrics
// registerer:
//
//	cache, err := NewLRU[string](10, WithMetricsRegisterer(reg))
package cache
