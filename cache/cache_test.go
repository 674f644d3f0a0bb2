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

package cache

import (
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
)

func Test_Cache(t *testing.T) {
	g := NewWithT(t)
	reg := prometheus.NewPedanticRegistry()
	cache, err := New[string](
		WithMetricsRegisterer(reg),
		WithMetricsPrefix("memo_"))
	g.Expect(err).ToNot(HaveOccurred())
	defer cache.Close()

	key1 := "key1"
	value1 := "val1"
	err = cache.Set(key1, value1)
	g.Expect(err).ToNot(HaveOccurred())

	got, found, err := cache.Get(key1)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(found).To(BeTrue())
	g.Expect(got).To(Equal(value1))

	// overwrite the existing item
	value2 := "val2"
	err = cache.Set(key1, value2)
	g.Expect(err).ToNot(HaveOccurred())

	got, found, err = cache.Get(key1)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(found).To(BeTrue())
	g.Expect(got).To(Equal(value2))

	// miss for an absent key
	_, found, err = cache.Get("absent")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(found).To(BeFalse())

	g.Expect(cache.ListKeys()).To(ConsistOf(key1))

	validateMetrics(reg, `
	# HELP memo_cache_events_total Total number of cache retrieval events partitioned by event type.
	# TYPE memo_cache_events_total counter
	memo_cache_events_total{event_type="cache_hit"} 2
	memo_cache_events_total{event_type="cache_miss"} 1
	# HELP memo_cache_evictions_total Total number of cache evictions.
	# TYPE memo_cache_evictions_total counter
	memo_cache_evictions_total 0
	# HELP memo_cache_requests_total Total number of cache requests partitioned by success or failure.
	# TYPE memo_cache_requests_total counter
	memo_cache_requests_total{status="success"} 6
	# HELP memo_cached_items Total number of items in the cache.
	# TYPE memo_cached_items gauge
	memo_cached_items 1
`, t)
}

func Test_Cache_EmptyKey(t *testing.T) {
	g := NewWithT(t)
	cache, err := New[string]()
	g.Expect(err).ToNot(HaveOccurred())
	defer cache.Close()

	// the empty string is a legal key like any other
	g.Expect(cache.Set("", "empty-content")).To(Succeed())

	got, found, err := cache.Get("")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(found).To(BeTrue())
	g.Expect(got).To(Equal("empty-content"))
	g.Expect(cache.ListKeys()).To(ConsistOf(""))
}

func Test_Cache_Overwrite(t *testing.T) {
	g := NewWithT(t)
	cache, err := New[string]()
	g.Expect(err).ToNot(HaveOccurred())
	defer cache.Close()

	// overwriting an item whose previous incarnation was expired must
	// reset the expiration the janitor sees
	key := "key1"
	g.Expect(cache.Set(key, "val1")).To(Succeed())
	g.Expect(cache.SetExpiration(key, time.Now().Add(-1*time.Second))).To(Succeed())
	g.Expect(cache.Set(key, "val2")).To(Succeed())

	cache.deleteExpired()

	got, found, err := cache.Get(key)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(found).To(BeTrue())
	g.Expect(got).To(Equal("val2"))

	// deleting an overwritten item must still be honored by the janitor
	g.Expect(cache.Delete(key)).To(Succeed())
	cache.deleteExpired()
	g.Expect(cache.ListKeys()).To(BeEmpty())
}

func Test_Cache_NeverEvicts(t *testing.T) {
	g := NewWithT(t)
	cache, err := New[string]()
	g.Expect(err).ToNot(HaveOccurred())
	defer cache.Close()

	n := 1000
	for i := range n {
		key := fmt.Sprintf("test-%d", i)
		g.Expect(cache.Set(key, "test-content")).To(Succeed())
	}

	// the cleanup pass must not reduce the entry count either
	cache.deleteExpired()
	g.Expect(cache.ListKeys()).To(HaveLen(n))
}

func Test_Cache_Expiration(t *testing.T) {
	g := NewWithT(t)
	cache, err := New[string]()
	g.Expect(err).ToNot(HaveOccurred())
	defer cache.Close()

	key := "key1"
	g.Expect(cache.Set(key, "val1")).To(Succeed())

	// a fresh item carries the no-expiration sentinel
	expiration, err := cache.GetExpiration(key)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(expiration.IsZero()).To(BeFalse())

	expired, err := cache.HasExpired(key)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(expired).To(BeFalse())

	// expiration of an absent key
	_, err = cache.GetExpiration("absent")
	g.Expect(err).To(Equal(ErrNotFound))
	expired, err = cache.HasExpired("absent")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(expired).To(BeTrue())

	// backdate the item
	err = cache.SetExpiration(key, time.Now().Add(-1*time.Second))
	g.Expect(err).ToNot(HaveOccurred())

	expired, err = cache.HasExpired(key)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(expired).To(BeTrue())

	expiration, err = cache.GetExpiration(key)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(expiration.IsZero()).To(BeTrue())

	// an expired item is a miss
	_, found, err := cache.Get(key)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(found).To(BeFalse())

	// the cleanup pass removes it
	cache.deleteExpired()
	g.Expect(cache.ListKeys()).To(BeEmpty())
}

func Test_Cache_Delete(t *testing.T) {
	g := NewWithT(t)
	cache, err := New[string]()
	g.Expect(err).ToNot(HaveOccurred())
	defer cache.Close()

	key := "key1"
	g.Expect(cache.Set(key, "val1")).To(Succeed())
	g.Expect(cache.Delete(key)).To(Succeed())

	// deleted items are misses straight away
	_, found, err := cache.Get(key)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(found).To(BeFalse())

	cache.deleteExpired()
	g.Expect(cache.ListKeys()).To(BeEmpty())
}

func Test_Cache_Close(t *testing.T) {
	g := NewWithT(t)
	cache, err := New[string]()
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(cache.Close()).To(Succeed())

	err = cache.Set("key1", "val1")
	g.Expect(err).To(Equal(ErrCacheClosed))

	_, _, err = cache.Get("key1")
	g.Expect(err).To(Equal(ErrCacheClosed))

	_, err = cache.ListKeys()
	g.Expect(err).To(Equal(ErrCacheClosed))

	g.Expect(cache.Close()).To(Equal(ErrCacheClosed))
}
