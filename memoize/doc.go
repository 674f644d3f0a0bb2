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

// Package memoize turns a single-argument function into one that is
// invoked at most once per distinct argument, with the results held in a
// cache.Store chosen by the caller.
//
//	store, _ := cache.NewLRU[memoize.Outcome[string]](100)
//	m, _ := memoize.New(store, func(ctx context.Context, url string) (string, error) {
//		return fetchContent(ctx, url)
//	})
//
//	body, err := m.Do(ctx, "https://example.com") // invokes fetchContent
//	body, err = m.Do(ctx, "https://example.com")  // served from the store
//
// Functions taking more than one argument are memoized by composing the
// arguments into the key string before calling Do, or with a closure over
// the extra arguments.
package memoize
