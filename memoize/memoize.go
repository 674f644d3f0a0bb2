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

package memoize

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"

	"github.com/memofetch/memofetch/cache"
)

// Func is a single-argument function whose results can be memoized. The
// argument doubles as the cache key, so calls with identical arguments
// are considered identical computations.
type Func[V any] func(ctx context.Context, arg string) (V, error)

// KeyFunc derives the cache key from the call argument. It should be
// deterministic. It can be used to normalize arguments that are spelled
// differently but address the same resource.
type KeyFunc func(arg string) (string, error)

// Outcome is the stored result of a memoized call. Err is only ever
// non-nil when the memoizer was configured with WithErrorCaching.
type Outcome[V any] struct {
	Value V
	Err   error
}

var errNilArgument = errors.New("store and function must not be nil")

// Memoizer wraps a Func so that it is invoked at most once per key; all
// subsequent calls with the same key return the stored result without
// re-invoking the function.
//
// Results are kept in the caller-provided Store, so the eviction policy
// of the store decides when a key has to be computed again: an LRU store
// bounds the number of retained results, an unbounded Cache never forgets
// one. Each Memoizer owns exactly one store, there is no package-level
// state.
//
// Concurrent calls for the same uncached key are collapsed into a single
// invocation of the function; the remaining callers wait for and receive
// the result of that one invocation.
type Memoizer[V any] struct {
	store cache.Store[Outcome[V]]
	fn    Func[V]
	keyFn KeyFunc

	group       singleflight.Group
	cacheErrors bool
}

// Option is a function that configures the Memoizer.
type Option func(*options)

type options struct {
	keyFn       KeyFunc
	cacheErrors bool
}

// WithKeyFunc sets the key derivation function. By default the argument
// is used as the key verbatim, so e.g. trailing-slash URL variants are
// distinct keys.
func WithKeyFunc(f KeyFunc) Option {
	return func(o *options) {
		o.keyFn = f
	}
}

// WithErrorCaching makes the Memoizer store failed outcomes as well:
// the first error returned for a key is replayed to all subsequent calls
// with that key, without re-invoking the function. The default is to not
// cache failures, so the next call for a failed key retries.
func WithErrorCaching() Option {
	return func(o *options) {
		o.cacheErrors = true
	}
}

// New returns a Memoizer that caches the results of fn in store.
func New[V any](store cache.Store[Outcome[V]], fn Func[V], opts ...Option) (*Memoizer[V], error) {
	if store == nil || fn == nil {
		return nil, errNilArgument
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Memoizer[V]{
		store:       store,
		fn:          fn,
		keyFn:       o.keyFn,
		cacheErrors: o.cacheErrors,
	}, nil
}

// Do returns the memoized result for the given argument, invoking the
// wrapped function if no result is stored for its key.
//
// Errors returned by the wrapped function are forwarded unchanged. A
// failed invocation does not store anything and does not touch the
// recency order of stored results, unless error caching is enabled.
//
// If the function has to be invoked, it runs with the context of the
// caller that initiated the invocation; callers that join an in-flight
// invocation share its outcome regardless of their own context.
func (m *Memoizer[V]) Do(ctx context.Context, arg string) (V, error) {
	var zero V

	key := arg
	if m.keyFn != nil {
		var err error
		if key, err = m.keyFn(arg); err != nil {
			return zero, &cache.CacheError{Reason: cache.ErrInvalidKey, Err: err}
		}
	}

	if out, found, err := m.store.Get(key); err != nil {
		return zero, err
	} else if found {
		return out.Value, out.Err
	}

	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		// Another flight may have stored the result between the lookup
		// above and this one.
		if out, found, err := m.store.Get(key); err == nil && found {
			return out, nil
		}

		value, err := m.fn(ctx, arg)
		if err != nil {
			if m.cacheErrors {
				if serr := m.store.Set(key, Outcome[V]{Err: err}); serr != nil {
					return Outcome[V]{}, serr
				}
			}
			return Outcome[V]{Err: err}, nil
		}

		if serr := m.store.Set(key, Outcome[V]{Value: value}); serr != nil {
			return Outcome[V]{}, serr
		}
		return Outcome[V]{Value: value}, nil
	})
	if err != nil {
		return zero, err
	}

	out := v.(Outcome[V])
	return out.Value, out.Err
}
