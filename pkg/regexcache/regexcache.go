// Package regexcache compiles regular expressions once per pattern and
// shares them between goroutines. Detection signatures, including ones
// loaded from user configuration, are compiled through it.
package regexcache

import (
	"fmt"
	"regexp"
	"sync"
)

var cache sync.Map // pattern -> *regexp.Regexp

// Get returns the compiled form of pattern, compiling it on first use.
func Get(pattern string) (*regexp.Regexp, error) {
	if re, ok := cache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("regexcache: %w", err)
	}
	actual, _ := cache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

// MustGet is Get for patterns known at compile time. It panics on an
// invalid pattern.
func MustGet(pattern string) *regexp.Regexp {
	re, err := Get(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

// CompileAll compiles every pattern and returns them in order. The first
// invalid pattern aborts with its error.
func CompileAll(patterns ...string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := Get(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// Size reports how many patterns are cached.
func Size() int {
	n := 0
	cache.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
