package usecase

import (
	"sort"

	"github.com/techcompare/specmatch/internal/domain"
)

// CategoryEncoder maps category strings to stable integer codes.
// An encoder is immutable once built; Extend returns a new encoder that keeps every
// existing code and appends the new classes. The unknown class is always registered.
type CategoryEncoder struct {
	classes []string
	codes   map[string]int
}

// NewCategoryEncoder builds an encoder over the sorted distinct values, plus unknown
func NewCategoryEncoder(values []string) *CategoryEncoder {
	return (&CategoryEncoder{}).Extend(values)
}

// Extend returns an encoder holding the receiver's classes followed by any unseen
// values in sorted order. A nil receiver behaves as an empty encoder.
func (e *CategoryEncoder) Extend(values []string) *CategoryEncoder {
	next := &CategoryEncoder{codes: make(map[string]int)}
	if e != nil {
		next.classes = append(next.classes, e.classes...)
		for c, i := range e.codes {
			next.codes[c] = i
		}
	}

	fresh := make([]string, 0)
	seen := make(map[string]bool)
	for _, v := range values {
		if _, ok := next.codes[v]; ok || seen[v] || v == domain.UnknownBrand {
			continue
		}
		seen[v] = true
		fresh = append(fresh, v)
	}
	sort.Strings(fresh)
	for _, v := range fresh {
		next.add(v)
	}
	if _, ok := next.codes[domain.UnknownBrand]; !ok {
		next.add(domain.UnknownBrand)
	}
	return next
}

func (e *CategoryEncoder) add(v string) {
	e.codes[v] = len(e.classes)
	e.classes = append(e.classes, v)
}

// Encode returns the code of v, or the unknown code when v was never registered
func (e *CategoryEncoder) Encode(v string) int {
	if code, ok := e.codes[v]; ok {
		return code
	}
	return e.codes[domain.UnknownBrand]
}

// Known reports whether v is a registered class
func (e *CategoryEncoder) Known(v string) bool {
	_, ok := e.codes[v]
	return ok
}

// Classes returns a copy of the registered classes in code order
func (e *CategoryEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

// NewCategoryEncoderFromClasses restores an encoder from a persisted class list
func NewCategoryEncoderFromClasses(classes []string) *CategoryEncoder {
	e := &CategoryEncoder{codes: make(map[string]int, len(classes)+1)}
	for _, c := range classes {
		if _, ok := e.codes[c]; !ok {
			e.add(c)
		}
	}
	if _, ok := e.codes[domain.UnknownBrand]; !ok {
		e.add(domain.UnknownBrand)
	}
	return e
}
