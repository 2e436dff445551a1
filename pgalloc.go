// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pgalloc implements a page-backed, boundary-tag memory allocator.
//
// The allocator obtains memory from the OS in whole pages (via mmap/munmap)
// and hands out arbitrarily sized blocks carved from those pages. Every
// block carries a boundary tag (a size-plus-allocated-bit word) at both
// ends, which lets the allocator locate a block's neighbors in O(1) without
// any separate bookkeeping structure. Free blocks additionally live on a
// single doubly linked free list per Allocator, overlaid directly on their
// payload bytes.
//
// An Allocator is not safe for concurrent use; callers that need that must
// serialize access themselves.
package pgalloc

import (
	"errors"
	"fmt"
	"os"
	"unsafe"
)

const trace = false

const (
	// align is the fixed payload alignment the allocator guarantees to
	// every caller. Must be a power of two and at least 2*wordSize.
	align = 16

	// maxMultiplier bounds the geometric growth of future OS mappings.
	maxMultiplier = 32

	// chunkPad is the padding at the low end of every chunk, present
	// purely so the sentinel's payload lands on an align-byte boundary.
	chunkPad = 8
)

var (
	wordSize     = int(unsafe.Sizeof(uintptr(0)))
	minBlockSize = 2*wordSize + align

	// pageOverhead is the fixed cost of framing a chunk: the pad, the
	// sentinel (2 words: header+footer), and the terminator (1 word).
	pageOverhead = chunkPad + 2*wordSize + wordSize

	terminatorTag = pack(uintptr(wordSize), true)
)

// ErrOutOfMemory is returned by Allocate/UnsafeAllocate when a request is
// so large that its overhead-inclusive size would overflow int, or when a
// fresh mapping has no block large enough for it. A failed OS mapping call
// is reported with the pager's own error instead.
var ErrOutOfMemory = errors.New("pgalloc: out of memory")

// if n%m != 0 { n += m-n%m }. m must be a power of 2.
func roundup(n, m int) int { return (n + m - 1) &^ (m - 1) }

// Allocator allocates and frees page-backed memory. Its zero value is not
// ready for use; call Init first.
type Allocator struct {
	head          unsafe.Pointer // free-list head, a payload address or nil
	liveChunks    int            // number of chunks currently mapped
	mapMultiplier int            // geometric growth state, saturates at maxMultiplier
	pageSize      int            // cached osPageSize(), set by Init

	allocs int                    // live allocation count, diagnostics only
	chunks map[unsafe.Pointer]int // chunk base -> mapped length, for Close
}

// Init resets a to a freshly initialized state: empty free list, zero live
// chunks, a map multiplier of 1, and the OS page size cached. It must be
// called once before any Allocate/Free call. Calling Init again discards
// the allocator's bookkeeping without releasing any chunks it still owns;
// call Close first if that matters.
func (a *Allocator) Init() {
	*a = Allocator{
		mapMultiplier: 1,
		pageSize:      osPageSize(),
		chunks:        map[unsafe.Pointer]int{},
	}
}

// Close unmaps every chunk a currently owns and resets it to its
// zero-equivalent, not-yet-initialized state.
func (a *Allocator) Close() (err error) {
	for base, size := range a.chunks {
		if e := unmapPages(base, size); e != nil && err == nil {
			err = e
		}
	}
	*a = Allocator{}
	return err
}

// Allocate returns size bytes of payload backed directly by a newly
// allocated block (no copy). The returned slice's length and capacity are
// both exactly size, even when the underlying block is larger.
func (a *Allocator) Allocate(size int) (r []byte, err error) {
	if trace {
		defer func() { fmt.Fprintf(os.Stderr, "Allocate(%#x) len=%d err=%v\n", size, len(r), err) }()
	}
	p, err := a.UnsafeAllocate(size)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return unsafe.Slice((*byte)(p), size), nil
}

// Free releases a slice previously returned by Allocate. b must not have
// been freed since it was obtained.
func (a *Allocator) Free(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return a.UnsafeFree(unsafe.Pointer(&b[0]))
}
