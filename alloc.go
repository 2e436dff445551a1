// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pgalloc

import (
	"fmt"
	"math"
	"os"
	"unsafe"
)

// needFor computes the aligned, overhead-inclusive block size required to
// satisfy a request for size payload bytes. ok is false if size is so large
// that size+overhead would overflow int, in which case no mapping could
// ever satisfy it anyway.
//
// Round r+2w up to align, then clamp to minBlockSize: on a 64-bit machine
// where a word is 8 bytes, rounding alone can yield need == 16 for r == 0,
// smaller than minBlockSize (2w+16 == 32). The clamp keeps every block, and
// any remainder split off it, large enough to carry its own boundary tags
// and free-list node.
func needFor(size int) (need int, ok bool) {
	if size > math.MaxInt-2*wordSize-align {
		return 0, false
	}
	need = roundup(size+2*wordSize, align)
	if need < minBlockSize {
		need = minBlockSize
	}
	return need, true
}

// UnsafeAllocate allocates size bytes and returns a 16-byte-aligned payload
// pointer, or (nil, nil) for size == 0. It returns (nil, err) if the
// underlying pager cannot satisfy any mapping large enough.
func (a *Allocator) UnsafeAllocate(size int) (r unsafe.Pointer, err error) {
	if trace {
		defer func() { fmt.Fprintf(os.Stderr, "UnsafeAllocate(%#x) %p %v\n", size, r, err) }()
	}
	if size < 0 {
		panic("pgalloc: negative allocation size")
	}
	if size == 0 {
		return nil, nil
	}

	need, ok := needFor(size)
	if !ok {
		return nil, ErrOutOfMemory
	}

	bp := a.firstFit(uintptr(need))
	if bp == nil {
		if err := a.extend(need); err != nil {
			return nil, err
		}
		bp = a.firstFit(uintptr(need))
		if bp == nil {
			// extend succeeded but didn't publish a block big enough to
			// satisfy need: the pager handed back a mapping smaller than
			// what was requested, which mapPages must never do.
			return nil, ErrOutOfMemory
		}
	}

	total := blockSize(bp)
	a.freeListUnlink(bp)

	if total-uintptr(need) >= uintptr(minBlockSize) {
		remainder := unsafe.Pointer(uintptr(bp) + uintptr(need))
		remainderSize := total - uintptr(need)
		setBlockTags(remainder, remainderSize, false)
		a.freeListInsert(remainder)
	} else {
		need = int(total)
	}

	setBlockTags(bp, uintptr(need), true)
	a.allocs++
	return bp, nil
}

// UnsafeFree releases the block at p, which must have been returned by
// UnsafeAllocate/Allocate and not freed since. Passing an invalid pointer
// is undefined behavior, per design: the allocator does not validate it.
func (a *Allocator) UnsafeFree(p unsafe.Pointer) error {
	if trace {
		defer func() { fmt.Fprintf(os.Stderr, "UnsafeFree(%p)\n", p) }()
	}
	if p == nil {
		return nil
	}

	size := blockSize(p)
	setBlockTags(p, size, false)
	a.allocs--

	merged := a.coalesce(p)
	return a.wholeChunkUnmapCheck(merged)
}

// coalesce merges the just-freed block at ptr (tags already cleared) with
// any free neighbors, leaving exactly one free block — in the list exactly
// once — covering the merged span, and returns its payload address.
//
// The sentinel's and terminator's allocated bits are always set, so
// reading past either boundary is always safe and never triggers a merge:
// callers never need to special-case chunk edges here.
func (a *Allocator) coalesce(ptr unsafe.Pointer) unsafe.Pointer {
	left := prevPayload(ptr)
	right := nextPayload(ptr)
	leftFree := !blockAllocated(left)
	rightFree := !blockAllocated(right)

	switch {
	case !leftFree && !rightFree:
		a.freeListInsert(ptr)
		return ptr

	case leftFree && !rightFree:
		size := blockSize(left) + blockSize(ptr)
		setBlockTags(left, size, false)
		return left

	case !leftFree && rightFree:
		size := blockSize(ptr) + blockSize(right)
		a.freeListUnlink(right)
		setBlockTags(ptr, size, false)
		a.freeListInsert(ptr)
		return ptr

	default: // leftFree && rightFree
		size := blockSize(left) + blockSize(ptr) + blockSize(right)
		a.freeListUnlink(right)
		setBlockTags(left, size, false)
		return left
	}
}
