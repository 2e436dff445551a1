// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pgalloc

import (
	"testing"
	"unsafe"
)

func TestPackTag(t *testing.T) {
	for _, size := range []uintptr{16, 32, 48, 4096} {
		if g, e := tagSize(pack(size, false)), size; g != e {
			t.Fatalf("size %d: tagSize(pack(_, false)) = %d, want %d", size, g, e)
		}
		if g := tagAllocated(pack(size, false)); g {
			t.Fatalf("size %d: tagAllocated(pack(_, false)) = true, want false", size)
		}
		if g, e := tagSize(pack(size, true)), size; g != e {
			t.Fatalf("size %d: tagSize(pack(_, true)) = %d, want %d", size, g, e)
		}
		if g := tagAllocated(pack(size, true)); !g {
			t.Fatalf("size %d: tagAllocated(pack(_, true)) = false, want true", size)
		}
	}
}

func TestTerminatorTagIsUniqueSize(t *testing.T) {
	if minBlockSize <= wordSize {
		t.Fatalf("minBlockSize (%d) must exceed one word (%d) for the terminator's one-word "+
			"size to be unambiguous", minBlockSize, wordSize)
	}
}

// withChunk maps one fresh chunk of n bytes (rounded up to the page size)
// and calls f with the sentinel's payload address, tearing the mapping
// down afterwards. It lets block/free-list tests exercise real,
// page-aligned memory without going through the full Allocator.
func withChunk(t *testing.T, n int, f func(sentinel unsafe.Pointer)) {
	t.Helper()
	size := pageAlign(n, osPageSize())
	base, err := mapPages(size)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := unmapPages(base, size); err != nil {
			t.Fatal(err)
		}
	}()

	sentinelHeader := unsafe.Pointer(uintptr(base) + chunkPad)
	sentinelPayload := unsafe.Pointer(uintptr(sentinelHeader) + uintptr(wordSize))
	setBlockTags(sentinelPayload, 2*uintptr(wordSize), true)

	terminatorHeader := (*uintptr)(unsafe.Pointer(uintptr(base) + uintptr(size) - uintptr(wordSize)))
	*terminatorHeader = terminatorTag

	f(sentinelPayload)
}

func TestNeighborArithmeticAcrossSentinelAndTerminator(t *testing.T) {
	withChunk(t, osPageSize(), func(sentinel unsafe.Pointer) {
		interior := unsafe.Pointer(uintptr(sentinel) + 2*uintptr(wordSize))
		interiorSize := uintptr(osPageSize() - pageOverhead)
		setBlockTags(interior, interiorSize, false)

		if g := prevPayload(interior); g != sentinel {
			t.Fatalf("prevPayload(interior) = %p, want sentinel %p", g, sentinel)
		}
		if g := blockSize(prevPayload(interior)); g != 2*uintptr(wordSize) {
			t.Fatalf("sentinel size = %d, want %d", g, 2*wordSize)
		}
		if !blockAllocated(prevPayload(interior)) {
			t.Fatal("sentinel must read as allocated")
		}

		next := nextPayload(interior)
		if !isTerminator(next) {
			t.Fatal("nextPayload(last interior block) must be the terminator")
		}
		if !blockAllocated(next) {
			t.Fatal("terminator must read as allocated")
		}
	})
}

func TestPointerAlignment(t *testing.T) {
	withChunk(t, osPageSize(), func(sentinel unsafe.Pointer) {
		interior := unsafe.Pointer(uintptr(sentinel) + 2*uintptr(wordSize))
		if uintptr(interior)%align != 0 {
			t.Fatalf("first interior payload %p is not %d-byte aligned", interior, align)
		}
	})
}
