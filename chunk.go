// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pgalloc

import "unsafe"

// A chunk is a single OS mapping, framed like this from its base address:
//
//	+0                 8 bytes   pad (keeps the sentinel payload align-byte aligned)
//	+8                 1 word    sentinel header: (2 words)|1
//	+8+1w              1 word    sentinel footer: (2 words)|1
//	+8+2w              N bytes   one or more interior blocks
//	end-1w             1 word    terminator header: (1 word)|1
//
// The sentinel and terminator are permanently allocated, degenerate blocks
// that exist only so boundary-tag neighbor lookups never need to special
// case the ends of a chunk: the first interior block's prevPayload lands on
// the sentinel, and the last interior block's nextPayload lands on the
// terminator.

// pageAlign rounds n up to the next multiple of pageSize, which must be a
// power of two.
func pageAlign(n, pageSize int) int { return (n + pageSize - 1) &^ (pageSize - 1) }

// extend grows the heap to satisfy a pending allocation of the given
// (already aligned, overhead-inclusive) block size. On success it frames a
// fresh chunk and publishes one large free interior block covering it, so
// the caller's subsequent free-list search is guaranteed to hit.
func (a *Allocator) extend(need int) error {
	required := pageAlign(need+pageOverhead, a.pageSize)
	wish := a.mapMultiplier * a.pageSize
	size := required
	if wish > size {
		size = wish
	}

	base, err := mapPages(size)

	// The multiplier advances whether or not the mapping above succeeded:
	// it amortizes syscall cost over the process lifetime, and a failed
	// attempt here says nothing about whether a smaller one would work
	// later, so there is no reason to hold it back.
	if a.mapMultiplier < maxMultiplier {
		a.mapMultiplier *= 2
	}
	if err != nil {
		return err
	}

	a.chunks[base] = size
	a.liveChunks++

	sentinelHeader := unsafe.Pointer(uintptr(base) + chunkPad)
	sentinelPayload := unsafe.Pointer(uintptr(sentinelHeader) + uintptr(wordSize))
	setBlockTags(sentinelPayload, 2*uintptr(wordSize), true)

	terminatorHeader := (*uintptr)(unsafe.Pointer(uintptr(base) + uintptr(size) - uintptr(wordSize)))
	*terminatorHeader = terminatorTag

	interiorPayload := unsafe.Pointer(uintptr(sentinelPayload) + 2*uintptr(wordSize))
	interiorSize := uintptr(size - pageOverhead)
	setBlockTags(interiorPayload, interiorSize, false)
	a.freeListInsert(interiorPayload)

	return nil
}

// wholeChunkUnmapCheck releases the chunk bp belongs to, if and only if bp
// is a single free block spanning that chunk's entire interior (its
// previous neighbor is the sentinel and its next neighbor's header is the
// terminator pattern) and at least one other chunk would remain — a warm
// chunk is always kept so a process alternating small allocations and
// frees never thrashes mappings.
func (a *Allocator) wholeChunkUnmapCheck(bp unsafe.Pointer) error {
	if a.liveChunks <= 1 {
		return nil
	}

	prev := prevPayload(bp)
	if blockSize(prev) != 2*uintptr(wordSize) {
		return nil
	}
	if !isTerminator(nextPayload(bp)) {
		return nil
	}

	chunkBase := unsafe.Pointer(uintptr(unsafe.Pointer(headerAddr(prev))) - chunkPad)
	chunkSize := int(blockSize(bp)) + pageOverhead

	a.freeListUnlink(bp)
	delete(a.chunks, chunkBase)
	a.liveChunks--
	return unmapPages(chunkBase, chunkSize)
}
