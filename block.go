// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pgalloc

import "unsafe"

// A block is the contiguous span [header][payload][footer]. It is never
// materialized as a Go value; all access goes through pointer arithmetic on
// a payload address, per the block layout below:
//
//	header = payload - 1 word
//	footer = payload + size - 2 words
//	next payload = payload + size
//	prev payload = payload - size(prev), where size(prev) is read from the
//	               word immediately preceding this block's header.

// pack combines a block size with its allocated bit into one boundary-tag
// word. size must have its low bit clear: block sizes are multiples of
// align, and the terminator's size is one word.
func pack(size uintptr, allocated bool) uintptr {
	if allocated {
		return size | 1
	}
	return size
}

func tagSize(t uintptr) uintptr   { return t &^ 1 }
func tagAllocated(t uintptr) bool { return t&1 != 0 }

func headerAddr(payload unsafe.Pointer) *uintptr {
	return (*uintptr)(unsafe.Pointer(uintptr(payload) - uintptr(wordSize)))
}

func footerAddr(payload unsafe.Pointer, size uintptr) *uintptr {
	return (*uintptr)(unsafe.Pointer(uintptr(payload) + size - 2*uintptr(wordSize)))
}

// blockSize reads the size encoded in payload's header tag.
func blockSize(payload unsafe.Pointer) uintptr { return tagSize(*headerAddr(payload)) }

// blockAllocated reads the allocated bit encoded in payload's header tag.
func blockAllocated(payload unsafe.Pointer) bool { return tagAllocated(*headerAddr(payload)) }

// setBlockTags writes size|allocated to both payload's header and footer.
func setBlockTags(payload unsafe.Pointer, size uintptr, allocated bool) {
	t := pack(size, allocated)
	*headerAddr(payload) = t
	*footerAddr(payload, size) = t
}

// nextPayload returns the payload address of the block immediately
// following payload. If payload is the last interior block of a chunk, the
// result is the (virtual) payload address whose header word is the
// terminator tag.
func nextPayload(payload unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(payload) + blockSize(payload))
}

// prevPayload returns the payload address of the block immediately
// preceding payload, read via the word sitting right before payload's own
// header — that word is always the previous block's footer.
func prevPayload(payload unsafe.Pointer) unsafe.Pointer {
	prevFooter := (*uintptr)(unsafe.Pointer(uintptr(payload) - 2*uintptr(wordSize)))
	prevSize := tagSize(*prevFooter)
	return unsafe.Pointer(uintptr(payload) - prevSize)
}

// isTerminator reports whether the header word at payload matches the
// terminator pattern exactly (size field of one word, allocated bit set).
// Comparing the whole word, rather than just the decoded size, guards
// against a future refactor that masks off more than the allocated bit.
func isTerminator(payload unsafe.Pointer) bool {
	return *headerAddr(payload) == terminatorTag
}
