// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pgalloc

import "unsafe"

// freeNode is overlaid directly on a free block's payload bytes — the
// block must be at least minBlockSize, which guarantees room for two
// pointer-sized fields. A block's allocated bit is what distinguishes
// "unused bytes" from "live node"; nothing tags the node itself.
type freeNode struct {
	next, prev unsafe.Pointer // payload addresses, or nil
}

func asNode(payload unsafe.Pointer) *freeNode { return (*freeNode)(payload) }

// freeListInsert pushes payload onto the head of a's free list. payload's
// block must already be marked free.
func (a *Allocator) freeListInsert(payload unsafe.Pointer) {
	n := asNode(payload)
	n.prev = nil
	n.next = a.head
	if a.head != nil {
		asNode(a.head).prev = payload
	}
	a.head = payload
}

// freeListUnlink removes payload from a's free list. payload must
// currently be on the list.
func (a *Allocator) freeListUnlink(payload unsafe.Pointer) {
	n := asNode(payload)
	if n.prev != nil {
		asNode(n.prev).next = n.next
	} else {
		a.head = n.next
	}
	if n.next != nil {
		asNode(n.next).prev = n.prev
	}
	n.next, n.prev = nil, nil
}

// firstFit scans the free list from its head and returns the payload
// address of the first block whose size is at least need, or nil.
func (a *Allocator) firstFit(need uintptr) unsafe.Pointer {
	for p := a.head; p != nil; p = asNode(p).next {
		if blockSize(p) >= need {
			return p
		}
	}
	return nil
}
