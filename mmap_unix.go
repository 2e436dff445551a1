// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2017 The Memory Authors.

//go:build !windows

package pgalloc

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

func osPageSize() int { return os.Getpagesize() }

// mapPages asks the OS for an anonymous, zero-filled, page-aligned mapping
// of n bytes. n must already be a multiple of osPageSize().
func mapPages(n int) (unsafe.Pointer, error) {
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, os.NewSyscallError("mmap", err)
	}
	return unsafe.Pointer(unsafe.SliceData(b)), nil
}

// unmapPages releases a mapping obtained from mapPages. base and n must
// match exactly what mapPages returned and was asked for.
func unmapPages(base unsafe.Pointer, n int) error {
	b := unsafe.Slice((*byte)(base), n)
	if err := unix.Munmap(b); err != nil {
		return os.NewSyscallError("munmap", err)
	}
	return nil
}
