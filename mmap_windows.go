// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2017 The Memory Authors.

//go:build windows

package pgalloc

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// handles tracks the file-mapping handle backing each mapped base address,
// so unmapPages can close it once the view is released. Windows mmap is a
// two-step dance (CreateFileMapping then MapViewOfFile) with no way to
// recover the handle from the address alone.
var handles = map[uintptr]windows.Handle{}

func osPageSize() int {
	var si windows.SystemInfo
	windows.GetSystemInfo(&si)
	return int(si.PageSize)
}

func mapPages(n int) (unsafe.Pointer, error) {
	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE, uint32(uint64(n)>>32), uint32(n), nil)
	if err != nil {
		return nil, os.NewSyscallError("CreateFileMapping", err)
	}

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(n))
	if err != nil {
		windows.CloseHandle(h)
		return nil, os.NewSyscallError("MapViewOfFile", err)
	}

	handles[addr] = h
	return unsafe.Pointer(addr), nil
}

func unmapPages(base unsafe.Pointer, n int) error {
	addr := uintptr(base)
	if err := windows.UnmapViewOfFile(addr); err != nil {
		return os.NewSyscallError("UnmapViewOfFile", err)
	}

	h, ok := handles[addr]
	if !ok {
		return os.ErrInvalid
	}
	delete(handles, addr)
	return windows.CloseHandle(h)
}
