package nativebind

import "unsafe"

// maxCString bounds the scan for the terminating NUL.
const maxCString = 1 << 16

// GoString copies a NUL-terminated C string into a Go string. At most
// 64 KiB are copied; a longer string is truncated at that length.
func GoString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	p := unsafe.Pointer(ptr)
	var n int
	for n < maxCString && *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	if n == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(p), n))
}

// CString returns s as a NUL-terminated byte slice. The caller keeps the
// slice alive for as long as native code may read it.
func CString(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}
