package engine

import "unsafe"

// unsafeBytesToString views b as a string without copying.
// Only used for map lookups that do not retain the key.
func unsafeBytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// unsafeStringToBytes views s as a byte slice without copying. The result
// aliases immutable memory and must never be written to; Buffer is read-only.
func unsafeStringToBytes(s string) []byte {
	if s == "" {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// memEqualAt reports whether haystack[at:] starts with needle.
// Compares a machine word at a time, then the remaining bytes.
func memEqualAt(haystack []byte, at int, needle []byte) bool {
	length := len(needle)
	if at < 0 || at+length > len(haystack) {
		return false
	}
	if length == 0 {
		return true
	}
	a := haystack[at : at+length]

	const wordSize = int(unsafe.Sizeof(uintptr(0)))

	words := length / wordSize
	for i := 0; i < words; i++ {
		aWord := *(*uintptr)(unsafe.Pointer(&a[i*wordSize]))
		bWord := *(*uintptr)(unsafe.Pointer(&needle[i*wordSize]))
		if aWord != bWord {
			return false
		}
	}

	for i := words * wordSize; i < length; i++ {
		if a[i] != needle[i] {
			return false
		}
	}
	return true
}
