package vectorstore

import "fmt"

// DeriveID derives a vector-store record id from a chunk's content hash.
// The first 32 hex characters of the hash are reinterpreted as a UUID: dashes
// go in at 8-4-4-4-12, the version nibble (char 14) is forced to '5', and the
// variant nibble (char 19) is forced to RFC 4122's "10" pattern. The id is
// therefore a direct reformatting of the content hash, not a fresh digest —
// the same content always maps to the same id, and the id's hex digits (bar
// the two forced nibbles) can be read straight back out of the hash.
func DeriveID(contentHash string) string {
	if len(contentHash) < 32 {
		contentHash = (contentHash + "00000000000000000000000000000000")[:32]
	}
	b := []byte(contentHash[:32])

	b[12] = '5'
	b[16] = variantNibble(b[16])

	return fmt.Sprintf("%s-%s-%s-%s-%s", b[0:8], b[8:12], b[12:16], b[16:20], b[20:32])
}

// variantNibble rewrites a hex digit so its top two bits are "10" (the RFC
// 4122 variant), keeping its low two bits intact.
func variantNibble(c byte) byte {
	v := (hexVal(c) & 0x3) | 0x8
	const hexDigits = "0123456789abcdef"
	return hexDigits[v]
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}
