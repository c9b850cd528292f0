package rrdata

// SerialLT reports whether a sorts before b in the 32-bit serial number
// space of RFC 1982, where comparison wraps around rather than overflowing.
// RRSIG validity windows and SOA serials both live in this space.
func SerialLT(a, b uint32) bool {
	return a != b && int32(a-b) < 0
}

// SerialGT reports whether a sorts after b in serial number space.
func SerialGT(a, b uint32) bool {
	return SerialLT(b, a)
}
