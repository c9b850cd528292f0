package rrdata

// SIG (RFC 2535) is the predecessor of RRSIG and shares its wire and
// presentation formats. It survives mostly in SIG(0) transaction security.

func decodeSIGData(r *reader) ([]byte, string, error) {
	return decodeRRSIGData(r)
}

func encodeSIGData(text string) ([]byte, error) {
	return encodeRRSIGData(text)
}
