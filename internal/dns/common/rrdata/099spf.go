package rrdata

// SPF (RFC 4408) shares the TXT wire and presentation formats.

func decodeSPFData(r *reader) ([]byte, string, error) {
	return decodeTXTData(r)
}

func encodeSPFData(text string) ([]byte, error) {
	return encodeTXTData(text)
}
