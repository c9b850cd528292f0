package rrdata

// KEY (RFC 2535) shares the DNSKEY wire and presentation formats.

func decodeKEYData(r *reader) ([]byte, string, error) {
	return decodeDNSKEYData(r)
}

func encodeKEYData(text string) ([]byte, error) {
	return encodeDNSKEYData(text)
}
