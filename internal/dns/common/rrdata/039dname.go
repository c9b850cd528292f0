package rrdata

// decodeDNAMEData decodes a DNAME record: the redirection target for the
// whole subtree (RFC 6672). The target itself must not be compressed on the
// wire, but decoding tolerates it.
func decodeDNAMEData(r *reader) ([]byte, string, error) {
	return decodeSingleName(r)
}

// encodeDNAMEData encodes the redirection target.
func encodeDNAMEData(text string) ([]byte, error) {
	return appendName(nil, text)
}
