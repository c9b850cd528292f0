package rrdata

// decodeCNAMEData decodes a CNAME record: the canonical name target.
func decodeCNAMEData(r *reader) ([]byte, string, error) {
	return decodeSingleName(r)
}

// encodeCNAMEData encodes the canonical name target.
func encodeCNAMEData(text string) ([]byte, error) {
	return appendName(nil, text)
}
