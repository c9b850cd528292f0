package rrdata

// decodePTRData decodes a PTR record: the pointed-to name.
func decodePTRData(r *reader) ([]byte, string, error) {
	return decodeSingleName(r)
}

// encodePTRData encodes the pointed-to name.
func encodePTRData(text string) ([]byte, error) {
	return appendName(nil, text)
}
