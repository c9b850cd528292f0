package rrdata

// decodeNSData decodes an NS record: a single, possibly compressed, name.
func decodeNSData(r *reader) ([]byte, string, error) {
	return decodeSingleName(r)
}

// encodeNSData encodes the name server name.
func encodeNSData(text string) ([]byte, error) {
	return appendName(nil, text)
}

// decodeSingleName handles the record types whose RDATA is exactly one
// domain name (NS, CNAME, PTR, DNAME).
func decodeSingleName(r *reader) ([]byte, string, error) {
	name, err := r.name()
	if err != nil {
		return nil, "", err
	}
	data, err := appendName(nil, name)
	if err != nil {
		return nil, "", err
	}
	return data, name, nil
}
