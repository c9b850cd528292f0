package rrdata

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// unknownText renders RDATA in the generic presentation form of RFC 3597:
// backslash-hash, the octet count, and the octets in hex.
func unknownText(data []byte) string {
	if len(data) == 0 {
		return `\# 0`
	}
	return fmt.Sprintf(`\# %d %s`, len(data), strings.ToUpper(hex.EncodeToString(data)))
}

// parseUnknownText parses the RFC 3597 generic form back into RDATA. The hex
// octets may be split across multiple whitespace-separated groups.
func parseUnknownText(text string) ([]byte, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 || fields[0] != `\#` {
		return nil, fmt.Errorf(`%w: expected "\# <length> <hex>"`, ErrBadRData)
	}
	n, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: bad length %q", ErrBadRData, fields[1])
	}
	data, err := hex.DecodeString(strings.Join(fields[2:], ""))
	if err != nil {
		return nil, fmt.Errorf("%w: bad hex: %v", ErrBadRData, err)
	}
	if len(data) != int(n) {
		return nil, fmt.Errorf("%w: declared %d octets, got %d", ErrBadRData, n, len(data))
	}
	return data, nil
}
