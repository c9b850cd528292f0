package rrdata

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// decodeSSHFPData decodes an SSHFP record (RFC 4255): algorithm, fingerprint
// type, fingerprint.
func decodeSSHFPData(r *reader) ([]byte, string, error) {
	alg, err := r.u8()
	if err != nil {
		return nil, "", err
	}
	fpType, err := r.u8()
	if err != nil {
		return nil, "", err
	}
	fp := r.rest()
	if len(fp) == 0 {
		return nil, "", fmt.Errorf("%w: SSHFP fingerprint is empty", ErrBadRData)
	}
	data := append([]byte{alg, fpType}, fp...)
	return data, fmt.Sprintf("%d %d %s", alg, fpType, strings.ToUpper(hex.EncodeToString(fp))), nil
}

// encodeSSHFPData encodes "algorithm fptype hexfingerprint".
func encodeSSHFPData(text string) ([]byte, error) {
	parts := strings.Fields(text)
	if len(parts) < 3 {
		return nil, fmt.Errorf("expected 3 fields, got %d", len(parts))
	}
	alg, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid algorithm %q: %w", parts[0], err)
	}
	fpType, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid fingerprint type %q: %w", parts[1], err)
	}
	fp, err := hex.DecodeString(strings.Join(parts[2:], ""))
	if err != nil {
		return nil, fmt.Errorf("invalid fingerprint: %w", err)
	}
	return append([]byte{uint8(alg), uint8(fpType)}, fp...), nil
}
