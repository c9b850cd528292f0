package rrdata

import (
	"fmt"
	"strconv"
	"strings"
)

// TKEY is the parsed form of a transaction key record (RFC 2930).
type TKEY struct {
	Algorithm  string
	Inception  uint32
	Expiration uint32
	Mode       uint16
	Error      uint16
	Key        []byte
	Other      []byte
}

// TKEY modes (RFC 2930 §2.5).
const (
	TKEYModeDH         uint16 = 2
	TKEYModeGSS        uint16 = 3
	TKEYModeResolver   uint16 = 4
	TKEYModeKeyDelete  uint16 = 5
)

// ParseTKEY parses normalized TKEY RDATA into its fields.
func ParseTKEY(data []byte) (TKEY, error) {
	r, err := newReader(data, 0, len(data))
	if err != nil {
		return TKEY{}, err
	}
	var tk TKEY
	if tk.Algorithm, err = r.name(); err != nil {
		return TKEY{}, fmt.Errorf("tkey algorithm: %w", err)
	}
	if tk.Inception, err = r.u32(); err != nil {
		return TKEY{}, err
	}
	if tk.Expiration, err = r.u32(); err != nil {
		return TKEY{}, err
	}
	if tk.Mode, err = r.u16(); err != nil {
		return TKEY{}, err
	}
	if tk.Error, err = r.u16(); err != nil {
		return TKEY{}, err
	}
	keyLen, err := r.u16()
	if err != nil {
		return TKEY{}, err
	}
	if tk.Key, err = r.bytes(int(keyLen)); err != nil {
		return TKEY{}, err
	}
	otherLen, err := r.u16()
	if err != nil {
		return TKEY{}, err
	}
	if tk.Other, err = r.bytes(int(otherLen)); err != nil {
		return TKEY{}, err
	}
	return tk, nil
}

// Encode serializes the TKEY back to normalized RDATA.
func (tk TKEY) Encode() ([]byte, error) {
	data, err := appendName(nil, tk.Algorithm)
	if err != nil {
		return nil, err
	}
	data = appendU32(data, tk.Inception)
	data = appendU32(data, tk.Expiration)
	data = appendU16(data, tk.Mode)
	data = appendU16(data, tk.Error)
	if len(tk.Key) > 0xFFFF || len(tk.Other) > 0xFFFF {
		return nil, fmt.Errorf("%w: TKEY field too long", ErrBadRData)
	}
	data = appendU16(data, uint16(len(tk.Key)))
	data = append(data, tk.Key...)
	data = appendU16(data, uint16(len(tk.Other)))
	return append(data, tk.Other...), nil
}

// decodeTKEYData decodes a TKEY record. The algorithm name must not be
// compressed on the wire, but decoding tolerates it.
func decodeTKEYData(r *reader) ([]byte, string, error) {
	algorithm, err := r.name()
	if err != nil {
		return nil, "", fmt.Errorf("tkey algorithm: %w", err)
	}
	rest := r.rest()
	data, err := appendName(nil, algorithm)
	if err != nil {
		return nil, "", err
	}
	data = append(data, rest...)

	tk, err := ParseTKEY(data)
	if err != nil {
		return nil, "", err
	}
	text := fmt.Sprintf("%s %d %d %d %d %s %s",
		algorithm, tk.Inception, tk.Expiration, tk.Mode, tk.Error,
		b64Field(tk.Key), b64Field(tk.Other))
	return data, text, nil
}

// encodeTKEYData encodes "algorithm inception expiration mode error
// base64key base64other" with "-" for empty fields.
func encodeTKEYData(text string) ([]byte, error) {
	parts := strings.Fields(text)
	if len(parts) != 7 {
		return nil, fmt.Errorf("expected 7 fields, got %d", len(parts))
	}
	var tk TKEY
	tk.Algorithm = parts[0]
	nums := make([]uint64, 4)
	widths := []int{32, 32, 16, 16}
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseUint(parts[i+1], 10, widths[i])
		if err != nil {
			return nil, fmt.Errorf("invalid field %q: %w", parts[i+1], err)
		}
		nums[i] = v
	}
	tk.Inception = uint32(nums[0])
	tk.Expiration = uint32(nums[1])
	tk.Mode = uint16(nums[2])
	tk.Error = uint16(nums[3])

	var err error
	if tk.Key, err = b64FieldDecode(parts[5]); err != nil {
		return nil, fmt.Errorf("invalid key data: %w", err)
	}
	if tk.Other, err = b64FieldDecode(parts[6]); err != nil {
		return nil, fmt.Errorf("invalid other data: %w", err)
	}
	return tk.Encode()
}

func b64Field(b []byte) string {
	if len(b) == 0 {
		return "-"
	}
	return b64.EncodeToString(b)
}

func b64FieldDecode(s string) ([]byte, error) {
	if s == "-" {
		return nil, nil
	}
	return b64.DecodeString(s)
}
