package resolver

import (
	"bytes"
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/haukened/rec-dns/internal/dns/common/dnsname"
	"github.com/haukened/rec-dns/internal/dns/common/rrdata"
	"github.com/haukened/rec-dns/internal/dns/domain"
)

// SupportedAlgorithms lists the DNSSEC signing algorithms the validator can
// verify, in the order advertised via DAU.
func SupportedAlgorithms() []uint8 {
	return []uint8{
		rrdata.AlgRSASHA1,
		rrdata.AlgRSASHA256,
		rrdata.AlgRSASHA512,
		rrdata.AlgECDSAP256SHA256,
		rrdata.AlgECDSAP384SHA384,
		rrdata.AlgEd25519,
	}
}

// SupportedDSDigests lists the DS digest types the validator understands,
// advertised via DHU.
func SupportedDSDigests() []uint8 {
	return []uint8{rrdata.DigestSHA1, rrdata.DigestSHA256, rrdata.DigestSHA384}
}

// SupportedNSEC3Hashes lists the NSEC3 hash algorithms understood, advertised
// via N3U. SHA-1 is the only hash ever assigned.
func SupportedNSEC3Hashes() []uint8 {
	return []uint8{1}
}

// CapabilityOptions builds the DAU/DHU/N3U EDNS options announcing the
// validator's algorithm support to upstream servers (RFC 6975).
func CapabilityOptions() []domain.EDNSOption {
	return []domain.EDNSOption{
		{Code: domain.EDNSOptionDAU, Data: SupportedAlgorithms()},
		{Code: domain.EDNSOptionDHU, Data: SupportedDSDigests()},
		{Code: domain.EDNSOptionN3U, Data: SupportedNSEC3Hashes()},
	}
}

// NSEC3 iteration counts past this are treated as unusable (RFC 9276 caps
// legitimate zones far below it).
const maxNSEC3Iterations = 500

// validator decides the DNSSEC verdict of RRsets the resolver obtains. It
// borrows the resolver handle to fetch DNSKEY and DS records through the
// normal cached, loop-guarded resolution path.
type validator struct {
	resolver *Resolver
	disabled bool
}

func algorithmSupported(alg uint8) bool {
	for _, a := range SupportedAlgorithms() {
		if a == alg {
			return true
		}
	}
	return false
}

// rrset decides the verdict of one RRset taken from msg. DNSKEY RRsets get
// the self-signature treatment against the parent DS; everything else chains
// through the signer zone's keys.
func (v *validator) rrset(ctx context.Context, rrset []domain.ResourceRecord, msg *domain.Message, g *guard) domain.Verdict {
	if v.disabled || len(rrset) == 0 {
		return domain.VerdictUnsigned
	}
	owner := dnsname.Canonical(rrset[0].Name)
	if rrset[0].Type == domain.RRTypeDNSKEY {
		return v.dnskeySet(ctx, owner, rrset, signaturesFor(msg, owner, domain.RRTypeDNSKEY), g)
	}
	return v.signedSet(ctx, owner, rrset, signaturesFor(msg, owner, rrset[0].Type), g)
}

// signedSet validates a non-DNSKEY RRset against its covering signatures.
func (v *validator) signedSet(ctx context.Context, owner string, rrset []domain.ResourceRecord, sigs []rrdata.RRSIG, g *guard) domain.Verdict {
	if len(sigs) == 0 {
		return v.unsignedVerdict(ctx, owner, g)
	}
	now := v.resolver.now()
	anchored := false
	sawInsecure := false
	for _, sig := range sigs {
		if !algorithmSupported(sig.Algorithm) {
			continue
		}
		if !dnsname.IsSubdomain(owner, sig.SignerName) {
			continue
		}
		if int(sig.Labels) > len(dnsname.Labels(owner)) {
			continue
		}
		keys, keyVerdict := v.zoneKeys(ctx, sig.SignerName, g)
		switch keyVerdict {
		case domain.VerdictSecure:
			// A secure chain reached this signer; from here on, any failure
			// (expired window, broken signature) is bogus, not unknown.
			anchored = true
		case domain.VerdictInsecure, domain.VerdictUnsigned:
			sawInsecure = true
			continue
		default:
			continue
		}
		if !sig.ValidAt(now) {
			continue
		}
		if !matchesRRset(sig, rrset) {
			continue
		}
		for _, krec := range keys {
			key, err := rrdata.ParseDNSKEY(krec.Data)
			if err != nil || !key.IsZoneKey() {
				continue
			}
			if key.Algorithm != sig.Algorithm || rrdata.KeyTag(krec.Data) != sig.KeyTag {
				continue
			}
			if verifyRRSIG(sig, key, owner, rrset) == nil {
				return domain.VerdictSecure
			}
		}
	}
	if anchored {
		// A secure key chain exists but no signature checked out.
		return domain.VerdictBogus
	}
	if sawInsecure {
		return domain.VerdictInsecure
	}
	return domain.VerdictIndeterminate
}

// dnskeySet validates a DNSKEY RRset: one of its keys must match a DS from
// the parent (or a trust anchor) and that key's self-signature over the
// whole set must verify. This is the point where the chain of trust crosses
// a zone cut.
func (v *validator) dnskeySet(ctx context.Context, owner string, rrset []domain.ResourceRecord, sigs []rrdata.RRSIG, g *guard) domain.Verdict {
	dsSet, dsVerdict := v.dsFor(ctx, owner, g)
	if dsVerdict != domain.VerdictSecure {
		return dsVerdict
	}
	now := v.resolver.now()
	for _, ds := range dsSet {
		if !algorithmSupported(ds.Algorithm) {
			continue
		}
		for _, krec := range rrset {
			if krec.Type != domain.RRTypeDNSKEY {
				continue
			}
			key, err := rrdata.ParseDNSKEY(krec.Data)
			if err != nil || !key.IsZoneKey() || key.Algorithm != ds.Algorithm {
				continue
			}
			tag := rrdata.KeyTag(krec.Data)
			if tag != ds.KeyTag || !dsMatchesKey(ds, owner, krec.Data) {
				continue
			}
			for _, sig := range sigs {
				if sig.KeyTag != tag || sig.Algorithm != key.Algorithm || !sig.ValidAt(now) {
					continue
				}
				if !dnsname.Equal(sig.SignerName, owner) || !matchesRRset(sig, rrset) {
					continue
				}
				if verifyRRSIG(sig, key, owner, rrset) == nil {
					return domain.VerdictSecure
				}
			}
		}
	}
	// DS says the zone is signed; a key set that cannot prove it is bogus.
	return domain.VerdictBogus
}

// zoneKeys fetches and validates the DNSKEY RRset of zone. The verdict is
// the cached one from the DNSKEY resolution itself.
func (v *validator) zoneKeys(ctx context.Context, zone string, g *guard) ([]domain.ResourceRecord, domain.Verdict) {
	res, err := v.resolver.resolve(ctx, domain.Question{
		Name:  dnsname.Canonical(zone),
		Type:  domain.RRTypeDNSKEY,
		Class: domain.RRClassIN,
	}, g)
	if err != nil {
		return nil, domain.VerdictIndeterminate
	}
	if len(res.records) == 0 {
		// Signatures exist but the signer publishes no keys.
		if res.verdict == domain.VerdictSecure {
			return nil, domain.VerdictBogus
		}
		return nil, res.verdict
	}
	return res.records, res.verdict
}

// dsFor returns the DS RRset authenticating zone's keys. Trust anchors win
// and terminate the recursion; otherwise the DS is resolved from the parent.
// A securely proven absence of DS means the delegation is insecure.
func (v *validator) dsFor(ctx context.Context, zone string, g *guard) ([]rrdata.DS, domain.Verdict) {
	if anchors := v.resolver.hints.TrustAnchors(zone); len(anchors) > 0 {
		return anchors, domain.VerdictSecure
	}
	if zone == "" {
		return nil, domain.VerdictIndeterminate
	}
	res, err := v.resolver.resolve(ctx, domain.Question{
		Name:  dnsname.Canonical(zone),
		Type:  domain.RRTypeDS,
		Class: domain.RRClassIN,
	}, g)
	if err != nil {
		return nil, domain.VerdictIndeterminate
	}
	if len(res.records) == 0 {
		switch res.verdict {
		case domain.VerdictSecure, domain.VerdictInsecure, domain.VerdictUnsigned:
			return nil, domain.VerdictInsecure
		default:
			return nil, res.verdict
		}
	}
	var out []rrdata.DS
	for _, rr := range res.records {
		if rr.Type != domain.RRTypeDS {
			continue
		}
		ds, err := rrdata.ParseDS(rr.Data)
		if err != nil {
			continue
		}
		out = append(out, ds)
	}
	if len(out) == 0 {
		return nil, domain.VerdictIndeterminate
	}
	return out, res.verdict
}

// unsignedVerdict decides what an RRset with no covering signatures means:
// Insecure when some ancestor delegation provably drops out of DNSSEC,
// Indeterminate when no trust anchor covers the name at all, Bogus when the
// chain is intact all the way down and the data should have been signed.
func (v *validator) unsignedVerdict(ctx context.Context, owner string, g *guard) domain.Verdict {
	anchored := false
	for _, zone := range ancestorsOf(owner) {
		ds, dv := v.dsFor(ctx, zone, g)
		switch {
		case dv == domain.VerdictSecure && len(ds) > 0:
			anchored = true
		case dv == domain.VerdictInsecure:
			return domain.VerdictInsecure
		case dv == domain.VerdictBogus:
			return domain.VerdictBogus
		default:
			if anchored {
				return domain.VerdictInsecure
			}
			return domain.VerdictIndeterminate
		}
	}
	if anchored {
		return domain.VerdictBogus
	}
	return domain.VerdictIndeterminate
}

// ancestorsOf lists root-to-name ancestors of name, root first.
func ancestorsOf(name string) []string {
	labels := dnsname.Labels(dnsname.Canonical(name))
	out := make([]string, 0, len(labels)+1)
	for i := 0; i <= len(labels); i++ {
		// Joining zero labels yields "", the root.
		out = append(out, strings.Join(labels[len(labels)-i:], "."))
	}
	return out
}

// matchesRRset checks the signature/RRset consistency beyond owner and
// covered type (RFC 4035 §5.3.1): one class across the set, and every member
// carrying the original TTL the signature was computed over.
func matchesRRset(sig rrdata.RRSIG, rrset []domain.ResourceRecord) bool {
	for _, rr := range rrset {
		if rr.Class != rrset[0].Class {
			return false
		}
		if rr.OriginalTTL() != sig.OriginalTTL {
			return false
		}
	}
	return true
}

// signaturesFor collects the parsed RRSIGs in msg covering (owner, t).
func signaturesFor(msg *domain.Message, owner string, t domain.RRType) []rrdata.RRSIG {
	var sigs []rrdata.RRSIG
	for _, section := range [][]domain.ResourceRecord{msg.Answers, msg.Authority} {
		for _, rr := range section {
			if rr.Type != domain.RRTypeRRSIG || !dnsname.Equal(rr.Name, owner) {
				continue
			}
			sig, err := rrdata.ParseRRSIG(rr.Data)
			if err != nil || sig.TypeCovered != t {
				continue
			}
			sigs = append(sigs, sig)
		}
	}
	return sigs
}

// dsMatchesKey recomputes the DS digest over owner-wire || DNSKEY-RDATA and
// compares it to the DS record (RFC 4034 §5.1.4).
func dsMatchesKey(ds rrdata.DS, owner string, dnskeyData []byte) bool {
	input, err := dnsname.AppendCanonical(nil, owner)
	if err != nil {
		return false
	}
	input = append(input, dnskeyData...)
	var digest []byte
	switch ds.DigestType {
	case rrdata.DigestSHA1:
		sum := sha1.Sum(input)
		digest = sum[:]
	case rrdata.DigestSHA256:
		sum := sha256.Sum256(input)
		digest = sum[:]
	case rrdata.DigestSHA384:
		sum := sha512.Sum384(input)
		digest = sum[:]
	default:
		return false
	}
	return bytes.Equal(digest, ds.Digest)
}

// verifyRRSIG reconstructs the signed data for rrset under sig and verifies
// the signature with key. A nil return means the signature is good.
func verifyRRSIG(sig rrdata.RRSIG, key rrdata.DNSKEY, owner string, rrset []domain.ResourceRecord) error {
	signed, err := buildSignedData(sig, owner, rrset)
	if err != nil {
		return err
	}
	switch sig.Algorithm {
	case rrdata.AlgRSASHA1:
		return verifyRSA(key.PublicKey, crypto.SHA1, sha1sum(signed), sig.Signature)
	case rrdata.AlgRSASHA256:
		sum := sha256.Sum256(signed)
		return verifyRSA(key.PublicKey, crypto.SHA256, sum[:], sig.Signature)
	case rrdata.AlgRSASHA512:
		sum := sha512.Sum512(signed)
		return verifyRSA(key.PublicKey, crypto.SHA512, sum[:], sig.Signature)
	case rrdata.AlgECDSAP256SHA256:
		sum := sha256.Sum256(signed)
		return verifyECDSA(key.PublicKey, elliptic.P256(), sum[:], sig.Signature)
	case rrdata.AlgECDSAP384SHA384:
		sum := sha512.Sum384(signed)
		return verifyECDSA(key.PublicKey, elliptic.P384(), sum[:], sig.Signature)
	case rrdata.AlgEd25519:
		if len(key.PublicKey) != ed25519.PublicKeySize {
			return fmt.Errorf("bad ed25519 key length %d", len(key.PublicKey))
		}
		if !ed25519.Verify(ed25519.PublicKey(key.PublicKey), signed, sig.Signature) {
			return fmt.Errorf("ed25519 signature mismatch")
		}
		return nil
	default:
		return fmt.Errorf("unsupported algorithm %d", sig.Algorithm)
	}
}

func sha1sum(b []byte) []byte {
	sum := sha1.Sum(b)
	return sum[:]
}

// buildSignedData serializes RRSIG-prefix || canonical-RRset per RFC 4034
// §3.1.8.1: owner lowercased (reduced to a wildcard when the signature has
// fewer labels), TTL reset to the original, embedded RDATA names lowercased,
// members sorted by canonical RDATA.
func buildSignedData(sig rrdata.RRSIG, owner string, rrset []domain.ResourceRecord) ([]byte, error) {
	if len(rrset) == 0 {
		return nil, fmt.Errorf("empty rrset")
	}
	data, err := sig.SignedPrefix()
	if err != nil {
		return nil, err
	}
	name := dnsname.Canonical(owner)
	labels := dnsname.Labels(name)
	if int(sig.Labels) < len(labels) {
		// The signature was made over the wildcard that synthesized this
		// answer (RFC 4035 §5.3.2).
		name = "*." + strings.Join(labels[len(labels)-int(sig.Labels):], ".")
	}
	ownerWire, err := dnsname.AppendCanonical(nil, name)
	if err != nil {
		return nil, err
	}

	canon := make([][]byte, 0, len(rrset))
	for _, rr := range rrset {
		c, err := rrdata.Canonical(rr.Type, rr.Data)
		if err != nil {
			return nil, err
		}
		canon = append(canon, c)
	}
	sort.Slice(canon, func(i, j int) bool { return bytes.Compare(canon[i], canon[j]) < 0 })

	for _, rdata := range canon {
		data = append(data, ownerWire...)
		data = appendU16(data, uint16(sig.TypeCovered))
		data = appendU16(data, uint16(rrset[0].Class))
		data = appendU32(data, sig.OriginalTTL)
		data = appendU16(data, uint16(len(rdata)))
		data = append(data, rdata...)
	}
	return data, nil
}

func appendU16(dst []byte, v uint16) []byte {
	return append(dst, byte(v>>8), byte(v))
}

func appendU32(dst []byte, v uint32) []byte {
	return append(dst, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// verifyRSA parses an RFC 3110 public key (length-prefixed exponent, then
// modulus) and checks a PKCS#1 v1.5 signature.
func verifyRSA(pub []byte, hash crypto.Hash, digest, signature []byte) error {
	if len(pub) < 3 {
		return fmt.Errorf("rsa key too short")
	}
	expLen := int(pub[0])
	rest := pub[1:]
	if expLen == 0 {
		if len(rest) < 2 {
			return fmt.Errorf("rsa key too short")
		}
		expLen = int(rest[0])<<8 | int(rest[1])
		rest = rest[2:]
	}
	if expLen == 0 || len(rest) <= expLen {
		return fmt.Errorf("malformed rsa key")
	}
	exp := new(big.Int).SetBytes(rest[:expLen])
	if !exp.IsInt64() || exp.Int64() > int64(1<<31-1) {
		return fmt.Errorf("rsa exponent out of range")
	}
	key := &rsa.PublicKey{
		N: new(big.Int).SetBytes(rest[expLen:]),
		E: int(exp.Int64()),
	}
	return rsa.VerifyPKCS1v15(key, hash, digest, signature)
}

// verifyECDSA checks a raw r||s signature over an uncompressed X||Y key, the
// encodings RFC 6605 mandates.
func verifyECDSA(pub []byte, curve elliptic.Curve, digest, signature []byte) error {
	size := (curve.Params().BitSize + 7) / 8
	if len(pub) != 2*size {
		return fmt.Errorf("bad ecdsa key length %d", len(pub))
	}
	if len(signature) != 2*size {
		return fmt.Errorf("bad ecdsa signature length %d", len(signature))
	}
	key := &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(pub[:size]),
		Y:     new(big.Int).SetBytes(pub[size:]),
	}
	r := new(big.Int).SetBytes(signature[:size])
	s := new(big.Int).SetBytes(signature[size:])
	if !ecdsa.Verify(key, digest, r, s) {
		return fmt.Errorf("ecdsa signature mismatch")
	}
	return nil
}
