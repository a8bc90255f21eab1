package packet

import (
	"bytes"
	"crypto/dsa"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"time"

	"github.com/cloudflare/circl/sign/ed448"

	"github.com/pgpcert/pgpcert/errors"
	"github.com/pgpcert/pgpcert/internal/encoding"
)

// PublicKey represents a version 4 public key packet, primary or
// subkey. The algorithm-specific field is kept raw in Material so the
// packet round-trips exactly; recognized algorithms additionally get
// their components parsed for verification. See RFC 4880, section 5.5.2.
type PublicKey struct {
	Version      int
	CreationTime time.Time
	PubKeyAlgo   PublicKeyAlgorithm
	IsSubkey     bool

	Fingerprint []byte
	KeyId       uint64

	// Material is the raw algorithm-specific portion of the packet.
	Material []byte

	n, e, p, q, g, y *encoding.MPI
	oid              *encoding.OID
	point            *encoding.MPI
	kdf              []byte
	rawPoint         []byte
}

func (pk *PublicKey) Tag() Tag {
	if pk.IsSubkey {
		return TagPublicSubkey
	}
	return TagPublicKey
}

func (pk *PublicKey) parse(body []byte) error {
	if len(body) < 6 {
		return errors.StructuralError("truncated public key packet")
	}
	switch body[0] {
	case 4:
	case 2, 3:
		return errors.UnsupportedError("legacy public key version " + strconv.Itoa(int(body[0])))
	default:
		return errors.UnsupportedError("public key version " + strconv.Itoa(int(body[0])))
	}
	pk.Version = int(body[0])
	pk.CreationTime = time.Unix(int64(binary.BigEndian.Uint32(body[1:5])), 0)
	pk.PubKeyAlgo = PublicKeyAlgorithm(body[5])
	pk.Material = body[6:]

	if _, err := pk.parseMaterial(); err != nil {
		return err
	}
	pk.setFingerprintAndKeyId()
	return nil
}

// parseMaterial parses the algorithm-specific components out of
// pk.Material and returns how many bytes of it they span.
func (pk *PublicKey) parseMaterial() (int, error) {
	r := bytes.NewReader(pk.Material)
	var err error
	readMPI := func() *encoding.MPI {
		if err != nil {
			return nil
		}
		m := new(encoding.MPI)
		_, err = m.ReadFrom(r)
		return m
	}

	switch pk.PubKeyAlgo {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly, PubKeyAlgoRSASignOnly:
		pk.n, pk.e = readMPI(), readMPI()
	case PubKeyAlgoDSA:
		pk.p, pk.q, pk.g, pk.y = readMPI(), readMPI(), readMPI(), readMPI()
	case PubKeyAlgoElGamal:
		pk.p, pk.g, pk.y = readMPI(), readMPI(), readMPI()
	case PubKeyAlgoECDSA, PubKeyAlgoEdDSA:
		pk.oid = new(encoding.OID)
		if _, err = pk.oid.ReadFrom(r); err == nil {
			pk.point = readMPI()
		}
	case PubKeyAlgoECDH:
		pk.oid = new(encoding.OID)
		if _, err = pk.oid.ReadFrom(r); err == nil {
			pk.point = readMPI()
		}
		if err == nil {
			var size [1]byte
			if _, err = io.ReadFull(r, size[:]); err == nil {
				pk.kdf = make([]byte, size[0])
				_, err = io.ReadFull(r, pk.kdf)
			}
		}
	case PubKeyAlgoEd25519:
		pk.rawPoint = make([]byte, ed25519.PublicKeySize)
		_, err = io.ReadFull(r, pk.rawPoint)
	case PubKeyAlgoEd448:
		pk.rawPoint = make([]byte, ed448.PublicKeySize)
		_, err = io.ReadFull(r, pk.rawPoint)
	default:
		// Unrecognized algorithms are carried opaquely. The key still
		// has a fingerprint and serializes; only verification fails.
		return len(pk.Material), nil
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return 0, errors.StructuralError("truncated key material")
	}
	return len(pk.Material) - r.Len(), err
}

func (pk *PublicKey) setFingerprintAndKeyId() {
	digest := sha1.New()
	pk.SerializeForHash(digest)
	pk.Fingerprint = digest.Sum(nil)
	pk.KeyId = binary.BigEndian.Uint64(pk.Fingerprint[12:20])
}

func (pk *PublicKey) bodyLen() int {
	return 6 + len(pk.Material)
}

func (pk *PublicKey) serializeWithoutHeaders(w io.Writer) error {
	var buf [6]byte
	buf[0] = byte(pk.Version)
	binary.BigEndian.PutUint32(buf[1:5], uint32(pk.CreationTime.Unix()))
	buf[5] = byte(pk.PubKeyAlgo)
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	_, err := w.Write(pk.Material)
	return err
}

// Serialize writes the public key packet, framed, to w.
func (pk *PublicKey) Serialize(w io.Writer) error {
	if err := serializeHeader(w, pk.Tag(), pk.bodyLen()); err != nil {
		return err
	}
	return pk.serializeWithoutHeaders(w)
}

// SerializeForHash feeds the key into h the way signatures over keys
// expect: a 0x99 octet, a two-octet length and then the packet body.
func (pk *PublicKey) SerializeForHash(h io.Writer) {
	l := pk.bodyLen()
	h.Write([]byte{0x99, byte(l >> 8), byte(l)})
	pk.serializeWithoutHeaders(h)
}

// PublicCmp orders keys by their public packet body. Two keys compare
// equal exactly when they serialize identically, which for v4 keys
// also means identical fingerprints.
func (pk *PublicKey) PublicCmp(other *PublicKey) int {
	if c := pk.Version - other.Version; c != 0 {
		return c
	}
	if c := pk.CreationTime.Unix() - other.CreationTime.Unix(); c != 0 {
		if c < 0 {
			return -1
		}
		return 1
	}
	if c := int(pk.PubKeyAlgo) - int(other.PubKeyAlgo); c != 0 {
		return c
	}
	return bytes.Compare(pk.Material, other.Material)
}

// KeyIdString returns the key ID as upper case hex.
func (pk *PublicKey) KeyIdString() string {
	return fmt.Sprintf("%X", pk.Fingerprint[12:20])
}

// FingerprintString returns the fingerprint as upper case hex.
func (pk *PublicKey) FingerprintString() string {
	return fmt.Sprintf("%X", pk.Fingerprint)
}

// VerifySignatureDigest checks that sig is a valid signature by pk
// over the given digest. The digest must already cover the role prefix
// and the signature trailer.
func (pk *PublicKey) VerifySignatureDigest(digest []byte, sig *Signature) error {
	if !sig.CheckDigestPrefix(digest) {
		return errors.SignatureError("hash tag does not match")
	}
	if pk.PubKeyAlgo != sig.PubKeyAlgo {
		return errors.SignatureError("key and signature algorithm mismatch")
	}

	switch pk.PubKeyAlgo {
	case PubKeyAlgoRSA, PubKeyAlgoRSASignOnly:
		hash, err := hashForId(sig.HashId)
		if err != nil {
			return err
		}
		mpis, err := readMPIs(sig.Material, 1)
		if err != nil {
			return err
		}
		rsaPub := &rsa.PublicKey{
			N: new(big.Int).SetBytes(pk.n.Bytes()),
			E: int(new(big.Int).SetBytes(pk.e.Bytes()).Int64()),
		}
		if rsa.VerifyPKCS1v15(rsaPub, hash, digest, padToKeySize(rsaPub, mpis[0].Bytes())) != nil {
			return errors.SignatureError("RSA verification failure")
		}
		return nil
	case PubKeyAlgoDSA:
		mpis, err := readMPIs(sig.Material, 2)
		if err != nil {
			return err
		}
		dsaPub := &dsa.PublicKey{
			Parameters: dsa.Parameters{
				P: new(big.Int).SetBytes(pk.p.Bytes()),
				Q: new(big.Int).SetBytes(pk.q.Bytes()),
				G: new(big.Int).SetBytes(pk.g.Bytes()),
			},
			Y: new(big.Int).SetBytes(pk.y.Bytes()),
		}
		// DSA requires the digest truncated to the group order size.
		qLen := len(dsaPub.Q.Bytes())
		hashed := digest
		if len(hashed) > qLen {
			hashed = hashed[:qLen]
		}
		r := new(big.Int).SetBytes(mpis[0].Bytes())
		s := new(big.Int).SetBytes(mpis[1].Bytes())
		if !dsa.Verify(dsaPub, hashed, r, s) {
			return errors.SignatureError("DSA verification failure")
		}
		return nil
	case PubKeyAlgoECDSA:
		curve, ok := nistCurveForOID(pk.oid.Bytes())
		if !ok {
			return errors.UnsupportedError("unknown elliptic curve")
		}
		x, y, err := parseUncompressedPoint(pk.point.Bytes())
		if err != nil {
			return err
		}
		mpis, err := readMPIs(sig.Material, 2)
		if err != nil {
			return err
		}
		ecdsaPub := &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
		r := new(big.Int).SetBytes(mpis[0].Bytes())
		s := new(big.Int).SetBytes(mpis[1].Bytes())
		if !ecdsa.Verify(ecdsaPub, digest, r, s) {
			return errors.SignatureError("ECDSA verification failure")
		}
		return nil
	case PubKeyAlgoEdDSA:
		if !oidEqual(pk.oid.Bytes(), oidEd25519) {
			return errors.UnsupportedError("unknown EdDSA curve")
		}
		point := pk.point.Bytes()
		if len(point) != ed25519.PublicKeySize+1 || point[0] != 0x40 {
			return errors.StructuralError("invalid EdDSA public key point")
		}
		mpis, err := readMPIs(sig.Material, 2)
		if err != nil {
			return err
		}
		sigBytes := make([]byte, ed25519.SignatureSize)
		rBytes, sBytes := mpis[0].Bytes(), mpis[1].Bytes()
		if len(rBytes) > 32 || len(sBytes) > 32 {
			return errors.StructuralError("invalid EdDSA signature material")
		}
		copy(sigBytes[32-len(rBytes):32], rBytes)
		copy(sigBytes[64-len(sBytes):], sBytes)
		if !ed25519.Verify(ed25519.PublicKey(point[1:]), digest, sigBytes) {
			return errors.SignatureError("EdDSA verification failure")
		}
		return nil
	case PubKeyAlgoEd25519:
		if len(sig.Material) != ed25519.SignatureSize {
			return errors.StructuralError("invalid Ed25519 signature material")
		}
		if !ed25519.Verify(ed25519.PublicKey(pk.rawPoint), digest, sig.Material) {
			return errors.SignatureError("Ed25519 verification failure")
		}
		return nil
	case PubKeyAlgoEd448:
		if len(sig.Material) != ed448.SignatureSize {
			return errors.StructuralError("invalid Ed448 signature material")
		}
		if !ed448.Verify(ed448.PublicKey(pk.rawPoint), digest, sig.Material, "") {
			return errors.SignatureError("Ed448 verification failure")
		}
		return nil
	}
	return errors.UnsupportedError("public key algorithm " + strconv.Itoa(int(pk.PubKeyAlgo)))
}

// DirectKeyDigest computes the digest a direct key signature or key
// revocation over pk covers.
func DirectKeyDigest(pk *PublicKey, sig *Signature) ([]byte, error) {
	h, err := sig.NewHash()
	if err != nil {
		return nil, err
	}
	pk.SerializeForHash(h)
	sig.hashTrailer(h)
	return h.Sum(nil), nil
}

// KeyBindingDigest computes the digest a subkey binding, primary key
// binding or subkey revocation covers: the primary key followed by the
// subkey.
func KeyBindingDigest(primary, sub *PublicKey, sig *Signature) ([]byte, error) {
	h, err := sig.NewHash()
	if err != nil {
		return nil, err
	}
	primary.SerializeForHash(h)
	sub.SerializeForHash(h)
	sig.hashTrailer(h)
	return h.Sum(nil), nil
}

// UserIdBindingDigest computes the digest a certification over a user
// ID covers: the primary key followed by the user ID.
func UserIdBindingDigest(pk *PublicKey, id *UserId, sig *Signature) ([]byte, error) {
	h, err := sig.NewHash()
	if err != nil {
		return nil, err
	}
	pk.SerializeForHash(h)
	var header [5]byte
	header[0] = 0xb4
	binary.BigEndian.PutUint32(header[1:], uint32(len(id.Id)))
	h.Write(header[:])
	h.Write([]byte(id.Id))
	sig.hashTrailer(h)
	return h.Sum(nil), nil
}

// UserAttributeBindingDigest computes the digest a certification over
// a user attribute covers: the primary key followed by the attribute
// contents.
func UserAttributeBindingDigest(pk *PublicKey, uat *UserAttribute, sig *Signature) ([]byte, error) {
	h, err := sig.NewHash()
	if err != nil {
		return nil, err
	}
	pk.SerializeForHash(h)
	var header [5]byte
	header[0] = 0xd1
	binary.BigEndian.PutUint32(header[1:], uint32(len(uat.Contents)))
	h.Write(header[:])
	h.Write(uat.Contents)
	sig.hashTrailer(h)
	return h.Sum(nil), nil
}

// VerifyDirectKeySignature checks a direct key signature on pk.
func (pk *PublicKey) VerifyDirectKeySignature(sig *Signature) error {
	if sig.SigType != SigTypeDirectSignature {
		return errors.InvalidArgumentError("signature is not a direct key signature")
	}
	digest, err := DirectKeyDigest(pk, sig)
	if err != nil {
		return err
	}
	return pk.VerifySignatureDigest(digest, sig)
}

// VerifyKeyRevocationSignature checks a key revocation on pk.
func (pk *PublicKey) VerifyKeyRevocationSignature(sig *Signature) error {
	if sig.SigType != SigTypeKeyRevocation {
		return errors.InvalidArgumentError("signature is not a key revocation")
	}
	digest, err := DirectKeyDigest(pk, sig)
	if err != nil {
		return err
	}
	return pk.VerifySignatureDigest(digest, sig)
}

// VerifyKeyBindingSignature checks a subkey binding made by pk over
// sub. If the binding grants the subkey signing capability the
// embedded cross signature by the subkey is required and checked too.
func (pk *PublicKey) VerifyKeyBindingSignature(sub *PublicKey, sig *Signature) error {
	if sig.SigType != SigTypeSubkeyBinding {
		return errors.InvalidArgumentError("signature is not a subkey binding")
	}
	digest, err := KeyBindingDigest(pk, sub, sig)
	if err != nil {
		return err
	}
	if err := pk.VerifySignatureDigest(digest, sig); err != nil {
		return err
	}

	if flags, ok := sig.Hashed.Subpacket(SubpacketKeyFlags); ok && len(flags.Contents) > 0 && flags.Contents[0]&0x02 != 0 {
		embedded, ok := sig.EmbeddedSignature()
		if !ok {
			return errors.SignatureError("signing subkey is missing cross signature")
		}
		if embedded.SigType != SigTypePrimaryKeyBinding {
			return errors.SignatureError("invalid cross signature type")
		}
		crossDigest, err := KeyBindingDigest(pk, sub, embedded)
		if err != nil {
			return err
		}
		if err := sub.VerifySignatureDigest(crossDigest, embedded); err != nil {
			return errors.SignatureError("invalid cross signature")
		}
	}
	return nil
}

// VerifySubkeyRevocationSignature checks a subkey revocation made by
// pk over sub.
func (pk *PublicKey) VerifySubkeyRevocationSignature(sub *PublicKey, sig *Signature) error {
	if sig.SigType != SigTypeSubkeyRevocation {
		return errors.InvalidArgumentError("signature is not a subkey revocation")
	}
	digest, err := KeyBindingDigest(pk, sub, sig)
	if err != nil {
		return err
	}
	return pk.VerifySignatureDigest(digest, sig)
}

// VerifyUserIdSignature checks a certification over id made by pk.
func (pk *PublicKey) VerifyUserIdSignature(id *UserId, sig *Signature) error {
	if !sig.SigType.IsCertification() {
		return errors.InvalidArgumentError("signature is not a certification")
	}
	digest, err := UserIdBindingDigest(pk, id, sig)
	if err != nil {
		return err
	}
	return pk.VerifySignatureDigest(digest, sig)
}

// VerifyUserIdRevocationSignature checks a certification revocation
// over id made by pk.
func (pk *PublicKey) VerifyUserIdRevocationSignature(id *UserId, sig *Signature) error {
	if sig.SigType != SigTypeCertificationRevocation {
		return errors.InvalidArgumentError("signature is not a certification revocation")
	}
	digest, err := UserIdBindingDigest(pk, id, sig)
	if err != nil {
		return err
	}
	return pk.VerifySignatureDigest(digest, sig)
}

// VerifyUserIdAttestationSignature checks an attestation key signature
// over id made by pk.
func (pk *PublicKey) VerifyUserIdAttestationSignature(id *UserId, sig *Signature) error {
	if sig.SigType != SigTypeAttestationKey {
		return errors.InvalidArgumentError("signature is not an attestation")
	}
	digest, err := UserIdBindingDigest(pk, id, sig)
	if err != nil {
		return err
	}
	return pk.VerifySignatureDigest(digest, sig)
}

// VerifyUserAttributeSignature checks a certification over uat made by
// pk.
func (pk *PublicKey) VerifyUserAttributeSignature(uat *UserAttribute, sig *Signature) error {
	if !sig.SigType.IsCertification() {
		return errors.InvalidArgumentError("signature is not a certification")
	}
	digest, err := UserAttributeBindingDigest(pk, uat, sig)
	if err != nil {
		return err
	}
	return pk.VerifySignatureDigest(digest, sig)
}

// VerifyUserAttributeRevocationSignature checks a certification
// revocation over uat made by pk.
func (pk *PublicKey) VerifyUserAttributeRevocationSignature(uat *UserAttribute, sig *Signature) error {
	if sig.SigType != SigTypeCertificationRevocation {
		return errors.InvalidArgumentError("signature is not a certification revocation")
	}
	digest, err := UserAttributeBindingDigest(pk, uat, sig)
	if err != nil {
		return err
	}
	return pk.VerifySignatureDigest(digest, sig)
}

// VerifyUserAttributeAttestationSignature checks an attestation key
// signature over uat made by pk.
func (pk *PublicKey) VerifyUserAttributeAttestationSignature(uat *UserAttribute, sig *Signature) error {
	if sig.SigType != SigTypeAttestationKey {
		return errors.InvalidArgumentError("signature is not an attestation")
	}
	digest, err := UserAttributeBindingDigest(pk, uat, sig)
	if err != nil {
		return err
	}
	return pk.VerifySignatureDigest(digest, sig)
}

func readMPIs(material []byte, n int) ([]*encoding.MPI, error) {
	r := bytes.NewReader(material)
	out := make([]*encoding.MPI, n)
	for i := range out {
		out[i] = new(encoding.MPI)
		if _, err := out[i].ReadFrom(r); err != nil {
			return nil, errors.StructuralError("truncated signature material")
		}
	}
	return out, nil
}

func parseUncompressedPoint(b []byte) (x, y *big.Int, err error) {
	if len(b) < 3 || b[0] != 0x04 || len(b)%2 != 1 {
		return nil, nil, errors.StructuralError("invalid uncompressed point")
	}
	coordLen := (len(b) - 1) / 2
	x = new(big.Int).SetBytes(b[1 : 1+coordLen])
	y = new(big.Int).SetBytes(b[1+coordLen:])
	return x, y, nil
}

func padToKeySize(pub *rsa.PublicKey, b []byte) []byte {
	k := (pub.N.BitLen() + 7) / 8
	if len(b) >= k {
		return b
	}
	padded := make([]byte, k)
	copy(padded[k-len(b):], b)
	return padded
}
