package packet

import (
	"crypto"
	"crypto/elliptic"
	"strconv"

	_ "crypto/md5"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"

	_ "golang.org/x/crypto/sha3"

	"github.com/pgpcert/pgpcert/errors"
)

// PublicKeyAlgorithm represents the different public key system specified for
// OpenPGP. See RFC 4880, section 9.1, and RFC 9580, section 9.1.
type PublicKeyAlgorithm uint8

const (
	PubKeyAlgoRSA            PublicKeyAlgorithm = 1
	PubKeyAlgoRSAEncryptOnly PublicKeyAlgorithm = 2
	PubKeyAlgoRSASignOnly    PublicKeyAlgorithm = 3
	PubKeyAlgoElGamal        PublicKeyAlgorithm = 16
	PubKeyAlgoDSA            PublicKeyAlgorithm = 17
	PubKeyAlgoECDH           PublicKeyAlgorithm = 18
	PubKeyAlgoECDSA          PublicKeyAlgorithm = 19
	PubKeyAlgoEdDSA          PublicKeyAlgorithm = 22
	PubKeyAlgoEd25519        PublicKeyAlgorithm = 27
	PubKeyAlgoEd448          PublicKeyAlgorithm = 28
)

// CanSign returns true if it's possible for a public key of the given
// algorithm to sign a message.
func (pka PublicKeyAlgorithm) CanSign() bool {
	return pka != PubKeyAlgoRSAEncryptOnly && pka != PubKeyAlgoElGamal && pka != PubKeyAlgoECDH
}

// SignatureType represents the different semantic meanings of an OpenPGP
// signature. See RFC 4880, section 5.2.1.
type SignatureType uint8

const (
	SigTypeGenericCert            SignatureType = 0x10
	SigTypePersonaCert            SignatureType = 0x11
	SigTypeCasualCert             SignatureType = 0x12
	SigTypePositiveCert           SignatureType = 0x13
	SigTypeAttestationKey         SignatureType = 0x16
	SigTypeSubkeyBinding          SignatureType = 0x18
	SigTypePrimaryKeyBinding      SignatureType = 0x19
	SigTypeDirectSignature        SignatureType = 0x1F
	SigTypeKeyRevocation          SignatureType = 0x20
	SigTypeSubkeyRevocation       SignatureType = 0x28
	SigTypeCertificationRevocation SignatureType = 0x30
)

// IsCertification returns true for the four user ID certification types.
func (st SignatureType) IsCertification() bool {
	switch st {
	case SigTypeGenericCert, SigTypePersonaCert, SigTypeCasualCert, SigTypePositiveCert:
		return true
	}
	return false
}

// hashIds maps the OpenPGP hash algorithm identifiers of RFC 9580,
// section 9.5, to Go crypto.Hash values. MD5 and SHA-1 remain so that
// old signatures can still be inspected and matched.
var hashIds = map[uint8]crypto.Hash{
	1:  crypto.MD5,
	2:  crypto.SHA1,
	3:  crypto.RIPEMD160,
	8:  crypto.SHA256,
	9:  crypto.SHA384,
	10: crypto.SHA512,
	11: crypto.SHA224,
	12: crypto.SHA3_256,
	14: crypto.SHA3_512,
}

// hashForId returns the crypto.Hash for an OpenPGP hash id, or an error
// if the id is unknown or the hash is not linked into the binary.
func hashForId(id uint8) (crypto.Hash, error) {
	hash, ok := hashIds[id]
	if !ok {
		return 0, errors.UnsupportedError("hash algorithm: " + strconv.Itoa(int(id)))
	}
	if !hash.Available() {
		return 0, errors.UnsupportedError("hash algorithm not available")
	}
	return hash, nil
}

// Elliptic curve OIDs from RFC 6637, section 11, and RFC 9580,
// section 9.2.
var (
	oidP256      = []byte{0x2A, 0x86, 0x48, 0xCE, 0x3D, 0x03, 0x01, 0x07}
	oidP384      = []byte{0x2B, 0x81, 0x04, 0x00, 0x22}
	oidP521      = []byte{0x2B, 0x81, 0x04, 0x00, 0x23}
	oidEd25519   = []byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0xDA, 0x47, 0x0F, 0x01}
	oidEd448     = []byte{0x2B, 0x65, 0x71}
	oidCurve25519 = []byte{0x2B, 0x06, 0x01, 0x04, 0x01, 0x97, 0x55, 0x01, 0x05, 0x01}
)

func oidEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// nistCurveForOID maps a curve OID to the stdlib elliptic curve, for the
// curves ECDSA supports natively. Other curves fail verification with an
// UnsupportedError.
func nistCurveForOID(oid []byte) (elliptic.Curve, bool) {
	switch {
	case oidEqual(oid, oidP256):
		return elliptic.P256(), true
	case oidEqual(oid, oidP384):
		return elliptic.P384(), true
	case oidEqual(oid, oidP521):
		return elliptic.P521(), true
	}
	return nil, false
}
