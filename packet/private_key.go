package packet

import (
	"io"

	"github.com/pgpcert/pgpcert/errors"
)

// SecretKey represents a version 4 secret key packet. The secret part,
// from the S2K usage octet to the end of the packet, is carried as an
// opaque blob: nothing here signs or decrypts, and keeping the bytes
// untouched preserves round-trips whether the material is protected or
// not. See RFC 4880, section 5.5.3.
type SecretKey struct {
	PublicKey
	Secret []byte
}

func (sk *SecretKey) Tag() Tag {
	if sk.IsSubkey {
		return TagSecretSubkey
	}
	return TagSecretKey
}

func (sk *SecretKey) parse(body []byte) error {
	switch {
	case len(body) < 6:
		return errors.StructuralError("truncated secret key packet")
	case body[0] != 4:
		return errors.UnsupportedError("secret key packet version")
	}
	if !knownKeyAlgorithm(PublicKeyAlgorithm(body[5])) {
		// The public and secret parts cannot be told apart without
		// understanding the algorithm.
		return errors.UnsupportedError("secret key with unrecognized algorithm")
	}
	if err := sk.PublicKey.parse(body); err != nil {
		return err
	}
	consumed, err := sk.PublicKey.parseMaterial()
	if err != nil {
		return err
	}
	sk.Secret = sk.PublicKey.Material[consumed:]
	sk.PublicKey.Material = sk.PublicKey.Material[:consumed]
	sk.setFingerprintAndKeyId()
	return nil
}

func (sk *SecretKey) bodyLen() int {
	return 6 + len(sk.Material) + len(sk.Secret)
}

// Serialize writes the secret key packet, framed, to w.
func (sk *SecretKey) Serialize(w io.Writer) error {
	if err := serializeHeader(w, sk.Tag(), sk.bodyLen()); err != nil {
		return err
	}
	if err := sk.serializeWithoutHeaders(w); err != nil {
		return err
	}
	_, err := w.Write(sk.Secret)
	return err
}

func knownKeyAlgorithm(pka PublicKeyAlgorithm) bool {
	switch pka {
	case PubKeyAlgoRSA, PubKeyAlgoRSAEncryptOnly, PubKeyAlgoRSASignOnly,
		PubKeyAlgoDSA, PubKeyAlgoElGamal, PubKeyAlgoECDSA, PubKeyAlgoECDH,
		PubKeyAlgoEdDSA, PubKeyAlgoEd25519, PubKeyAlgoEd448:
		return true
	}
	return false
}
