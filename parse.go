package pgpcert

import (
	"io"

	"github.com/ProtonMail/go-crypto/openpgp/armor"

	"github.com/pgpcert/pgpcert/errors"
	"github.com/pgpcert/pgpcert/packet"
)

// PublicKeyType and PrivateKeyType are the armor block types
// certificates travel under.
const (
	PublicKeyType  = "PGP PUBLIC KEY BLOCK"
	PrivateKeyType = "PGP PRIVATE KEY BLOCK"
)

// ParseCert reads exactly one binary certificate from r. It fails on
// data that does not start with a primary key and on keyrings holding
// more than one certificate.
func ParseCert(r io.Reader, config *Config) (*Cert, error) {
	var packets []packet.Packet
	pr := packet.NewReader(r)
	for {
		p, err := pr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		packets = append(packets, p)
	}
	return FromPackets(packets, config)
}

// ReadArmoredCert reads one armored certificate from r.
func ReadArmoredCert(r io.Reader, config *Config) (*Cert, error) {
	block, err := armor.Decode(r)
	if err != nil {
		return nil, errors.StructuralError("bad armor: " + err.Error())
	}
	if block.Type != PublicKeyType && block.Type != PrivateKeyType {
		return nil, errors.StructuralError("unexpected armor block type " + block.Type)
	}
	return ParseCert(block.Body, config)
}

// FromPackets assembles a certificate from a packet sequence and
// canonicalizes it. The sequence must begin with a primary key; each
// signature is attached to the most recent component, which
// canonicalization then confirms or corrects.
func FromPackets(packets []packet.Packet, config *Config) (*Cert, error) {
	if len(packets) == 0 {
		return nil, errors.StructuralError("empty certificate")
	}
	if err := checkCertStart(packets[0]); err != nil {
		return nil, err
	}

	c := &Cert{config: config}

	// attach routes a signature into the right list of the current
	// component. place is called again by canonicalization whenever a
	// signature turns out not to belong where it sits.
	var attach func(sig *packet.Signature)

	for i, p := range packets {
		switch p := p.(type) {
		case *packet.PublicKey:
			if !p.IsSubkey {
				if i != 0 {
					return nil, errors.StructuralError("keyring where one certificate was expected")
				}
				c.primary = &KeyBundle{Key: p}
				attach = c.primaryAttacher()
				continue
			}
			b := &KeyBundle{Key: p}
			c.subkeys = append(c.subkeys, b)
			attach = c.subkeyAttacher(b)
		case *packet.SecretKey:
			if !p.IsSubkey {
				if i != 0 {
					return nil, errors.StructuralError("keyring where one certificate was expected")
				}
				c.primary = &KeyBundle{Key: &p.PublicKey, Secret: p.Secret}
				attach = c.primaryAttacher()
				continue
			}
			b := &KeyBundle{Key: &p.PublicKey, Secret: p.Secret}
			c.subkeys = append(c.subkeys, b)
			attach = c.subkeyAttacher(b)
		case *packet.UserId:
			b := &UserIdBundle{UserId: p}
			c.userids = append(c.userids, b)
			attach = bundleAttacher(c, &b.Signatures, true)
		case *packet.UserAttribute:
			b := &UserAttributeBundle{UserAttribute: p}
			c.userAttributes = append(c.userAttributes, b)
			attach = bundleAttacher(c, &b.Signatures, true)
		case *packet.Signature:
			attach(p)
		case *packet.Unknown:
			if disallowedInCert(p.PacketTag) {
				return nil, errors.StructuralError("unexpected " + p.PacketTag.String() + " packet in certificate")
			}
			b := &UnknownBundle{Packet: p}
			c.unknowns = append(c.unknowns, b)
			attach = bundleAttacher(c, &b.Signatures, false)
		case *packet.Marker, *packet.Trust:
			// Carry no certificate content.
		default:
			if disallowedInCert(p.Tag()) {
				return nil, errors.StructuralError("unexpected " + p.Tag().String() + " packet in certificate")
			}
			return nil, errors.StructuralError("unexpected packet in certificate")
		}
	}

	c.canonicalize()
	return c, nil
}

// checkCertStart validates that a packet sequence can begin a
// certificate.
func checkCertStart(p packet.Packet) error {
	switch p := p.(type) {
	case *packet.PublicKey:
		if p.IsSubkey {
			return errors.StructuralError("certificate begins with a subkey")
		}
		return nil
	case *packet.SecretKey:
		if p.IsSubkey {
			return errors.StructuralError("certificate begins with a subkey")
		}
		return nil
	case *packet.Unknown:
		if p.PacketTag == packet.TagPublicKey || p.PacketTag == packet.TagSecretKey {
			if p.Reason != nil {
				if _, ok := p.Reason.(errors.UnsupportedError); ok {
					return errors.UnsupportedError("primary key: " + p.Reason.Error())
				}
			}
			return errors.StructuralError("malformed primary key")
		}
	}
	return errors.StructuralError("certificate does not begin with a primary key")
}

// isSelfAlleged reports whether a signature claims to come from the
// certificate holder: it either names the primary key as its issuer or
// names no issuer at all.
func isSelfAlleged(sig *packet.Signature, pk *packet.PublicKey) bool {
	return !sig.HasIssuerInfo() || sig.CheckKeyIdOrFingerprint(pk)
}

func (c *Cert) primaryAttacher() func(*packet.Signature) {
	return func(sig *packet.Signature) {
		s := &c.primary.Signatures
		self := isSelfAlleged(sig, c.primary.Key)
		switch sig.SigType {
		case packet.SigTypeDirectSignature:
			if self {
				s.SelfSignatures = append(s.SelfSignatures, sig)
			} else {
				s.Certifications = append(s.Certifications, sig)
			}
		case packet.SigTypeKeyRevocation:
			if self {
				s.SelfRevocations = append(s.SelfRevocations, sig)
			} else {
				s.OtherRevocations = append(s.OtherRevocations, sig)
			}
		default:
			s.Certifications = append(s.Certifications, sig)
		}
	}
}

func (c *Cert) subkeyAttacher(b *KeyBundle) func(*packet.Signature) {
	return func(sig *packet.Signature) {
		self := isSelfAlleged(sig, c.primary.Key)
		switch sig.SigType {
		case packet.SigTypeSubkeyBinding:
			if self {
				b.SelfSignatures = append(b.SelfSignatures, sig)
			} else {
				b.Certifications = append(b.Certifications, sig)
			}
		case packet.SigTypeSubkeyRevocation:
			if self {
				b.SelfRevocations = append(b.SelfRevocations, sig)
			} else {
				b.OtherRevocations = append(b.OtherRevocations, sig)
			}
		default:
			b.Certifications = append(b.Certifications, sig)
		}
	}
}

// bundleAttacher routes signatures for user IDs and user attributes;
// split reports whether the component distinguishes signature roles at
// all. Unknown components keep everything in one list.
func bundleAttacher(c *Cert, s *Signatures, split bool) func(*packet.Signature) {
	return func(sig *packet.Signature) {
		if !split {
			s.Certifications = append(s.Certifications, sig)
			return
		}
		self := isSelfAlleged(sig, c.primary.Key)
		switch {
		case sig.SigType.IsCertification():
			if self {
				s.SelfSignatures = append(s.SelfSignatures, sig)
			} else {
				s.Certifications = append(s.Certifications, sig)
			}
		case sig.SigType == packet.SigTypeCertificationRevocation:
			if self {
				s.SelfRevocations = append(s.SelfRevocations, sig)
			} else {
				s.OtherRevocations = append(s.OtherRevocations, sig)
			}
		case sig.SigType == packet.SigTypeAttestationKey && self:
			s.Attestations = append(s.Attestations, sig)
		default:
			s.Certifications = append(s.Certifications, sig)
		}
	}
}

// disallowedInCert lists the packet tags that can never be part of a
// certificate. Finding one means the input is a message, not a key.
func disallowedInCert(tag packet.Tag) bool {
	switch tag {
	case packet.TagReserved,
		packet.TagEncryptedKey,
		packet.TagSymmetricKeyEncrypted,
		packet.TagOnePassSignature,
		packet.TagCompressed,
		packet.TagSymmetricallyEncrypted,
		packet.TagLiteralData,
		packet.TagSymmetricallyEncryptedIntegrityProtected,
		packet.TagModificationDetectionCode,
		packet.TagAEADEncrypted:
		return true
	}
	return false
}
