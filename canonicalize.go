package pgpcert

import (
	"go.uber.org/zap"

	"github.com/pgpcert/pgpcert/packet"
)

// reconsideredSig is a signature that was not valid where it sat. If
// it was attached to an unknown component, unknownIdx remembers which
// one so the signature can return there when no better home is found.
type reconsideredSig struct {
	unknownIdx int
	sig        *packet.Signature
}

// canonicalize brings the certificate into its canonical form.
//
// First everything is sorted and deduplicated. Then every signature is
// checked against the component it is attached to: self signatures
// must verify cryptographically, third-party signatures must at least
// carry a digest prefix consistent with the component. Whatever fails
// is reconsidered against every component its type could bind to, and
// only signatures that fit nowhere end up in the bad list. A final
// sort restores the canonical order, which makes the whole procedure
// idempotent.
func (c *Cert) canonicalize() {
	log := c.config.logger()
	c.sortAndDedup()

	pk := c.primary.Key
	var pool []reconsideredSig

	// Primary key.
	{
		s := &c.primary.Signatures
		s.SelfSignatures = keepSigs(s.SelfSignatures, &pool, func(sig *packet.Signature) bool {
			return pk.VerifyDirectKeySignature(sig) == nil
		})
		s.SelfRevocations = keepSigs(s.SelfRevocations, &pool, func(sig *packet.Signature) bool {
			return pk.VerifyKeyRevocationSignature(sig) == nil
		})
		s.Certifications = keepSigs(s.Certifications, &pool, func(sig *packet.Signature) bool {
			return directKeyPrefixOK(pk, sig)
		})
		s.OtherRevocations = keepSigs(s.OtherRevocations, &pool, func(sig *packet.Signature) bool {
			return directKeyPrefixOK(pk, sig)
		})
		// Keys cannot be attested.
		s.Attestations = keepSigs(s.Attestations, &pool, func(*packet.Signature) bool { return false })
	}

	for _, b := range c.userids {
		b := b
		b.SelfSignatures = keepSigs(b.SelfSignatures, &pool, func(sig *packet.Signature) bool {
			return pk.VerifyUserIdSignature(b.UserId, sig) == nil
		})
		b.Attestations = keepSigs(b.Attestations, &pool, func(sig *packet.Signature) bool {
			return pk.VerifyUserIdAttestationSignature(b.UserId, sig) == nil
		})
		b.SelfRevocations = keepSigs(b.SelfRevocations, &pool, func(sig *packet.Signature) bool {
			return pk.VerifyUserIdRevocationSignature(b.UserId, sig) == nil
		})
		b.Certifications = keepSigs(b.Certifications, &pool, func(sig *packet.Signature) bool {
			return userIdPrefixOK(pk, b.UserId, sig)
		})
		b.OtherRevocations = keepSigs(b.OtherRevocations, &pool, func(sig *packet.Signature) bool {
			return userIdPrefixOK(pk, b.UserId, sig)
		})
	}

	for _, b := range c.userAttributes {
		b := b
		b.SelfSignatures = keepSigs(b.SelfSignatures, &pool, func(sig *packet.Signature) bool {
			return pk.VerifyUserAttributeSignature(b.UserAttribute, sig) == nil
		})
		b.Attestations = keepSigs(b.Attestations, &pool, func(sig *packet.Signature) bool {
			return pk.VerifyUserAttributeAttestationSignature(b.UserAttribute, sig) == nil
		})
		b.SelfRevocations = keepSigs(b.SelfRevocations, &pool, func(sig *packet.Signature) bool {
			return pk.VerifyUserAttributeRevocationSignature(b.UserAttribute, sig) == nil
		})
		b.Certifications = keepSigs(b.Certifications, &pool, func(sig *packet.Signature) bool {
			return userAttributePrefixOK(pk, b.UserAttribute, sig)
		})
		b.OtherRevocations = keepSigs(b.OtherRevocations, &pool, func(sig *packet.Signature) bool {
			return userAttributePrefixOK(pk, b.UserAttribute, sig)
		})
	}

	for _, b := range c.subkeys {
		b := b
		b.SelfSignatures = keepSigs(b.SelfSignatures, &pool, func(sig *packet.Signature) bool {
			return pk.VerifyKeyBindingSignature(b.Key, sig) == nil
		})
		b.SelfRevocations = keepSigs(b.SelfRevocations, &pool, func(sig *packet.Signature) bool {
			return pk.VerifySubkeyRevocationSignature(b.Key, sig) == nil
		})
		b.Certifications = keepSigs(b.Certifications, &pool, func(sig *packet.Signature) bool {
			return keyBindingPrefixOK(pk, b.Key, sig)
		})
		b.OtherRevocations = keepSigs(b.OtherRevocations, &pool, func(sig *packet.Signature) bool {
			return keyBindingPrefixOK(pk, b.Key, sig)
		})
		b.Attestations = keepSigs(b.Attestations, &pool, func(*packet.Signature) bool { return false })
	}

	// Signatures attached to unknown components cannot be checked, but
	// they may belong to a component we do understand. Remember where
	// they came from so unplaceable ones can go back.
	for i, b := range c.unknowns {
		for _, sig := range b.inOrder() {
			pool = append(pool, reconsideredSig{unknownIdx: i, sig: sig})
		}
		b.Signatures = Signatures{}
	}

	for _, sig := range c.bad {
		pool = append(pool, reconsideredSig{unknownIdx: -1, sig: sig})
	}
	c.bad = nil

	c.relocate(pool, log)
	c.sortAndDedup()
}

// relocate tries to find a home for every signature that was invalid
// where it sat. Self signatures must verify against the candidate
// component. Third-party signatures cannot be verified without the
// issuer's key, so a matching digest prefix is enough; when several
// components match, the signature is duplicated onto each of them
// rather than guessing, and a later merge with better information can
// sort it out.
func (c *Cert) relocate(pool []reconsideredSig, log *zap.Logger) {
	pk := c.primary.Key

	for len(pool) > 0 {
		rs := pool[len(pool)-1]
		pool = pool[:len(pool)-1]
		sig := rs.sig
		self := isSelfAlleged(sig, pk)
		found := false

		// place hands the signature, or a copy if it already found a
		// component, to dst.
		place := func(dst *[]*packet.Signature, where string) {
			s := sig
			if found {
				s = sig.Clone()
				log.Debug("ambiguous third-party signature duplicated",
					zap.String("component", where),
					zap.Uint8("type", uint8(sig.SigType)))
			} else {
				log.Debug("signature relocated",
					zap.String("component", where),
					zap.Uint8("type", uint8(sig.SigType)))
			}
			*dst = append(*dst, s)
			found = true
		}

		switch {
		case sig.SigType == packet.SigTypeDirectSignature:
			if self {
				if pk.VerifyDirectKeySignature(sig) == nil {
					place(&c.primary.SelfSignatures, "primary key")
				}
			} else if directKeyPrefixOK(pk, sig) {
				place(&c.primary.Certifications, "primary key")
			}
		case sig.SigType == packet.SigTypeKeyRevocation:
			if self {
				if pk.VerifyKeyRevocationSignature(sig) == nil {
					place(&c.primary.SelfRevocations, "primary key")
				}
			} else if directKeyPrefixOK(pk, sig) {
				place(&c.primary.OtherRevocations, "primary key")
			}
		case sig.SigType.IsCertification():
			for _, b := range c.userids {
				if self {
					if pk.VerifyUserIdSignature(b.UserId, sig) == nil {
						place(&b.SelfSignatures, b.UserId.Id)
					}
				} else if userIdPrefixOK(pk, b.UserId, sig) {
					place(&b.Certifications, b.UserId.Id)
				}
			}
			for _, b := range c.userAttributes {
				if self {
					if pk.VerifyUserAttributeSignature(b.UserAttribute, sig) == nil {
						place(&b.SelfSignatures, "user attribute")
					}
				} else if userAttributePrefixOK(pk, b.UserAttribute, sig) {
					place(&b.Certifications, "user attribute")
				}
			}
		case sig.SigType == packet.SigTypeCertificationRevocation:
			for _, b := range c.userids {
				if self {
					if pk.VerifyUserIdRevocationSignature(b.UserId, sig) == nil {
						place(&b.SelfRevocations, b.UserId.Id)
					}
				} else if userIdPrefixOK(pk, b.UserId, sig) {
					place(&b.OtherRevocations, b.UserId.Id)
				}
			}
			for _, b := range c.userAttributes {
				if self {
					if pk.VerifyUserAttributeRevocationSignature(b.UserAttribute, sig) == nil {
						place(&b.SelfRevocations, "user attribute")
					}
				} else if userAttributePrefixOK(pk, b.UserAttribute, sig) {
					place(&b.OtherRevocations, "user attribute")
				}
			}
		case sig.SigType == packet.SigTypeAttestationKey:
			// Only the certificate holder attests.
			if self {
				for _, b := range c.userids {
					if pk.VerifyUserIdAttestationSignature(b.UserId, sig) == nil {
						place(&b.Attestations, b.UserId.Id)
					}
				}
				for _, b := range c.userAttributes {
					if pk.VerifyUserAttributeAttestationSignature(b.UserAttribute, sig) == nil {
						place(&b.Attestations, "user attribute")
					}
				}
			}
		case sig.SigType == packet.SigTypeSubkeyBinding:
			for _, b := range c.subkeys {
				if self {
					if pk.VerifyKeyBindingSignature(b.Key, sig) == nil {
						place(&b.SelfSignatures, b.Key.KeyIdString())
					}
				} else if keyBindingPrefixOK(pk, b.Key, sig) {
					place(&b.Certifications, b.Key.KeyIdString())
				}
			}
		case sig.SigType == packet.SigTypeSubkeyRevocation:
			for _, b := range c.subkeys {
				if self {
					if pk.VerifySubkeyRevocationSignature(b.Key, sig) == nil {
						place(&b.SelfRevocations, b.Key.KeyIdString())
					}
				} else if keyBindingPrefixOK(pk, b.Key, sig) {
					place(&b.OtherRevocations, b.Key.KeyIdString())
				}
			}
		default:
			// A type that binds to nothing we understand. A signature
			// that arrived on an unknown component belongs back there.
			if rs.unknownIdx >= 0 {
				b := c.unknowns[rs.unknownIdx]
				b.Certifications = append(b.Certifications, sig)
				found = true
			}
		}

		if !found {
			log.Debug("signature quarantined",
				zap.Uint8("type", uint8(sig.SigType)))
			c.bad = append(c.bad, sig)
		}
	}
}

// keepSigs filters sigs through ok, sending rejects to the reconsider
// pool.
func keepSigs(sigs []*packet.Signature, pool *[]reconsideredSig, ok func(*packet.Signature) bool) []*packet.Signature {
	kept := sigs[:0]
	for _, sig := range sigs {
		if ok(sig) {
			kept = append(kept, sig)
		} else {
			*pool = append(*pool, reconsideredSig{unknownIdx: -1, sig: sig})
		}
	}
	return kept
}

func directKeyPrefixOK(pk *packet.PublicKey, sig *packet.Signature) bool {
	digest, err := packet.DirectKeyDigest(pk, sig)
	return err == nil && sig.CheckDigestPrefix(digest)
}

func userIdPrefixOK(pk *packet.PublicKey, id *packet.UserId, sig *packet.Signature) bool {
	digest, err := packet.UserIdBindingDigest(pk, id, sig)
	return err == nil && sig.CheckDigestPrefix(digest)
}

func userAttributePrefixOK(pk *packet.PublicKey, uat *packet.UserAttribute, sig *packet.Signature) bool {
	digest, err := packet.UserAttributeBindingDigest(pk, uat, sig)
	return err == nil && sig.CheckDigestPrefix(digest)
}

func keyBindingPrefixOK(pk *packet.PublicKey, sub *packet.PublicKey, sig *packet.Signature) bool {
	digest, err := packet.KeyBindingDigest(pk, sub, sig)
	return err == nil && sig.CheckDigestPrefix(digest)
}
