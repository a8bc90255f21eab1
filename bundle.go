package pgpcert

import (
	"bytes"
	"sort"

	"github.com/pgpcert/pgpcert/packet"
)

// Signatures holds the five roles a signature can play on a component.
// Self signatures and self revocations have been cryptographically
// verified against the component; attestations likewise. Third-party
// certifications and revocations are only plausibility-checked and
// must be verified by the consumer before being relied on.
type Signatures struct {
	SelfSignatures   []*packet.Signature
	Attestations     []*packet.Signature
	Certifications   []*packet.Signature
	SelfRevocations  []*packet.Signature
	OtherRevocations []*packet.Signature
}

// inOrder returns the signatures in serialization order.
func (s *Signatures) inOrder() []*packet.Signature {
	out := make([]*packet.Signature, 0,
		len(s.SelfRevocations)+len(s.SelfSignatures)+len(s.Attestations)+
			len(s.Certifications)+len(s.OtherRevocations))
	out = append(out, s.SelfRevocations...)
	out = append(out, s.SelfSignatures...)
	out = append(out, s.Attestations...)
	out = append(out, s.Certifications...)
	out = append(out, s.OtherRevocations...)
	return out
}

func (s *Signatures) count() int {
	return len(s.SelfRevocations) + len(s.SelfSignatures) + len(s.Attestations) +
		len(s.Certifications) + len(s.OtherRevocations)
}

func (s *Signatures) appendFrom(o *Signatures) {
	s.SelfSignatures = append(s.SelfSignatures, o.SelfSignatures...)
	s.Attestations = append(s.Attestations, o.Attestations...)
	s.Certifications = append(s.Certifications, o.Certifications...)
	s.SelfRevocations = append(s.SelfRevocations, o.SelfRevocations...)
	s.OtherRevocations = append(s.OtherRevocations, o.OtherRevocations...)
}

func (s *Signatures) sortAndDedup() {
	s.SelfSignatures = sortAndDedupSigs(s.SelfSignatures)
	s.Attestations = sortAndDedupSigs(s.Attestations)
	s.Certifications = sortAndDedupSigs(s.Certifications)
	s.SelfRevocations = sortAndDedupSigs(s.SelfRevocations)
	s.OtherRevocations = sortAndDedupSigs(s.OtherRevocations)
}

// KeyBundle is a primary key or subkey together with the signatures
// attached to it. Secret holds the key's secret material as an opaque
// blob when the source packet was a secret key.
type KeyBundle struct {
	Key    *packet.PublicKey
	Secret []byte
	Signatures
}

// HasSecret reports whether the bundle carries secret key material.
func (b *KeyBundle) HasSecret() bool {
	return len(b.Secret) > 0
}

func (b *KeyBundle) keyPacket() packet.Packet {
	if b.HasSecret() {
		sk := &packet.SecretKey{PublicKey: *b.Key, Secret: b.Secret}
		return sk
	}
	return b.Key
}

// UserIdBundle is a user ID together with the signatures attached to
// it.
type UserIdBundle struct {
	UserId *packet.UserId
	Signatures
}

// UserAttributeBundle is a user attribute together with the signatures
// attached to it.
type UserAttributeBundle struct {
	UserAttribute *packet.UserAttribute
	Signatures
}

// UnknownBundle preserves a component this package did not understand
// together with the signatures that followed it, so that nothing is
// lost on a round-trip.
type UnknownBundle struct {
	Packet *packet.Unknown
	Signatures
}

// sigCmp orders signatures from most to least preferred: newer
// creation times first, signatures without a creation time last, raw
// signature material as the tie break so the order is total.
func sigCmp(a, b *packet.Signature) int {
	at, aok := a.CreationTime()
	bt, bok := b.CreationTime()
	switch {
	case aok && !bok:
		return -1
	case !aok && bok:
		return 1
	case aok && bok:
		if at.After(bt) {
			return -1
		}
		if bt.After(at) {
			return 1
		}
	}
	return bytes.Compare(a.Material, b.Material)
}

// sortAndDedupSigs deduplicates sigs under normalized equality,
// folding the unhashed areas of duplicates together, then orders the
// survivors by preference and normalizes their unhashed areas.
func sortAndDedupSigs(sigs []*packet.Signature) []*packet.Signature {
	if len(sigs) == 0 {
		return sigs
	}
	sort.SliceStable(sigs, func(i, j int) bool {
		return sigs[i].NormalizedCmp(sigs[j]) < 0
	})
	out := sigs[:1]
	for _, sig := range sigs[1:] {
		last := out[len(out)-1]
		if last.NormalizedEq(sig) {
			last.Merge(sig)
			continue
		}
		out = append(out, sig)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return sigCmp(out[i], out[j]) < 0
	})
	for _, sig := range out {
		sig.Unhashed.Sort()
	}
	return out
}

// sortAndDedup brings every component list into canonical order and
// folds duplicated components together.
func (c *Cert) sortAndDedup() {
	c.primary.sortAndDedup()

	sort.SliceStable(c.userids, func(i, j int) bool {
		return c.userids[i].UserId.Id < c.userids[j].UserId.Id
	})
	uids := c.userids[:0]
	for _, b := range c.userids {
		if len(uids) > 0 && uids[len(uids)-1].UserId.Id == b.UserId.Id {
			uids[len(uids)-1].appendFrom(&b.Signatures)
			continue
		}
		uids = append(uids, b)
	}
	c.userids = uids
	for _, b := range c.userids {
		b.sortAndDedup()
	}

	sort.SliceStable(c.userAttributes, func(i, j int) bool {
		return bytes.Compare(c.userAttributes[i].UserAttribute.Contents, c.userAttributes[j].UserAttribute.Contents) < 0
	})
	uats := c.userAttributes[:0]
	for _, b := range c.userAttributes {
		if len(uats) > 0 && bytes.Equal(uats[len(uats)-1].UserAttribute.Contents, b.UserAttribute.Contents) {
			uats[len(uats)-1].appendFrom(&b.Signatures)
			continue
		}
		uats = append(uats, b)
	}
	c.userAttributes = uats
	for _, b := range c.userAttributes {
		b.sortAndDedup()
	}

	sort.SliceStable(c.subkeys, func(i, j int) bool {
		return c.subkeys[i].Key.PublicCmp(c.subkeys[j].Key) < 0
	})
	subs := c.subkeys[:0]
	for _, b := range c.subkeys {
		if len(subs) > 0 && subs[len(subs)-1].Key.PublicCmp(b.Key) == 0 {
			prev := subs[len(subs)-1]
			prev.appendFrom(&b.Signatures)
			// When both copies carry secret material the later one
			// governs, matching the merge policy for primaries.
			if b.HasSecret() {
				prev.Secret = b.Secret
			}
			continue
		}
		subs = append(subs, b)
	}
	c.subkeys = subs
	for _, b := range c.subkeys {
		b.sortAndDedup()
	}

	sort.SliceStable(c.unknowns, func(i, j int) bool {
		a, b := c.unknowns[i].Packet, c.unknowns[j].Packet
		if a.PacketTag != b.PacketTag {
			return a.PacketTag < b.PacketTag
		}
		return bytes.Compare(a.Contents, b.Contents) < 0
	})
	unk := c.unknowns[:0]
	for _, b := range c.unknowns {
		if len(unk) > 0 && unk[len(unk)-1].Packet.PacketTag == b.Packet.PacketTag &&
			bytes.Equal(unk[len(unk)-1].Packet.Contents, b.Packet.Contents) {
			unk[len(unk)-1].appendFrom(&b.Signatures)
			continue
		}
		unk = append(unk, b)
	}
	c.unknowns = unk
	for _, b := range c.unknowns {
		b.sortAndDedup()
	}

	c.bad = sortAndDedupSigs(c.bad)
}
