package pgpcert

import (
	"bytes"
	"hash/fnv"

	"github.com/pgpcert/pgpcert/errors"
	"github.com/pgpcert/pgpcert/packet"
)

// A ConflictResolver decides what to do when InsertPacketsWith finds
// that an incoming packet shares its identity with a packet already in
// the certificate. existing is nil when the incoming packet is new.
// The returned packet is used in place of incoming; it must keep the
// same identity, or the insertion fails with an
// InvalidOperationError.
type ConflictResolver func(existing, incoming packet.Packet) (packet.Packet, error)

// InsertPackets inserts packets into the certificate, replacing
// existing packets of the same identity with the incoming copy.
func (c *Cert) InsertPackets(packets ...packet.Packet) (bool, error) {
	return c.InsertPacketsWith(nil, packets...)
}

// InsertPacketsWith inserts packets into the certificate under the
// control of resolve.
//
// Each incoming packet is classified against the certificate's current
// packets by identity: for keys the public key material, for
// signatures everything their issuer signed, for other packets their
// full content. An incoming packet that is bit-identical to an
// existing one is dropped. One that shares an identity with an
// existing packet replaces it, after the resolver has had its say. A
// new packet is appended near its siblings by the canonicalization
// that follows.
//
// Packets that can never be part of a certificate are rejected with a
// StructuralError. The returned bool reports whether the certificate
// changed.
func (c *Cert) InsertPacketsWith(resolve ConflictResolver, packets ...packet.Packet) (bool, error) {
	if resolve == nil {
		resolve = func(existing, incoming packet.Packet) (packet.Packet, error) {
			return incoming, nil
		}
	}

	flat := c.packets()
	index := make(map[uint64][]int, len(flat))
	for i, p := range flat {
		index[identityHash(p)] = append(index[identityHash(p)], i)
	}

	changed := false
	for _, p := range packets {
		if disallowedInCert(p.Tag()) {
			return false, errors.StructuralError("cannot insert " + p.Tag().String() + " packet into a certificate")
		}

		id := identityBytes(p)
		h := hashBytes(id)

		match := -1
		identical := false
		for _, i := range index[h] {
			if !bytes.Equal(identityBytes(flat[i]), id) {
				// Hash collision between different identities.
				continue
			}
			match = i
			if bytes.Equal(serializePacket(flat[i]), serializePacket(p)) {
				identical = true
				break
			}
		}
		if identical {
			continue
		}

		if match >= 0 {
			resolved, err := resolve(flat[match], p)
			if err != nil {
				return false, err
			}
			if resolved == nil || !bytes.Equal(identityBytes(resolved), id) {
				return false, errors.InvalidOperationError("conflict resolver changed the packet's identity")
			}
			if bytes.Equal(serializePacket(flat[match]), serializePacket(resolved)) {
				continue
			}
			flat[match] = resolved
			changed = true
			continue
		}

		resolved, err := resolve(nil, p)
		if err != nil {
			return false, err
		}
		if resolved == nil || !bytes.Equal(identityBytes(resolved), id) {
			return false, errors.InvalidOperationError("conflict resolver changed the packet's identity")
		}
		index[h] = append(index[h], len(flat))
		flat = append(flat, resolved)
		changed = true
	}

	if !changed {
		return false, nil
	}

	merged, err := FromPackets(flat, c.config)
	if err != nil {
		return false, err
	}
	*c = *merged
	return true, nil
}

// identityBytes returns the content that defines a packet's identity.
// For keys that is the public part only, so a secret key and its
// public half collide on purpose. For signatures it is the normalized
// form, so two copies differing only in unhashed decorations collide.
// For everything else it is the raw content.
func identityBytes(p packet.Packet) []byte {
	var buf bytes.Buffer
	switch p := p.(type) {
	case *packet.SecretKey:
		pub := p.PublicKey
		buf.WriteByte(byte(pub.Tag()))
		pub.SerializeForHash(&buf)
	case *packet.PublicKey:
		buf.WriteByte(byte(p.Tag()))
		p.SerializeForHash(&buf)
	case *packet.Signature:
		buf.Write([]byte{byte(packet.TagSignature), byte(p.Version), byte(p.SigType), byte(p.PubKeyAlgo), p.HashId})
		buf.Write(p.Hashed.Bytes())
		buf.Write(p.HashTag[:])
		buf.Write(p.Material)
	default:
		buf.WriteByte(byte(p.Tag()))
		p.Serialize(&buf)
	}
	return buf.Bytes()
}

func hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}

func identityHash(p packet.Packet) uint64 {
	return hashBytes(identityBytes(p))
}

func serializePacket(p packet.Packet) []byte {
	var buf bytes.Buffer
	p.Serialize(&buf)
	return buf.Bytes()
}
