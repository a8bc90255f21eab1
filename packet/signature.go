package packet

import (
	"bytes"
	"encoding/binary"
	"hash"
	"io"
	"strconv"
	"time"

	"github.com/pgpcert/pgpcert/errors"
)

// Signature represents a version 4 signature packet. The subpacket
// areas are kept as parsed containers and the algorithm-specific
// signature field is kept raw, so a signature round-trips bit for bit.
// See RFC 4880, section 5.2.
type Signature struct {
	Version    int
	SigType    SignatureType
	PubKeyAlgo PublicKeyAlgorithm
	HashId     uint8

	Hashed   SubpacketArea
	Unhashed SubpacketArea

	// HashTag contains the first two bytes of the digest this
	// signature allegedly covers.
	HashTag [2]byte

	// Material is the raw algorithm-specific signature field, MPIs
	// and all.
	Material []byte
}

func (sig *Signature) Tag() Tag { return TagSignature }

func (sig *Signature) parse(body []byte) error {
	if len(body) < 1 {
		return errors.StructuralError("empty signature packet")
	}
	if body[0] != 4 {
		return errors.UnsupportedError("signature packet version " + strconv.Itoa(int(body[0])))
	}
	sig.Version = int(body[0])
	if len(body) < 6 {
		return errors.StructuralError("truncated signature packet")
	}
	sig.SigType = SignatureType(body[1])
	sig.PubKeyAlgo = PublicKeyAlgorithm(body[2])
	sig.HashId = body[3]

	hashedLen := int(body[4])<<8 | int(body[5])
	body = body[6:]
	if len(body) < hashedLen {
		return errors.StructuralError("hashed subpacket area overruns signature")
	}
	if err := parseSubpacketArea(body[:hashedLen], &sig.Hashed); err != nil {
		return err
	}
	body = body[hashedLen:]

	if len(body) < 2 {
		return errors.StructuralError("truncated signature packet")
	}
	unhashedLen := int(body[0])<<8 | int(body[1])
	body = body[2:]
	if len(body) < unhashedLen {
		return errors.StructuralError("unhashed subpacket area overruns signature")
	}
	if err := parseSubpacketArea(body[:unhashedLen], &sig.Unhashed); err != nil {
		return err
	}
	body = body[unhashedLen:]

	if len(body) < 2 {
		return errors.StructuralError("truncated signature packet")
	}
	copy(sig.HashTag[:], body[:2])
	sig.Material = body[2:]
	return nil
}

func (sig *Signature) bodyLen() int {
	return 6 + sig.Hashed.SerializedLen() + 2 + sig.Unhashed.SerializedLen() + 2 + len(sig.Material)
}

func (sig *Signature) serializeBody(w io.Writer) error {
	hashedLen := sig.Hashed.SerializedLen()
	unhashedLen := sig.Unhashed.SerializedLen()
	header := []byte{
		byte(sig.Version), byte(sig.SigType), byte(sig.PubKeyAlgo), sig.HashId,
		byte(hashedLen >> 8), byte(hashedLen),
	}
	if _, err := w.Write(header); err != nil {
		return err
	}
	if err := sig.Hashed.serialize(w); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(unhashedLen >> 8), byte(unhashedLen)}); err != nil {
		return err
	}
	if err := sig.Unhashed.serialize(w); err != nil {
		return err
	}
	if _, err := w.Write(sig.HashTag[:]); err != nil {
		return err
	}
	_, err := w.Write(sig.Material)
	return err
}

// Serialize writes the signature, framed, to w.
func (sig *Signature) Serialize(w io.Writer) error {
	if err := serializeHeader(w, TagSignature, sig.bodyLen()); err != nil {
		return err
	}
	return sig.serializeBody(w)
}

// CreationTime returns the signature creation time from the hashed
// area. A missing creation time makes a signature malformed but not
// unparseable; the second return value reports whether one was present.
func (sig *Signature) CreationTime() (time.Time, bool) {
	sp, ok := sig.Hashed.Subpacket(SubpacketCreationTime)
	if !ok || len(sp.Contents) != 4 {
		return time.Time{}, false
	}
	return time.Unix(int64(binary.BigEndian.Uint32(sp.Contents)), 0), true
}

// selfAuthenticating reports whether a subpacket tag may be trusted
// from the unhashed area. Issuer information is covered because a
// forged value simply makes verification fail; everything else in the
// unhashed area is attacker-controlled and ignored.
func selfAuthenticating(tag SubpacketTag) bool {
	switch tag {
	case SubpacketIssuer, SubpacketIssuerFingerprint, SubpacketEmbeddedSignature:
		return true
	}
	return false
}

// pairedSubpackets returns the subpackets with the given tag, from the
// hashed area always, and from the unhashed area only when the tag is
// self-authenticating.
func (sig *Signature) pairedSubpackets(tag SubpacketTag) []Subpacket {
	out := sig.Hashed.Subpackets(tag)
	if selfAuthenticating(tag) {
		out = append(out, sig.Unhashed.Subpackets(tag)...)
	}
	return out
}

// IssuerKeyIds returns every issuer key ID the signature alleges.
func (sig *Signature) IssuerKeyIds() []uint64 {
	var out []uint64
	for _, sp := range sig.pairedSubpackets(SubpacketIssuer) {
		if len(sp.Contents) == 8 {
			out = append(out, binary.BigEndian.Uint64(sp.Contents))
		}
	}
	return out
}

// IssuerFingerprints returns every issuer fingerprint the signature
// alleges.
func (sig *Signature) IssuerFingerprints() [][]byte {
	var out [][]byte
	for _, sp := range sig.pairedSubpackets(SubpacketIssuerFingerprint) {
		if len(sp.Contents) == 21 && sp.Contents[0] == 4 {
			out = append(out, sp.Contents[1:])
		}
	}
	return out
}

// HasIssuerInfo reports whether the signature alleges any issuer at
// all. A signature without issuer information is treated as possibly
// made by the certificate holder.
func (sig *Signature) HasIssuerInfo() bool {
	return len(sig.IssuerKeyIds()) > 0 || len(sig.IssuerFingerprints()) > 0
}

// CheckKeyIdOrFingerprint reports whether the signature alleges pk as
// its issuer. Fingerprints are checked before key IDs.
func (sig *Signature) CheckKeyIdOrFingerprint(pk *PublicKey) bool {
	for _, fp := range sig.IssuerFingerprints() {
		if bytes.Equal(fp, pk.Fingerprint) {
			return true
		}
	}
	for _, id := range sig.IssuerKeyIds() {
		if id == pk.KeyId {
			return true
		}
	}
	return false
}

// EmbeddedSignature returns the signature embedded in the subpacket
// areas, if any. Subkey binding signatures of signing-capable subkeys
// carry the subkey's own cross signature this way.
func (sig *Signature) EmbeddedSignature() (*Signature, bool) {
	sps := sig.pairedSubpackets(SubpacketEmbeddedSignature)
	if len(sps) == 0 {
		return nil, false
	}
	embedded := new(Signature)
	if err := embedded.parse(sps[len(sps)-1].Contents); err != nil {
		return nil, false
	}
	return embedded, true
}

// NewHash returns a fresh hash for the signature's hash algorithm.
func (sig *Signature) NewHash() (hash.Hash, error) {
	h, err := hashForId(sig.HashId)
	if err != nil {
		return nil, err
	}
	return h.New(), nil
}

// hashTrailer feeds the signature's own hashed contribution into h:
// the fields up to and including the hashed subpacket area, then the
// v4 trailer.
func (sig *Signature) hashTrailer(h io.Writer) {
	hashedArea := sig.Hashed.Bytes()
	hashedLen := len(hashedArea)
	h.Write([]byte{
		byte(sig.Version), byte(sig.SigType), byte(sig.PubKeyAlgo), sig.HashId,
		byte(hashedLen >> 8), byte(hashedLen),
	})
	h.Write(hashedArea)
	l := uint32(6 + hashedLen)
	h.Write([]byte{byte(sig.Version), 0xff, byte(l >> 24), byte(l >> 16), byte(l >> 8), byte(l)})
}

// CheckDigestPrefix reports whether the digest's leading bytes match
// the signature's stored hash prefix. This proves nothing by itself
// but a mismatch cheaply disproves a pairing.
func (sig *Signature) CheckDigestPrefix(digest []byte) bool {
	return len(digest) >= 2 && sig.HashTag[0] == digest[0] && sig.HashTag[1] == digest[1]
}

// NormalizedCmp orders signatures by their verified content: the
// version, type and algorithm fields, the hashed subpacket area, the
// digest prefix and the signature material. The unhashed area does not
// participate, so two copies of one signature that differ only in
// unhashed decorations compare equal.
func (sig *Signature) NormalizedCmp(other *Signature) int {
	if c := sig.Version - other.Version; c != 0 {
		return c
	}
	if c := int(sig.SigType) - int(other.SigType); c != 0 {
		return c
	}
	if c := int(sig.PubKeyAlgo) - int(other.PubKeyAlgo); c != 0 {
		return c
	}
	if c := int(sig.HashId) - int(other.HashId); c != 0 {
		return c
	}
	if c := bytes.Compare(sig.Hashed.Bytes(), other.Hashed.Bytes()); c != 0 {
		return c
	}
	if c := bytes.Compare(sig.HashTag[:], other.HashTag[:]); c != 0 {
		return c
	}
	return bytes.Compare(sig.Material, other.Material)
}

// NormalizedEq reports whether two signatures are the same signature
// modulo the unhashed area.
func (sig *Signature) NormalizedEq(other *Signature) bool {
	return sig.NormalizedCmp(other) == 0
}

// Merge folds other's unhashed area into sig. Both must be the same
// signature under NormalizedEq. Subpackets present in either copy
// survive, duplicates are kept once, and whatever does not fit under
// the area size ceiling is dropped.
func (sig *Signature) Merge(other *Signature) error {
	if !sig.NormalizedEq(other) {
		return errors.InvalidArgumentError("merging different signatures")
	}
	for _, sp := range other.Unhashed.All() {
		present := false
		for _, have := range sig.Unhashed.All() {
			if subpacketEqual(have, sp) {
				present = true
				break
			}
		}
		if !present {
			if err := sig.Unhashed.Add(sp); err != nil {
				break
			}
		}
	}
	sig.Unhashed.Sort()
	return nil
}

// Clone returns a deep copy of the signature.
func (sig *Signature) Clone() *Signature {
	c := &Signature{
		Version:    sig.Version,
		SigType:    sig.SigType,
		PubKeyAlgo: sig.PubKeyAlgo,
		HashId:     sig.HashId,
		HashTag:    sig.HashTag,
		Material:   append([]byte(nil), sig.Material...),
	}
	sig.Hashed.cloneInto(&c.Hashed)
	sig.Unhashed.cloneInto(&c.Unhashed)
	return c
}
