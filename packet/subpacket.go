package packet

import (
	"bytes"
	"io"
	"sort"
	"sync"

	"github.com/pgpcert/pgpcert/errors"
)

// SubpacketTag identifies the meaning of a signature subpacket. See
// RFC 4880, section 5.2.3.1, and RFC 9580, section 5.2.3.7.
type SubpacketTag uint8

const (
	SubpacketCreationTime          SubpacketTag = 2
	SubpacketSigExpirationTime     SubpacketTag = 3
	SubpacketExportableCertification SubpacketTag = 4
	SubpacketTrustSignature        SubpacketTag = 5
	SubpacketRegularExpression     SubpacketTag = 6
	SubpacketRevocable             SubpacketTag = 7
	SubpacketKeyExpirationTime     SubpacketTag = 9
	SubpacketPrefSymmetricAlgos    SubpacketTag = 11
	SubpacketRevocationKey         SubpacketTag = 12
	SubpacketIssuer                SubpacketTag = 16
	SubpacketNotationData          SubpacketTag = 20
	SubpacketPrefHashAlgos         SubpacketTag = 21
	SubpacketPrefCompressionAlgos  SubpacketTag = 22
	SubpacketKeyServerPrefs        SubpacketTag = 23
	SubpacketPrefKeyServer         SubpacketTag = 24
	SubpacketPrimaryUserId         SubpacketTag = 25
	SubpacketPolicyUri             SubpacketTag = 26
	SubpacketKeyFlags              SubpacketTag = 27
	SubpacketSignerUserId          SubpacketTag = 28
	SubpacketReasonForRevocation   SubpacketTag = 29
	SubpacketFeatures              SubpacketTag = 30
	SubpacketSignatureTarget       SubpacketTag = 31
	SubpacketEmbeddedSignature     SubpacketTag = 32
	SubpacketIssuerFingerprint     SubpacketTag = 33
	SubpacketAttestedCertifications SubpacketTag = 37
)

// A Subpacket is a typed datum attached to a signature.
type Subpacket struct {
	Tag      SubpacketTag
	Critical bool
	Contents []byte
}

// serializedLen is the length of the subpacket on the wire, including
// the length header and the type octet.
func (sp *Subpacket) serializedLen() int {
	l := 1 + len(sp.Contents)
	switch {
	case l < 192:
		return 1 + l
	case l < 8384:
		return 2 + l
	default:
		return 5 + l
	}
}

func (sp *Subpacket) serialize(w io.Writer) error {
	l := 1 + len(sp.Contents)
	var header []byte
	switch {
	case l < 192:
		header = []byte{byte(l)}
	case l < 8384:
		l -= 192
		header = []byte{192 + byte(l>>8), byte(l)}
	default:
		header = []byte{255, byte(l >> 24), byte(l >> 16), byte(l >> 8), byte(l)}
	}
	typeOctet := byte(sp.Tag)
	if sp.Critical {
		typeOctet |= 0x80
	}
	if _, err := w.Write(append(header, typeOctet)); err != nil {
		return err
	}
	_, err := w.Write(sp.Contents)
	return err
}

// maxSubpacketAreaLen is the largest serialized subpacket area that
// fits behind the area's two-octet length prefix.
const maxSubpacketAreaLen = 65535

// A SubpacketArea holds the ordered subpackets of one signature area,
// hashed or unhashed. The zero value is an empty area.
//
// Lookups by tag go through an index that is built lazily on first use
// and thrown away whenever the area is mutated, so that bulk edits do
// not pay for reindexing.
type SubpacketArea struct {
	packets []Subpacket

	mu    sync.Mutex
	index map[SubpacketTag]int
}

func parseSubpacketArea(data []byte, area *SubpacketArea) error {
	if len(data) > maxSubpacketAreaLen {
		return errors.SizeExceededError("subpacket area")
	}
	for len(data) > 0 {
		var length uint32
		switch {
		case data[0] < 192:
			length = uint32(data[0])
			data = data[1:]
		case data[0] < 255:
			if len(data) < 2 {
				return errors.StructuralError("truncated subpacket length")
			}
			length = uint32(data[0]-192)<<8 + uint32(data[1]) + 192
			data = data[2:]
		default:
			if len(data) < 5 {
				return errors.StructuralError("truncated subpacket length")
			}
			length = uint32(data[1])<<24 | uint32(data[2])<<16 | uint32(data[3])<<8 | uint32(data[4])
			data = data[5:]
		}
		if length == 0 || uint32(len(data)) < length {
			return errors.StructuralError("subpacket overruns its area")
		}
		typeOctet := data[0]
		area.packets = append(area.packets, Subpacket{
			Tag:      SubpacketTag(typeOctet & 0x7f),
			Critical: typeOctet&0x80 != 0,
			Contents: data[1:length],
		})
		data = data[length:]
	}
	return nil
}

// SerializedLen is the length of the area on the wire, not counting the
// two-octet area length prefix.
func (a *SubpacketArea) SerializedLen() int {
	n := 0
	for i := range a.packets {
		n += a.packets[i].serializedLen()
	}
	return n
}

func (a *SubpacketArea) serialize(w io.Writer) error {
	for i := range a.packets {
		if err := a.packets[i].serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the serialized area.
func (a *SubpacketArea) Bytes() []byte {
	var buf bytes.Buffer
	a.serialize(&buf)
	return buf.Bytes()
}

func (a *SubpacketArea) invalidate() {
	a.mu.Lock()
	a.index = nil
	a.mu.Unlock()
}

// lookupIndex returns the index of the last subpacket with the given
// tag, building the tag index if it is stale.
func (a *SubpacketArea) lookupIndex(tag SubpacketTag) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.index == nil {
		a.index = make(map[SubpacketTag]int, len(a.packets))
		for i := range a.packets {
			a.index[a.packets[i].Tag] = i
		}
	}
	i, ok := a.index[tag]
	return i, ok
}

// Subpacket returns the last subpacket with the given tag, if any.
// When a tag occurs more than once the last occurrence governs, the
// same way later packets shadow earlier ones elsewhere in the format.
func (a *SubpacketArea) Subpacket(tag SubpacketTag) (Subpacket, bool) {
	if i, ok := a.lookupIndex(tag); ok {
		return a.packets[i], true
	}
	return Subpacket{}, false
}

// Subpackets returns all subpackets with the given tag in order.
func (a *SubpacketArea) Subpackets(tag SubpacketTag) []Subpacket {
	var out []Subpacket
	for i := range a.packets {
		if a.packets[i].Tag == tag {
			out = append(out, a.packets[i])
		}
	}
	return out
}

// All returns the subpackets in order.
func (a *SubpacketArea) All() []Subpacket {
	return a.packets
}

// Add appends a subpacket to the area.
func (a *SubpacketArea) Add(sp Subpacket) error {
	if a.SerializedLen()+sp.serializedLen() > maxSubpacketAreaLen {
		return errors.SizeExceededError("subpacket area")
	}
	a.packets = append(a.packets, sp)
	a.invalidate()
	return nil
}

// Replace removes all subpackets with the same tag as sp, then adds
// sp. A Replace that would push the area past the size ceiling fails
// without modifying the area.
func (a *SubpacketArea) Replace(sp Subpacket) error {
	total := sp.serializedLen()
	for i := range a.packets {
		if a.packets[i].Tag != sp.Tag {
			total += a.packets[i].serializedLen()
		}
	}
	if total > maxSubpacketAreaLen {
		return errors.SizeExceededError("subpacket area")
	}
	kept := a.packets[:0]
	for i := range a.packets {
		if a.packets[i].Tag != sp.Tag {
			kept = append(kept, a.packets[i])
		}
	}
	a.packets = append(kept, sp)
	a.invalidate()
	return nil
}

// RemoveAll removes all subpackets with the given tag.
func (a *SubpacketArea) RemoveAll(tag SubpacketTag) {
	kept := a.packets[:0]
	for i := range a.packets {
		if a.packets[i].Tag != tag {
			kept = append(kept, a.packets[i])
		}
	}
	a.packets = kept
	a.invalidate()
}

// Clear removes all subpackets.
func (a *SubpacketArea) Clear() {
	a.packets = nil
	a.invalidate()
}

// Sort orders the subpackets by tag, then contents. Two areas holding
// the same subpackets serialize identically after a Sort.
func (a *SubpacketArea) Sort() {
	sort.SliceStable(a.packets, func(i, j int) bool {
		if a.packets[i].Tag != a.packets[j].Tag {
			return a.packets[i].Tag < a.packets[j].Tag
		}
		return bytes.Compare(a.packets[i].Contents, a.packets[j].Contents) < 0
	})
	a.invalidate()
}

// cloneInto deep-copies the area into dst, which starts over with a
// fresh index.
func (a *SubpacketArea) cloneInto(dst *SubpacketArea) {
	dst.packets = make([]Subpacket, len(a.packets))
	for i := range a.packets {
		dst.packets[i] = a.packets[i]
		dst.packets[i].Contents = append([]byte(nil), a.packets[i].Contents...)
	}
	dst.invalidate()
}

func subpacketEqual(x, y Subpacket) bool {
	return x.Tag == y.Tag && x.Critical == y.Critical && bytes.Equal(x.Contents, y.Contents)
}
