// Package packet implements the parts of the OpenPGP wire format that
// certificates are made of: keys, user IDs, user attributes and
// signatures, as described in RFC 4880 and RFC 9580.
package packet

import (
	"bytes"
	"io"
	"strconv"

	"github.com/pgpcert/pgpcert/errors"
)

// Tag is an OpenPGP packet tag. See RFC 4880, section 4.3.
type Tag uint8

const (
	TagReserved            Tag = 0
	TagEncryptedKey        Tag = 1
	TagSignature           Tag = 2
	TagSymmetricKeyEncrypted Tag = 3
	TagOnePassSignature    Tag = 4
	TagSecretKey           Tag = 5
	TagPublicKey           Tag = 6
	TagSecretSubkey        Tag = 7
	TagCompressed          Tag = 8
	TagSymmetricallyEncrypted Tag = 9
	TagMarker              Tag = 10
	TagLiteralData         Tag = 11
	TagTrust               Tag = 12
	TagUserId              Tag = 13
	TagPublicSubkey        Tag = 14
	TagUserAttribute       Tag = 17
	TagSymmetricallyEncryptedIntegrityProtected Tag = 18
	TagModificationDetectionCode Tag = 19
	TagAEADEncrypted       Tag = 20
)

func (t Tag) String() string {
	switch t {
	case TagSignature:
		return "signature"
	case TagSecretKey:
		return "secret key"
	case TagPublicKey:
		return "public key"
	case TagSecretSubkey:
		return "secret subkey"
	case TagMarker:
		return "marker"
	case TagTrust:
		return "trust"
	case TagUserId:
		return "user id"
	case TagPublicSubkey:
		return "public subkey"
	case TagUserAttribute:
		return "user attribute"
	}
	return "tag " + strconv.Itoa(int(t))
}

// Packet is a generic OpenPGP packet that knows its tag and how to
// write itself, framed, to w.
type Packet interface {
	Tag() Tag
	Serialize(w io.Writer) error
}

// readHeader parses a packet header and returns the tag and the length
// of the body. Both old and new format headers are accepted.
// Indeterminate and partial body lengths never occur inside
// certificates and are rejected.
func readHeader(r io.Reader) (tag Tag, length int64, err error) {
	var buf [5]byte
	_, err = io.ReadFull(r, buf[:1])
	if err != nil {
		return
	}
	if buf[0]&0x80 == 0 {
		err = errors.StructuralError("tag byte does not have MSB set")
		return
	}
	if buf[0]&0x40 == 0 {
		// Old format packet.
		tag = Tag((buf[0] & 0x3f) >> 2)
		lengthType := buf[0] & 3
		if lengthType == 3 {
			err = errors.StructuralError("indeterminate packet length")
			return
		}
		lengthBytes := 1 << lengthType
		_, err = readFull(r, buf[0:lengthBytes])
		if err != nil {
			return
		}
		for i := 0; i < lengthBytes; i++ {
			length <<= 8
			length |= int64(buf[i])
		}
		return
	}

	// New format packet.
	tag = Tag(buf[0] & 0x3f)
	_, err = readFull(r, buf[0:1])
	if err != nil {
		return
	}
	switch {
	case buf[0] < 192:
		length = int64(buf[0])
	case buf[0] < 224:
		length = int64(buf[0]-192) << 8
		_, err = readFull(r, buf[0:1])
		if err != nil {
			return
		}
		length += int64(buf[0]) + 192
	case buf[0] < 255:
		err = errors.StructuralError("partial body length in certificate")
	default:
		_, err = readFull(r, buf[0:4])
		if err != nil {
			return
		}
		length = int64(buf[0])<<24 |
			int64(buf[1])<<16 |
			int64(buf[2])<<8 |
			int64(buf[3])
	}
	return
}

// serializeHeader writes a new format packet header to w.
func serializeHeader(w io.Writer, tag Tag, length int) (err error) {
	var buf [6]byte
	var n int

	buf[0] = 0xc0 | byte(tag)
	if length < 192 {
		buf[1] = byte(length)
		n = 2
	} else if length < 8384 {
		length -= 192
		buf[1] = 192 + byte(length>>8)
		buf[2] = byte(length)
		n = 3
	} else {
		buf[1] = 255
		buf[2] = byte(length >> 24)
		buf[3] = byte(length >> 16)
		buf[4] = byte(length >> 8)
		buf[5] = byte(length)
		n = 6
	}

	_, err = w.Write(buf[:n])
	return
}

// readFull is the same as io.ReadFull except that reading zero bytes
// returns ErrUnexpectedEOF rather than EOF.
func readFull(r io.Reader, buf []byte) (n int, err error) {
	n, err = io.ReadFull(r, buf)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return
}

// maxBodyLength bounds the size of a single packet body. A certificate
// component larger than this is hostile or corrupt.
const maxBodyLength = 1 << 24

// Read reads a single packet from r. Packets whose bodies fail to parse
// are returned as *Unknown rather than as an error, so that a
// certificate with a damaged component can still be processed.
func Read(r io.Reader) (p Packet, err error) {
	tag, length, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if length < 0 || length > maxBodyLength {
		return nil, errors.StructuralError("packet body of unreasonable length")
	}
	body := make([]byte, length)
	if _, err = readFull(r, body); err != nil {
		return nil, err
	}

	switch tag {
	case TagSignature:
		p = new(Signature)
	case TagPublicKey, TagPublicSubkey:
		pk := new(PublicKey)
		pk.IsSubkey = tag == TagPublicSubkey
		p = pk
	case TagSecretKey, TagSecretSubkey:
		sk := new(SecretKey)
		sk.IsSubkey = tag == TagSecretSubkey
		p = sk
	case TagUserId:
		p = new(UserId)
	case TagUserAttribute:
		p = new(UserAttribute)
	case TagMarker:
		p = new(Marker)
	case TagTrust:
		p = new(Trust)
	default:
		return &Unknown{PacketTag: tag, Contents: body}, nil
	}

	if err := p.(parseable).parse(body); err != nil {
		return &Unknown{PacketTag: tag, Contents: body, Reason: err}, nil
	}
	return p, nil
}

type parseable interface {
	parse(body []byte) error
}

// A Marker packet is allowed anywhere and means nothing. See RFC 4880,
// section 5.8.
type Marker struct{}

func (m *Marker) Tag() Tag { return TagMarker }

func (m *Marker) parse(body []byte) error {
	if !bytes.Equal(body, []byte("PGP")) {
		return errors.StructuralError("invalid marker packet")
	}
	return nil
}

func (m *Marker) Serialize(w io.Writer) error {
	if err := serializeHeader(w, TagMarker, 3); err != nil {
		return err
	}
	_, err := w.Write([]byte("PGP"))
	return err
}

// A Trust packet holds implementation-local trust data. It is only
// meaningful to the keyring that wrote it and is dropped on parse.
type Trust struct {
	Contents []byte
}

func (t *Trust) Tag() Tag { return TagTrust }

func (t *Trust) parse(body []byte) error {
	t.Contents = body
	return nil
}

func (t *Trust) Serialize(w io.Writer) error {
	if err := serializeHeader(w, TagTrust, len(t.Contents)); err != nil {
		return err
	}
	_, err := w.Write(t.Contents)
	return err
}
