package packet

import (
	"encoding/binary"

	"github.com/pgpcert/pgpcert/errors"
)

// Notation represents a Notation Data subpacket
// see https://tools.ietf.org/html/rfc4880#section-5.2.3.16
type Notation struct {
	Name          string
	Value         []byte
	Critical      bool
	HumanReadable bool
}

func (not *Notation) getData() []byte {
	nameData := []byte(not.Name)
	data := make([]byte, 8, 8+len(nameData)+len(not.Value))
	if not.HumanReadable {
		data[0] = 0x80
	}
	binary.BigEndian.PutUint16(data[4:6], uint16(len(nameData)))
	binary.BigEndian.PutUint16(data[6:8], uint16(len(not.Value)))
	data = append(data, nameData...)
	return append(data, not.Value...)
}

// Subpacket returns the notation as a notation-data subpacket, ready
// to be added to a signature area.
func (not *Notation) Subpacket() Subpacket {
	return Subpacket{
		Tag:      SubpacketNotationData,
		Critical: not.Critical,
		Contents: not.getData(),
	}
}

func parseNotation(sp Subpacket) (*Notation, error) {
	if len(sp.Contents) < 8 {
		return nil, errors.StructuralError("notation data subpacket with bad length")
	}
	nameLen := int(binary.BigEndian.Uint16(sp.Contents[4:6]))
	valueLen := int(binary.BigEndian.Uint16(sp.Contents[6:8]))
	if len(sp.Contents) != 8+nameLen+valueLen {
		return nil, errors.StructuralError("notation data subpacket with bad length")
	}
	return &Notation{
		Name:          string(sp.Contents[8 : 8+nameLen]),
		Value:         sp.Contents[8+nameLen:],
		Critical:      sp.Critical,
		HumanReadable: sp.Contents[0]&0x80 != 0,
	}, nil
}

// Notations returns the parsed notation-data subpackets of the hashed
// area. Malformed notations are skipped.
func (sig *Signature) Notations() []*Notation {
	var out []*Notation
	for _, sp := range sig.Hashed.Subpackets(SubpacketNotationData) {
		if not, err := parseNotation(sp); err == nil {
			out = append(out, not)
		}
	}
	return out
}
