package packet

import (
	"io"
)

// Unknown carries a packet this package did not understand: an
// unrecognized tag, an unsupported version, or a body that failed to
// parse. The raw bytes are preserved so the packet survives a
// round-trip; Reason records why it ended up here.
type Unknown struct {
	PacketTag Tag
	Contents  []byte
	Reason    error
}

func (u *Unknown) Tag() Tag { return u.PacketTag }

// Serialize writes the packet back out exactly as it was read.
func (u *Unknown) Serialize(w io.Writer) error {
	if err := serializeHeader(w, u.PacketTag, len(u.Contents)); err != nil {
		return err
	}
	_, err := w.Write(u.Contents)
	return err
}
