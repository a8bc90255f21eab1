package packet

import (
	"io"
)

// Reader reads packets from an io.Reader and allows packets to be
// 'unread' so that they result from the next call to Next. Marker and
// trust packets carry no certificate content and are skipped.
type Reader struct {
	q []Packet
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next returns the most recently unread Packet, or reads another packet
// from the underlying reader. It returns io.EOF when there are no more
// packets.
func (r *Reader) Next() (Packet, error) {
	if len(r.q) > 0 {
		p := r.q[len(r.q)-1]
		r.q = r.q[:len(r.q)-1]
		return p, nil
	}
	for {
		p, err := Read(r.r)
		if err != nil {
			return nil, err
		}
		switch p.(type) {
		case *Marker, *Trust:
			continue
		}
		return p, nil
	}
}

// Unread causes the given Packet to be returned from the next call to
// Next.
func (r *Reader) Unread(p Packet) {
	r.q = append(r.q, p)
}
