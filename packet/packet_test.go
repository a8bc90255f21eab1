package packet

import (
	"bytes"
	"io"
	"testing"
)

func TestReadHeaderOldFormat(t *testing.T) {
	// Old format user id packet, one-octet length.
	raw := []byte{0x80 | 13<<2, 5, 'a', 'l', 'i', 'c', 'e'}
	p, err := Read(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	uid, ok := p.(*UserId)
	if !ok {
		t.Fatalf("Read returned %T, want *UserId", p)
	}
	if uid.Id != "alice" {
		t.Errorf("Id = %q", uid.Id)
	}

	// Two-octet length.
	body := bytes.Repeat([]byte{'x'}, 300)
	raw = append([]byte{0x80 | 13<<2 | 1, 1, 44}, body...)
	if _, err := Read(bytes.NewReader(raw)); err != nil {
		t.Fatal(err)
	}

	// Indeterminate length is not allowed.
	raw = []byte{0x80 | 13<<2 | 3, 'a'}
	if _, err := Read(bytes.NewReader(raw)); err == nil {
		t.Error("indeterminate length accepted")
	}
}

func TestReadHeaderNewFormatLengths(t *testing.T) {
	for _, n := range []int{0, 1, 191, 192, 8383, 8384, 100000} {
		uid := &UserId{Id: string(bytes.Repeat([]byte{'u'}, n))}
		var buf bytes.Buffer
		if err := uid.Serialize(&buf); err != nil {
			t.Fatal(err)
		}
		p, err := Read(&buf)
		if err != nil {
			t.Fatalf("length %d: %v", n, err)
		}
		if got := len(p.(*UserId).Id); got != n {
			t.Errorf("length %d round-tripped as %d", n, got)
		}
	}
}

func TestReadRejectsPartialLengths(t *testing.T) {
	// New format, first octet 224 means a partial body length.
	raw := []byte{0xc0 | 13, 224, 'x'}
	if _, err := Read(bytes.NewReader(raw)); err == nil {
		t.Error("partial body length accepted")
	}
}

func TestReadUnknownTag(t *testing.T) {
	raw := []byte{0xc0 | 61, 3, 1, 2, 3}
	p, err := Read(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	u, ok := p.(*Unknown)
	if !ok {
		t.Fatalf("Read returned %T, want *Unknown", p)
	}
	if u.PacketTag != Tag(61) || !bytes.Equal(u.Contents, []byte{1, 2, 3}) {
		t.Error("unknown packet not preserved")
	}

	var buf bytes.Buffer
	if err := u.Serialize(&buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), raw) {
		t.Error("unknown packet does not round-trip")
	}
}

func TestReaderSkipsMarkerAndTrust(t *testing.T) {
	var buf bytes.Buffer
	(&Marker{}).Serialize(&buf)
	(&Trust{Contents: []byte{1}}).Serialize(&buf)
	(&UserId{Id: "alice"}).Serialize(&buf)

	r := NewReader(&buf)
	p, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*UserId); !ok {
		t.Fatalf("Next returned %T, want *UserId", p)
	}

	r.Unread(p)
	p2, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if p2 != p {
		t.Error("Unread packet not returned by Next")
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next at end returned %v, want io.EOF", err)
	}
}
