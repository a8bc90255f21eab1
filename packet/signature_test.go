package packet

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

func testSignature(sigType SignatureType, created uint32) *Signature {
	sig := &Signature{
		Version:    4,
		SigType:    sigType,
		PubKeyAlgo: PubKeyAlgoEd25519,
		HashId:     8,
		HashTag:    [2]byte{0xca, 0xfe},
		Material:   bytes.Repeat([]byte{0x42}, 64),
	}
	ct := make([]byte, 4)
	binary.BigEndian.PutUint32(ct, created)
	sig.Hashed.Add(Subpacket{Tag: SubpacketCreationTime, Contents: ct})
	return sig
}

func TestSignatureRoundTrip(t *testing.T) {
	sig := testSignature(SigTypePositiveCert, 1136214245)
	sig.Unhashed.Add(Subpacket{Tag: SubpacketIssuer, Contents: []byte{1, 2, 3, 4, 5, 6, 7, 8}})

	var buf bytes.Buffer
	if err := sig.Serialize(&buf); err != nil {
		t.Fatal(err)
	}
	p, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	parsed, ok := p.(*Signature)
	if !ok {
		t.Fatalf("Read returned %T, want *Signature", p)
	}

	var again bytes.Buffer
	if err := parsed.Serialize(&again); err != nil {
		t.Fatal(err)
	}
	var orig bytes.Buffer
	sig.Serialize(&orig)
	if !bytes.Equal(orig.Bytes(), again.Bytes()) {
		t.Error("signature does not round-trip")
	}

	created, ok := parsed.CreationTime()
	if !ok {
		t.Fatal("creation time lost")
	}
	if created.Unix() != 1136214245 {
		t.Errorf("creation time = %v", created)
	}
}

func TestSignatureVersion3Unsupported(t *testing.T) {
	body := []byte{3, 0x10, 1, 2}
	var buf bytes.Buffer
	serializeHeader(&buf, TagSignature, len(body))
	buf.Write(body)

	p, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	u, ok := p.(*Unknown)
	if !ok {
		t.Fatalf("Read returned %T, want *Unknown", p)
	}
	if u.Reason == nil {
		t.Error("unsupported signature carries no reason")
	}
}

func TestSignatureIssuerPairedLookup(t *testing.T) {
	sig := testSignature(SigTypeGenericCert, 1)

	// An issuer in the unhashed area is honored.
	sig.Unhashed.Add(Subpacket{Tag: SubpacketIssuer, Contents: []byte{0, 0, 0, 0, 0, 0, 0, 9}})
	ids := sig.IssuerKeyIds()
	if len(ids) != 1 || ids[0] != 9 {
		t.Errorf("IssuerKeyIds = %v, want [9]", ids)
	}

	// A hashed issuer takes precedence in the ordering.
	sig.Hashed.Add(Subpacket{Tag: SubpacketIssuer, Contents: []byte{0, 0, 0, 0, 0, 0, 0, 5}})
	ids = sig.IssuerKeyIds()
	if len(ids) != 2 || ids[0] != 5 {
		t.Errorf("IssuerKeyIds = %v, want hashed issuer first", ids)
	}

	// Non self-authenticating tags are ignored in the unhashed area.
	sig2 := testSignature(SigTypeGenericCert, 1)
	sig2.Unhashed.Add(Subpacket{Tag: SubpacketKeyFlags, Contents: []byte{0x03}})
	if _, ok := sig2.Hashed.Subpacket(SubpacketKeyFlags); ok {
		t.Error("unhashed key flags leaked into the hashed area")
	}
	if len(sig2.pairedSubpackets(SubpacketKeyFlags)) != 0 {
		t.Error("paired lookup honored a non self-authenticating unhashed subpacket")
	}
}

func TestSignatureNormalizedEqIgnoresUnhashed(t *testing.T) {
	a := testSignature(SigTypeGenericCert, 1)
	b := testSignature(SigTypeGenericCert, 1)
	b.Unhashed.Add(Subpacket{Tag: SubpacketIssuer, Contents: []byte{0, 0, 0, 0, 0, 0, 0, 9}})

	if !a.NormalizedEq(b) {
		t.Error("signatures differing only in the unhashed area compare unequal")
	}

	c := testSignature(SigTypeGenericCert, 2)
	if a.NormalizedEq(c) {
		t.Error("signatures with different hashed areas compare equal")
	}

	d := testSignature(SigTypeGenericCert, 1)
	d.Material[0] ^= 1
	if a.NormalizedEq(d) {
		t.Error("signatures with different material compare equal")
	}
}

func TestSignatureMergeUnionsUnhashed(t *testing.T) {
	a := testSignature(SigTypeGenericCert, 1)
	a.Unhashed.Add(Subpacket{Tag: SubpacketIssuer, Contents: []byte{0, 0, 0, 0, 0, 0, 0, 9}})
	b := a.Clone()
	b.Unhashed.Clear()
	b.Unhashed.Add(Subpacket{Tag: SubpacketEmbeddedSignature, Contents: []byte{4, 0x19}})

	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}
	if len(a.Unhashed.Subpackets(SubpacketIssuer)) != 1 {
		t.Error("merge lost the issuer subpacket")
	}
	if len(a.Unhashed.Subpackets(SubpacketEmbeddedSignature)) != 1 {
		t.Error("merge did not pick up the other copy's subpacket")
	}

	// Merging again changes nothing.
	before := a.Unhashed.Bytes()
	if err := a.Merge(b.Clone()); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, a.Unhashed.Bytes()) {
		t.Error("repeated merge is not idempotent")
	}
}

func TestSignatureMergeRejectsDifferentSignatures(t *testing.T) {
	a := testSignature(SigTypeGenericCert, 1)
	b := testSignature(SigTypeGenericCert, 2)
	if err := a.Merge(b); err == nil {
		t.Error("merged two different signatures")
	}
}

func TestSignatureCreationTimeMissing(t *testing.T) {
	sig := &Signature{Version: 4, SigType: SigTypeGenericCert, PubKeyAlgo: PubKeyAlgoEd25519, HashId: 8}
	if _, ok := sig.CreationTime(); ok {
		t.Error("signature without creation time reported one")
	}
	// Creation time in the unhashed area does not count.
	ct := make([]byte, 4)
	binary.BigEndian.PutUint32(ct, uint32(time.Now().Unix()))
	sig.Unhashed.Add(Subpacket{Tag: SubpacketCreationTime, Contents: ct})
	if _, ok := sig.CreationTime(); ok {
		t.Error("creation time taken from the unhashed area")
	}
}
