package pgpcert

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pgpcert/pgpcert/packet"
)

// frame wraps a packet body in a new format header.
func frame(t *testing.T, tag packet.Tag, body []byte) []byte {
	t.Helper()
	l := len(body)
	var header []byte
	switch {
	case l < 192:
		header = []byte{0xc0 | byte(tag), byte(l)}
	case l < 8384:
		l -= 192
		header = []byte{0xc0 | byte(tag), 192 + byte(l>>8), byte(l)}
	default:
		t.Fatal("test packet too large")
	}
	return append(header, body...)
}

func mustParsePacket(t *testing.T, raw []byte) packet.Packet {
	t.Helper()
	p, err := packet.Read(bytes.NewReader(raw))
	require.NoError(t, err)
	return p
}

// testKey is a freshly generated Ed25519 key with its packet form.
type testKey struct {
	priv ed25519.PrivateKey
	pk   *packet.PublicKey
}

func keyBody(created time.Time, pub ed25519.PublicKey) []byte {
	body := make([]byte, 0, 38)
	body = append(body, 4)
	body = binary.BigEndian.AppendUint32(body, uint32(created.Unix()))
	body = append(body, byte(packet.PubKeyAlgoEd25519))
	return append(body, pub...)
}

func newTestKey(t *testing.T, created time.Time, isSubkey bool) *testKey {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	tag := packet.TagPublicKey
	if isSubkey {
		tag = packet.TagPublicSubkey
	}
	p := mustParsePacket(t, frame(t, tag, keyBody(created, pub)))
	pk, ok := p.(*packet.PublicKey)
	require.True(t, ok)
	return &testKey{priv: priv, pk: pk}
}

// secretKeyPacket returns the key as a secret key packet carrying the
// given opaque secret blob.
func (k *testKey) secretKeyPacket(t *testing.T, secret []byte) *packet.SecretKey {
	t.Helper()
	tag := packet.TagSecretKey
	if k.pk.IsSubkey {
		tag = packet.TagSecretSubkey
	}
	body := append(keyBody(k.pk.CreationTime, ed25519.PublicKey(k.pk.Material)), secret...)
	p := mustParsePacket(t, frame(t, tag, body))
	sk, ok := p.(*packet.SecretKey)
	require.True(t, ok)
	return sk
}

// baseSig returns an unsigned Ed25519 signature skeleton with a
// creation time and an issuer key ID in the hashed area.
func baseSig(t *testing.T, sigType packet.SignatureType, issuer uint64, created time.Time) *packet.Signature {
	t.Helper()
	sig := &packet.Signature{
		Version:    4,
		SigType:    sigType,
		PubKeyAlgo: packet.PubKeyAlgoEd25519,
		HashId:     8, // SHA-256
	}
	ct := make([]byte, 4)
	binary.BigEndian.PutUint32(ct, uint32(created.Unix()))
	require.NoError(t, sig.Hashed.Add(packet.Subpacket{Tag: packet.SubpacketCreationTime, Contents: ct}))
	id := make([]byte, 8)
	binary.BigEndian.PutUint64(id, issuer)
	require.NoError(t, sig.Hashed.Add(packet.Subpacket{Tag: packet.SubpacketIssuer, Contents: id}))
	return sig
}

func finishSig(t *testing.T, sig *packet.Signature, priv ed25519.PrivateKey, digest []byte, err error) {
	t.Helper()
	require.NoError(t, err)
	copy(sig.HashTag[:], digest[:2])
	sig.Material = ed25519.Sign(priv, digest)
}

// directKeySig makes a verified direct key signature or key revocation
// on pk by signer.
func directKeySig(t *testing.T, signer *testKey, pk *packet.PublicKey, sigType packet.SignatureType, created time.Time) *packet.Signature {
	t.Helper()
	sig := baseSig(t, sigType, signer.pk.KeyId, created)
	digest, err := packet.DirectKeyDigest(pk, sig)
	finishSig(t, sig, signer.priv, digest, err)
	return sig
}

// userIdSig makes a certification family signature over uid by signer.
func userIdSig(t *testing.T, signer *testKey, pk *packet.PublicKey, uid *packet.UserId, sigType packet.SignatureType, created time.Time) *packet.Signature {
	t.Helper()
	sig := baseSig(t, sigType, signer.pk.KeyId, created)
	digest, err := packet.UserIdBindingDigest(pk, uid, sig)
	finishSig(t, sig, signer.priv, digest, err)
	return sig
}

// bindingSig makes a subkey binding or revocation over sub by signer.
func bindingSig(t *testing.T, signer *testKey, pk, sub *packet.PublicKey, sigType packet.SignatureType, created time.Time) *packet.Signature {
	t.Helper()
	sig := baseSig(t, sigType, signer.pk.KeyId, created)
	digest, err := packet.KeyBindingDigest(pk, sub, sig)
	finishSig(t, sig, signer.priv, digest, err)
	return sig
}

func serializeCert(t *testing.T, c *Cert) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Serialize(&buf))
	return buf.Bytes()
}

// simpleCert builds a certificate with one user ID and one subkey,
// fully self signed.
func simpleCert(t *testing.T) (*testKey, *Cert) {
	t.Helper()
	created := time.Unix(1136214245, 0)
	primary := newTestKey(t, created, false)
	sub := newTestKey(t, created, true)
	uid := &packet.UserId{Id: "Alice Lovelace <alice@example.org>"}

	c, err := FromPackets([]packet.Packet{
		primary.pk,
		directKeySig(t, primary, primary.pk, packet.SigTypeDirectSignature, created),
		uid,
		userIdSig(t, primary, primary.pk, uid, packet.SigTypePositiveCert, created),
		sub.pk,
		bindingSig(t, primary, primary.pk, sub.pk, packet.SigTypeSubkeyBinding, created),
	}, nil)
	require.NoError(t, err)
	return primary, c
}
