package pgpcert

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgpcert/pgpcert/packet"
)

// reparse round-trips a certificate through its binary form, giving an
// independent copy that shares no packets with the original.
func reparse(t *testing.T, c *Cert) *Cert {
	t.Helper()
	out, err := ParseCert(bytes.NewReader(serializeCert(t, c)), nil)
	require.NoError(t, err)
	return out
}

// twoViews builds two different views of the same certificate: one
// with a user ID, one with another user ID and a subkey.
func twoViews(t *testing.T) (*Cert, *Cert) {
	t.Helper()
	created := time.Unix(1136214245, 0)
	primary := newTestKey(t, created, false)
	sub := newTestKey(t, created, true)
	uidA := &packet.UserId{Id: "Alice <alice@example.org>"}
	uidW := &packet.UserId{Id: "Alice <alice@work.example>"}

	a, err := FromPackets([]packet.Packet{
		primary.pk,
		uidA,
		userIdSig(t, primary, primary.pk, uidA, packet.SigTypePositiveCert, created),
	}, nil)
	require.NoError(t, err)

	b, err := FromPackets([]packet.Packet{
		primary.pk,
		uidW,
		userIdSig(t, primary, primary.pk, uidW, packet.SigTypePositiveCert, created),
		sub.pk,
		bindingSig(t, primary, primary.pk, sub.pk, packet.SigTypeSubkeyBinding, created),
	}, nil)
	require.NoError(t, err)

	return a, b
}

func TestMergeCombinesComponents(t *testing.T) {
	a, b := twoViews(t)

	merged, err := a.MergePublic(b)
	require.NoError(t, err)

	assert.Len(t, merged.UserIds(), 2)
	assert.Len(t, merged.Subkeys(), 1)
	assert.Empty(t, merged.BadSignatures())
}

func TestMergeCommutes(t *testing.T) {
	a, b := twoViews(t)
	a2, b2 := reparse(t, a), reparse(t, b)

	ab, err := a.MergePublic(b)
	require.NoError(t, err)
	ba, err := b2.MergePublic(a2)
	require.NoError(t, err)

	assert.Equal(t, serializeCert(t, ab), serializeCert(t, ba))
}

func TestMergeConvergesAcrossPermutations(t *testing.T) {
	created := time.Unix(1136214245, 0)
	primary := newTestKey(t, created, false)
	sub := newTestKey(t, created, true)
	uidA := &packet.UserId{Id: "Alice <alice@example.org>"}
	uidW := &packet.UserId{Id: "Alice <alice@work.example>"}

	base, err := FromPackets([]packet.Packet{
		primary.pk,
		directKeySig(t, primary, primary.pk, packet.SigTypeDirectSignature, created),
	}, nil)
	require.NoError(t, err)

	withUid, err := FromPackets([]packet.Packet{
		primary.pk,
		uidA,
		userIdSig(t, primary, primary.pk, uidA, packet.SigTypePositiveCert, created),
	}, nil)
	require.NoError(t, err)

	withSub, err := FromPackets([]packet.Packet{
		primary.pk,
		uidW,
		userIdSig(t, primary, primary.pk, uidW, packet.SigTypePositiveCert, created),
		sub.pk,
		bindingSig(t, primary, primary.pk, sub.pk, packet.SigTypeSubkeyBinding, created),
	}, nil)
	require.NoError(t, err)

	// Merging consumes its arguments, so each permutation works on
	// fresh copies parsed from the serialized views.
	views := [][]byte{
		serializeCert(t, base),
		serializeCert(t, withUid),
		serializeCert(t, withSub),
	}
	load := func(i int) *Cert {
		c, err := ParseCert(bytes.NewReader(views[i]), nil)
		require.NoError(t, err)
		return c
	}

	var want []byte
	for _, p := range [][3]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	} {
		c := load(p[0])
		c, err := c.MergePublic(load(p[1]))
		require.NoError(t, err)
		c, err = c.MergePublic(load(p[2]))
		require.NoError(t, err)

		got := serializeCert(t, c)
		if want == nil {
			want = got
			assert.Len(t, c.UserIds(), 2)
			assert.Len(t, c.Subkeys(), 1)
			continue
		}
		assert.Equal(t, want, got, "merge order %v diverged", p)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	a, b := twoViews(t)
	b2 := reparse(t, b)

	ab, err := a.MergePublic(b)
	require.NoError(t, err)
	before := serializeCert(t, ab)

	abb, err := ab.MergePublic(b2)
	require.NoError(t, err)
	assert.Equal(t, before, serializeCert(t, abb))
}

func TestMergeRejectsDifferentCertificates(t *testing.T) {
	_, a := simpleCert(t)
	_, b := simpleCert(t)

	_, err := a.MergePublic(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fingerprints differ")
}

func TestMergeLearnsRevocation(t *testing.T) {
	created := time.Unix(1136214245, 0)
	revokedAt := created.Add(24 * time.Hour)
	primary := newTestKey(t, created, false)
	uid := &packet.UserId{Id: "Alice <alice@example.org>"}

	a, err := FromPackets([]packet.Packet{
		primary.pk,
		uid,
		userIdSig(t, primary, primary.pk, uid, packet.SigTypePositiveCert, created),
	}, nil)
	require.NoError(t, err)
	require.Equal(t, NotAsFarAsWeKnow, a.RevocationStatus(revokedAt.Add(time.Hour)).State)

	b, err := FromPackets([]packet.Packet{
		primary.pk,
		directKeySig(t, primary, primary.pk, packet.SigTypeKeyRevocation, revokedAt),
	}, nil)
	require.NoError(t, err)

	merged, err := a.MergePublic(b)
	require.NoError(t, err)

	assert.Equal(t, Revoked, merged.RevocationStatus(revokedAt.Add(time.Hour)).State)
	assert.Equal(t, NotAsFarAsWeKnow, merged.RevocationStatus(created.Add(time.Hour)).State)
}

func TestThirdPartyRevocationIsInconclusive(t *testing.T) {
	created := time.Unix(1136214245, 0)
	primary := newTestKey(t, created, false)
	revoker := newTestKey(t, created, false)

	c, err := FromPackets([]packet.Packet{
		primary.pk,
		directKeySig(t, revoker, primary.pk, packet.SigTypeKeyRevocation, created.Add(time.Hour)),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, CouldBeRevoked, c.RevocationStatus(created.Add(2*time.Hour)).State)
}

func TestMergePublicIgnoresOtherSecrets(t *testing.T) {
	created := time.Unix(1136214245, 0)
	primary := newTestKey(t, created, false)
	uid := &packet.UserId{Id: "Alice <alice@example.org>"}
	uidSig := userIdSig(t, primary, primary.pk, uid, packet.SigTypePositiveCert, created)

	pub, err := FromPackets([]packet.Packet{primary.pk, uid, uidSig}, nil)
	require.NoError(t, err)

	sec, err := FromPackets([]packet.Packet{
		primary.secretKeyPacket(t, []byte{0x00, 0x01, 0x02, 0x03}),
	}, nil)
	require.NoError(t, err)
	require.True(t, sec.HasSecretKeyMaterial())

	merged, err := pub.MergePublic(sec)
	require.NoError(t, err)
	assert.False(t, merged.HasSecretKeyMaterial())
	assert.Len(t, merged.UserIds(), 1)
}

func TestMergePublicAndSecretPrefersOther(t *testing.T) {
	created := time.Unix(1136214245, 0)
	primary := newTestKey(t, created, false)

	mine, err := FromPackets([]packet.Packet{
		primary.secretKeyPacket(t, []byte{0x00, 0x0a}),
	}, nil)
	require.NoError(t, err)

	theirs, err := FromPackets([]packet.Packet{
		primary.secretKeyPacket(t, []byte{0x00, 0x0b}),
	}, nil)
	require.NoError(t, err)

	merged, err := mine.MergePublicAndSecret(theirs)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x0b}, merged.Primary().Secret)
}

func TestSecretKeyRoundTrip(t *testing.T) {
	created := time.Unix(1136214245, 0)
	primary := newTestKey(t, created, false)

	c, err := FromPackets([]packet.Packet{
		primary.secretKeyPacket(t, []byte{0x00, 0x01, 0x02}),
	}, nil)
	require.NoError(t, err)
	require.True(t, c.HasSecretKeyMaterial())

	out := serializeCert(t, c)
	reparsed, err := ParseCert(bytes.NewReader(out), nil)
	require.NoError(t, err)
	assert.True(t, reparsed.HasSecretKeyMaterial())
	assert.Equal(t, out, serializeCert(t, reparsed))

	reparsed.StripSecretKeyMaterial()
	assert.False(t, reparsed.HasSecretKeyMaterial())
}
