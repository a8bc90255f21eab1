package pgpcert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/pgpcert/pgpcert/errors"
	"github.com/pgpcert/pgpcert/packet"
)

func TestInsertIdenticalPacketIsDropped(t *testing.T) {
	_, c := simpleCert(t)
	before := serializeCert(t, c)

	sig := c.UserIds()[0].SelfSignatures[0]
	changed, err := c.InsertPackets(sig.Clone())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, serializeCert(t, c))
}

func TestInsertNewComponent(t *testing.T) {
	created := time.Unix(1136214245, 0)
	primary, c := simpleCert(t)

	uid := &packet.UserId{Id: "Alice <alice@home.example>"}
	changed, err := c.InsertPackets(
		uid,
		userIdSig(t, primary, primary.pk, uid, packet.SigTypePositiveCert, created),
	)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, c.UserIds(), 2)
}

func TestInsertSameIdentityOverwrites(t *testing.T) {
	_, c := simpleCert(t)

	// The same signature with an extra unhashed subpacket: same
	// identity, different bytes.
	sig := c.UserIds()[0].SelfSignatures[0].Clone()
	require.NoError(t, sig.Unhashed.Add(packet.Subpacket{
		Tag:      packet.SubpacketIssuerFingerprint,
		Contents: append([]byte{4}, c.Fingerprint()...),
	}))

	changed, err := c.InsertPackets(sig)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, c.UserIds()[0].SelfSignatures, 1)
	assert.NotEmpty(t, c.UserIds()[0].SelfSignatures[0].Unhashed.Subpackets(packet.SubpacketIssuerFingerprint))
}

func TestInsertSecretKeyOverPublic(t *testing.T) {
	created := time.Unix(1136214245, 0)
	primary := newTestKey(t, created, false)

	c, err := FromPackets([]packet.Packet{primary.pk}, nil)
	require.NoError(t, err)
	require.False(t, c.HasSecretKeyMaterial())

	changed, err := c.InsertPackets(primary.secretKeyPacket(t, []byte{0x00, 0x01}))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, c.HasSecretKeyMaterial())
}

func TestInsertResolverKeepsExisting(t *testing.T) {
	created := time.Unix(1136214245, 0)
	primary := newTestKey(t, created, false)

	c, err := FromPackets([]packet.Packet{
		primary.secretKeyPacket(t, []byte{0x00, 0x01}),
	}, nil)
	require.NoError(t, err)

	keep := func(existing, incoming packet.Packet) (packet.Packet, error) {
		if existing != nil {
			return existing, nil
		}
		return incoming, nil
	}
	changed, err := c.InsertPacketsWith(keep, primary.pk)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, c.HasSecretKeyMaterial())
}

func TestInsertResolverContractViolation(t *testing.T) {
	_, c := simpleCert(t)

	evil := func(existing, incoming packet.Packet) (packet.Packet, error) {
		return &packet.UserId{Id: "Mallory <mallory@evil.example>"}, nil
	}
	uid := &packet.UserId{Id: "Alice <alice@home.example>"}
	_, err := c.InsertPacketsWith(evil, uid)
	require.Error(t, err)
	assert.IsType(t, pkgerrors.InvalidOperationError(""), err)
}

func TestInsertDisallowedPacketRejected(t *testing.T) {
	_, c := simpleCert(t)
	before := serializeCert(t, c)

	literal := &packet.Unknown{PacketTag: packet.TagLiteralData, Contents: []byte("hi")}
	_, err := c.InsertPackets(literal)
	require.Error(t, err)
	assert.Equal(t, before, serializeCert(t, c))
}
