package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *GameState {
	data := NewStateData()
	data.Players["host"] = PlayerState{X: 10.5, Y: -3, Health: 90, MaxHealth: 100, Level: 2, Weapon: "Rifle"}
	data.Players["c1"] = PlayerState{X: 200, Y: 140, Health: 0, MaxHealth: 110, Level: 3, Weapon: "Sword", Dead: true}
	data.Monsters["17"] = MonsterState{X: 400, Y: 400, Health: 33, MaxHealth: 60, Radius: 18}
	data.Projectiles = append(data.Projectiles,
		ProjectileState{ID: "40", X: 1, Y: 2, VX: 600, VY: 0, Owner: OwnerPlayer},
		ProjectileState{ID: "41", X: 5, Y: 6, VX: -150, VY: 260, Owner: OwnerMonster, Damage: 12.5},
	)
	return &GameState{Data: data, Timestamp: 1700000000.25, Full: true, Seq: 9}
}

func TestEncode_LengthPrefixAndType(t *testing.T) {
	frame, err := Encode(&Shoot{PlayerID: "p1", X: 1, Y: 2, Direction: [2]float64{1, 0}})
	require.NoError(t, err)

	size := ReadUint32(frame)
	assert.Equal(t, len(frame)-HeaderSize, int(size))

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(frame[HeaderSize:], &raw))
	assert.Equal(t, TypeShoot, raw["type"])
	assert.Equal(t, []interface{}{1.0, 0.0}, raw["direction"])
}

func TestFrameBuffer_RoundTripOverPartialReads(t *testing.T) {
	want := sampleState()
	frame, err := Encode(want)
	require.NoError(t, err)

	// Несколько разбиений, включая разрез внутри заголовка
	for _, chunk := range []int{1, 2, 3, 7, 64, len(frame)} {
		var fb FrameBuffer
		var payloads [][]byte
		for off := 0; off < len(frame); off += chunk {
			end := off + chunk
			if end > len(frame) {
				end = len(frame)
			}
			got, err := fb.Feed(frame[off:end])
			require.NoError(t, err)
			if end < len(frame) {
				assert.Empty(t, got, "кадр не должен выдаваться до полного получения (chunk=%d)", chunk)
			}
			payloads = append(payloads, got...)
		}

		require.Len(t, payloads, 1, "chunk=%d", chunk)
		msg, err := Decode(payloads[0])
		require.NoError(t, err)
		assert.Equal(t, want, msg, "chunk=%d", chunk)
		assert.Zero(t, fb.Buffered())
	}
}

func TestFrameBuffer_SeveralFramesInOneRead(t *testing.T) {
	a, err := Encode(&PlayerUpdate{PlayerID: "c1", X: 3, Y: 4, Health: 50, MaxHealth: 100, Level: 1, Weapon: "Pistol"})
	require.NoError(t, err)
	b, err := Encode(&Shoot{PlayerID: "c1", Direction: [2]float64{0, 1}})
	require.NoError(t, err)

	stream := append(append([]byte{}, a...), b...)
	var fb FrameBuffer
	frames, err := fb.Feed(stream[:len(stream)-2])
	require.NoError(t, err)
	require.Len(t, frames, 1)

	frames, err = fb.Feed(stream[len(stream)-2:])
	require.NoError(t, err)
	require.Len(t, frames, 1)

	msg, err := Decode(frames[0])
	require.NoError(t, err)
	shoot, ok := msg.(*Shoot)
	require.True(t, ok)
	assert.Equal(t, [2]float64{0, 1}, shoot.Direction)
}

func TestFrameBuffer_RejectsOversizedFrame(t *testing.T) {
	var fb FrameBuffer
	_, err := fb.Feed(WriteUint32(MaxFrameSize + 1))
	assert.True(t, errors.Is(err, ErrFrameTooLarge))
	assert.Zero(t, fb.Buffered())
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte(`{"type":"teleport"}`))
	assert.True(t, errors.Is(err, ErrUnknownType))

	_, err = Decode([]byte(`{"type":`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"type":"player_update","x":"left"}`))
	assert.Error(t, err)
}

func TestMarshal_DiscoveryWithoutPrefix(t *testing.T) {
	data, err := Marshal(&GameDiscovery{Name: "GunGuys Game", Host: "192.168.1.5", Port: 12345, Timestamp: 1.5, Players: 2})
	require.NoError(t, err)
	assert.Equal(t, byte('{'), data[0])

	msg, err := Decode(data)
	require.NoError(t, err)
	d, ok := msg.(*GameDiscovery)
	require.True(t, ok)
	assert.Equal(t, TypeGameDiscovery, d.Type)
	assert.Equal(t, 12345, d.Port)
	assert.Equal(t, 2, d.Players)
}

func TestDecode_KillCredit(t *testing.T) {
	frame, err := Encode(&KillCredit{PlayerID: "c1", VictimID: "17", Experience: 10})
	require.NoError(t, err)

	msg, err := Decode(frame[HeaderSize:])
	require.NoError(t, err)
	c, ok := msg.(*KillCredit)
	require.True(t, ok)
	assert.Equal(t, TypeKillCredit, c.Type)
	assert.Equal(t, "c1", c.PlayerID)
	assert.Equal(t, "17", c.VictimID)
	assert.Equal(t, 10, c.Experience)
}
