package replay

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/gunguys/internal/protocol"
)

func TestRecorder_WriteAndReadBack(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf, map[string]string{"mode": "host"})
	require.NoError(t, err)

	for i := uint64(1); i <= 3; i++ {
		st := protocol.NewStateData()
		st.Players["host"] = protocol.PlayerState{X: float64(i), Y: 2, Health: 100, MaxHealth: 100, Level: 1, Weapon: "Pistol"}
		st.Monsters["5"] = protocol.MonsterState{X: 10, Y: 20, Health: 40, MaxHealth: 50}
		require.NoError(t, rec.Write(Record{Seq: i, Timestamp: float64(i) / 30, State: st}))
	}
	assert.Equal(t, uint64(3), rec.Count())
	require.NoError(t, rec.Close())
	assert.Error(t, rec.Write(Record{}), "запись после закрытия")

	r, err := NewReader(&buf)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, rec.ID(), r.Header.ID)
	assert.Equal(t, "host", r.Header.Metadata["mode"])

	var got []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, rec)
	}
	require.Len(t, got, 3)
	assert.Equal(t, uint64(2), got[1].Seq)
	assert.Equal(t, 2.0, got[1].State.Players["host"].X)
	assert.Equal(t, 40.0, got[2].State.Monsters["5"].Health)
}

func TestCreateFile_OpenFile(t *testing.T) {
	dir := t.TempDir()
	rec, path, err := CreateFile(dir, nil)
	require.NoError(t, err)
	require.NoError(t, rec.Write(Record{Seq: 1, State: protocol.NewStateData()}))
	require.NoError(t, rec.Close())

	r, err := OpenFile(path)
	require.NoError(t, err)
	defer r.Close()

	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.Seq)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}
