package snapshot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polyfile/pfdbg/snapshot"
)

func TestGuardRestoresEveryField(t *testing.T) {
	t.Parallel()

	snap := snapshot.Snapshot{
		Data:        []byte("original"),
		LastOffset:  5,
		LastCommand: "where",
	}

	guard := snapshot.Save(&snap)

	snap.Data = []byte("mutated")
	snap.LastOffset = 99
	snap.LastCommand = "test mime:foo"

	guard.Release()

	assert.Equal(t, []byte("original"), snap.Data)
	assert.Equal(t, 5, snap.LastOffset)
	assert.Equal(t, "where", snap.LastCommand)
}

func TestGuardRestoreIsIndependentOfIntermediateWrites(t *testing.T) {
	t.Parallel()

	snap := snapshot.Snapshot{LastOffset: 1}
	g1 := snapshot.Save(&snap)

	snap.LastOffset = 2
	g2 := snapshot.Save(&snap)

	snap.LastOffset = 3
	g2.Release()
	assert.Equal(t, 2, snap.LastOffset)

	g1.Release()
	assert.Equal(t, 1, snap.LastOffset)
}
