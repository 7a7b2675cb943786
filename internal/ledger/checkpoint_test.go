package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckpointLog_At(t *testing.T) {
	var log checkpointLog
	log.record(5, 100)
	log.record(9, 250)
	log.record(20, 0)

	assert.Equal(t, uint64(0), log.at(4), "before first checkpoint")
	assert.Equal(t, uint64(100), log.at(5), "exact match")
	assert.Equal(t, uint64(100), log.at(8), "between checkpoints")
	assert.Equal(t, uint64(250), log.at(9))
	assert.Equal(t, uint64(250), log.at(19))
	assert.Equal(t, uint64(0), log.at(20))
	assert.Equal(t, uint64(0), log.at(1_000_000), "after last checkpoint")
}

func TestCheckpointLog_SameSeqCollapses(t *testing.T) {
	var log checkpointLog
	log.record(3, 10)
	log.record(3, 25)

	assert.Len(t, log, 1)
	assert.Equal(t, uint64(25), log.at(3))
}

func TestCheckpointLog_Empty(t *testing.T) {
	var log checkpointLog
	assert.Equal(t, uint64(0), log.at(99))
	assert.Equal(t, uint64(0), log.latest())
}

func TestCheckpointLog_RetroactivelyStable(t *testing.T) {
	var log checkpointLog
	log.record(5, 100)
	before := log.at(5)

	log.record(6, 9999)
	log.record(7, 1)

	assert.Equal(t, before, log.at(5), "recorded checkpoints never change")
}
