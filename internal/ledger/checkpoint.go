package ledger

import "sort"

// Checkpoint records a balance as of one operation sequence number.
// The log is append-only: once recorded, a checkpoint is never altered,
// so historical reads are retroactively stable.
type Checkpoint struct {
	Seq     uint64
	Balance uint64
}

// checkpointLog is a sequence-ordered, append-only list of checkpoints.
type checkpointLog []Checkpoint

// record appends a checkpoint for seq. Several mutations inside the same
// operation collapse into one checkpoint at that sequence number.
func (l *checkpointLog) record(seq, balance uint64) {
	log := *l
	if n := len(log); n > 0 && log[n-1].Seq == seq {
		log[n-1].Balance = balance
		return
	}
	*l = append(log, Checkpoint{Seq: seq, Balance: balance})
}

// at returns the balance as of the latest checkpoint at or before seq.
// Zero if no checkpoint exists at or before seq.
func (l checkpointLog) at(seq uint64) uint64 {
	// First index with Seq > seq; the answer sits just before it.
	i := sort.Search(len(l), func(i int) bool {
		return l[i].Seq > seq
	})
	if i == 0 {
		return 0
	}
	return l[i-1].Balance
}

// latest returns the most recent balance, zero when the log is empty.
func (l checkpointLog) latest() uint64 {
	if len(l) == 0 {
		return 0
	}
	return l[len(l)-1].Balance
}
