package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validTranche(t *testing.T) Tranche {
	t.Helper()
	return Tranche{
		TrancheID:    "t1",
		Name:         "Series A",
		Symbol:       "SRA",
		FundingGoal:  100_000,
		UnitPrice:    1,
		PaymentAsset: "USDC",
		Treasury:     testHolder(t, 0x10),
		Operator:     testHolder(t, 0x11),
		IsActive:     true,
	}
}

func TestTranche_Validate(t *testing.T) {
	tr := validTranche(t)
	assert.NoError(t, tr.Validate())

	tr = validTranche(t)
	tr.FundingGoal = 0
	assert.ErrorIs(t, tr.Validate(), ErrInvalidInput)

	tr = validTranche(t)
	tr.UnitPrice = 0
	assert.ErrorIs(t, tr.Validate(), ErrInvalidInput)

	tr = validTranche(t)
	tr.PaymentAsset = ""
	assert.ErrorIs(t, tr.Validate(), ErrInvalidInput)

	tr = validTranche(t)
	tr.Treasury = "garbage"
	assert.ErrorIs(t, tr.Validate(), ErrInvalidInput)
}

func TestTrancheStatus(t *testing.T) {
	assert.True(t, StatusActive.IsValid())
	assert.True(t, StatusClosedSuccess.IsValid())
	assert.True(t, StatusClosedCancelled.IsValid())
	assert.False(t, TrancheStatus("BOGUS").IsValid())

	assert.False(t, StatusActive.IsTerminal())
	assert.True(t, StatusClosedSuccess.IsTerminal())
	assert.True(t, StatusClosedCancelled.IsTerminal())
}
