package engine

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationValidate(t *testing.T) {
	assert.NoError(t, Vote().Validate())
	assert.NoError(t, Deposit(big.NewInt(1)).Validate())
	assert.NoError(t, Withdraw(big.NewInt(1)).Validate())

	assert.Error(t, Deposit(nil).Validate())
	assert.Error(t, Deposit(big.NewInt(0)).Validate())
	assert.Error(t, Withdraw(big.NewInt(-5)).Validate())
	assert.Error(t, Operation{Kind: OpKind(99)}.Validate())
}

func TestOperationString(t *testing.T) {
	assert.Equal(t, "vote", Vote().String())
	assert.Equal(t, "deposit(1000 wei)", Deposit(big.NewInt(1000)).String())
	assert.Equal(t, "withdraw(5 wei)", Withdraw(big.NewInt(5)).String())
}
