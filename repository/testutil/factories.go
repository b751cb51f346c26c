package testutil

import (
	"coinpool/models"
)

// CreateTestAccount creates a test account with default values
func CreateTestAccount(userID int64, displayName string) *models.Account {
	return &models.Account{
		UserID:       userID,
		DisplayName:  displayName,
		Balance:      1000,
		BonusBalance: 30,
	}
}

// CreateTestAccountWithBalance creates a test account with a specific balance
func CreateTestAccountWithBalance(userID int64, displayName string, balance int64) *models.Account {
	account := CreateTestAccount(userID, displayName)
	account.Balance = balance
	return account
}

// CreateTestDeposit creates a pending deposit request
func CreateTestDeposit(userID int64, reference string, amount int64) *models.MoneyRequest {
	return &models.MoneyRequest{
		UserID:    userID,
		Kind:      models.RequestKindDeposit,
		Amount:    amount,
		Reference: reference,
	}
}

// CreateTestWithdrawal creates a pending withdrawal request
func CreateTestWithdrawal(userID int64, payee string, amount int64) *models.MoneyRequest {
	return &models.MoneyRequest{
		UserID:    userID,
		Kind:      models.RequestKindWithdrawal,
		Amount:    amount,
		Reference: payee,
	}
}

// CreateTestBet creates an open bet
func CreateTestBet(userID int64, amount int64, side models.BetSide) *models.Bet {
	return &models.Bet{
		UserID: userID,
		Amount: amount,
		Side:   side,
	}
}

// CreateTestBalanceHistory creates a balance history entry
func CreateTestBalanceHistory(userID int64, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   1000,
		BalanceAfter:    900,
		ChangeAmount:    -100,
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
	}
}
