package repository

import (
	"context"
	"testing"
	"time"

	"coinpool/models"
	"coinpool/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBetRepository_CreateAndListOpen(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	accountRepo := NewAccountRepository(testDB.DB)
	repo := NewBetRepository(testDB.DB)
	ctx := context.Background()

	require.NoError(t, accountRepo.Create(ctx, testutil.CreateTestAccount(100001, "alice")))
	require.NoError(t, accountRepo.Create(ctx, testutil.CreateTestAccount(100002, "bob")))

	heads := testutil.CreateTestBet(100001, 10, models.SideHeads)
	require.NoError(t, repo.Create(ctx, heads))
	assert.NotZero(t, heads.ID)

	tails := testutil.CreateTestBet(100002, 25, models.SideTails)
	require.NoError(t, repo.Create(ctx, tails))

	open, err := repo.ListOpenForUpdate(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)

	// Stable id order so settlement processes a deterministic snapshot
	assert.Equal(t, heads.ID, open[0].ID)
	assert.Equal(t, tails.ID, open[1].ID)
}

func TestBetRepository_DeleteByIDs(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	accountRepo := NewAccountRepository(testDB.DB)
	repo := NewBetRepository(testDB.DB)
	ctx := context.Background()

	require.NoError(t, accountRepo.Create(ctx, testutil.CreateTestAccount(100001, "alice")))

	first := testutil.CreateTestBet(100001, 10, models.SideHeads)
	second := testutil.CreateTestBet(100001, 20, models.SideTails)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	t.Run("removes exactly the settled bets", func(t *testing.T) {
		err := repo.DeleteByIDs(ctx, []int64{first.ID})
		require.NoError(t, err)

		open, err := repo.ListOpenForUpdate(ctx)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, second.ID, open[0].ID)
	})

	t.Run("missing id is an error", func(t *testing.T) {
		err := repo.DeleteByIDs(ctx, []int64{first.ID, second.ID})
		assert.Error(t, err)
	})
}

func TestBetRepository_RecordResultsAndHistory(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	accountRepo := NewAccountRepository(testDB.DB)
	repo := NewBetRepository(testDB.DB)
	ctx := context.Background()

	require.NoError(t, accountRepo.Create(ctx, testutil.CreateTestAccount(100001, "alice")))

	results := []*models.BetResult{
		{UserID: 100001, Amount: 10, Side: models.SideHeads, Result: models.OutcomeWin, Payout: 20},
		{UserID: 100001, Amount: 15, Side: models.SideTails, Result: models.OutcomeLose},
	}
	require.NoError(t, repo.RecordResults(ctx, results))

	history, err := repo.ListResultsByUser(ctx, 100001, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)

	var wins, losses int
	for _, r := range history {
		switch r.Result {
		case models.OutcomeWin:
			wins++
			assert.Equal(t, int64(20), r.Payout)
		case models.OutcomeLose:
			losses++
			assert.Equal(t, int64(0), r.Payout)
		}
		assert.False(t, r.SettledAt.IsZero())
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)
}

func TestBetRepository_GetSummary(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	accountRepo := NewAccountRepository(testDB.DB)
	repo := NewBetRepository(testDB.DB)
	ctx := context.Background()

	require.NoError(t, accountRepo.Create(ctx, testutil.CreateTestAccount(100001, "alice")))
	require.NoError(t, accountRepo.Create(ctx, testutil.CreateTestAccount(100002, "bob")))

	require.NoError(t, repo.Create(ctx, testutil.CreateTestBet(100001, 10, models.SideHeads)))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestBet(100001, 30, models.SideHeads)))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestBet(100002, 25, models.SideTails)))

	t.Run("aggregates per side", func(t *testing.T) {
		summary, err := repo.GetSummary(ctx, time.Now().Add(-30*time.Minute))
		require.NoError(t, err)
		require.Len(t, summary, 2)

		bySide := map[models.BetSide]*models.SideSummary{}
		for _, s := range summary {
			bySide[s.Side] = s
		}
		require.Contains(t, bySide, models.SideHeads)
		require.Contains(t, bySide, models.SideTails)

		assert.Equal(t, 2, bySide[models.SideHeads].NumBets)
		assert.Equal(t, int64(40), bySide[models.SideHeads].TotalAmount)
		assert.Equal(t, 1, bySide[models.SideTails].NumBets)
		assert.Equal(t, int64(25), bySide[models.SideTails].TotalAmount)
	})

	t.Run("window excludes old bets", func(t *testing.T) {
		summary, err := repo.GetSummary(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.Empty(t, summary)
	})
}

func TestBetRepository_ListRecent(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	accountRepo := NewAccountRepository(testDB.DB)
	repo := NewBetRepository(testDB.DB)
	ctx := context.Background()

	require.NoError(t, accountRepo.Create(ctx, testutil.CreateTestAccount(100001, "alice")))

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, repo.Create(ctx, testutil.CreateTestBet(100001, i*10, models.SideHeads)))
	}

	recent, err := repo.ListRecent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}
