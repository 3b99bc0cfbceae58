package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raxxex/arbtronx-live-trading/internal/models"
)

func TestBadgerRepositoryRoundTrip(t *testing.T) {
	repo, err := NewBadgerRepository(t.TempDir())
	require.NoError(t, err)
	defer repo.Close()

	// fresh database: no state yet
	loaded, err := repo.LoadState()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	state := &models.EngineState{
		Version:         1,
		StartingCapital: 200,
		TotalProfit:     42.5,
		TotalCycles:     3,
		DailyPnL:        map[string]float64{"2026-08-29": 42.5},
		CompletedCycles: []models.CompletedCycle{
			{CycleID: "cycle_1", Symbol: "BTC/USDT", Profit: 42.5, ROIPct: 21.25},
		},
		Roadmap: models.RoadmapState{
			CurrentPhase:         1,
			StartTime:            time.Now().UTC().Truncate(time.Second),
			TotalCyclesCompleted: 3,
			TotalProfit:          42.5,
		},
		LastUpdateTime: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.SaveState(state))

	loaded, err = repo.LoadState()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, state.TotalProfit, loaded.TotalProfit)
	assert.Equal(t, state.DailyPnL, loaded.DailyPnL)
	assert.Equal(t, state.CompletedCycles, loaded.CompletedCycles)
	assert.Equal(t, state.Roadmap.TotalCyclesCompleted, loaded.Roadmap.TotalCyclesCompleted)
}

func TestBadgerRepositoryOverwrite(t *testing.T) {
	repo, err := NewBadgerRepository(t.TempDir())
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.SaveState(&models.EngineState{Version: 1, TotalCycles: 1}))
	require.NoError(t, repo.SaveState(&models.EngineState{Version: 1, TotalCycles: 2}))

	loaded, err := repo.LoadState()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 2, loaded.TotalCycles)
}
