package phases

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrackerStartsInPhaseOne(t *testing.T) {
	tr := NewTracker(200)

	assert.Equal(t, 1, tr.CurrentPhase())
	status := tr.PhaseStatus()
	assert.Equal(t, 200.0, status.CurrentCapital)
	assert.Equal(t, 1000.0, status.TargetCapital)
	assert.Equal(t, 8, status.TargetCycles)
	assert.False(t, status.IsComplete)
}

func TestAdvanceOnCapitalTarget(t *testing.T) {
	tr := NewTracker(200)

	tr.UpdateCapital(999)
	assert.Equal(t, 1, tr.CurrentPhase())

	tr.UpdateCapital(1000)
	assert.Equal(t, 2, tr.CurrentPhase())

	// the new phase inherits the sealed phase's ending capital
	status := tr.PhaseStatus()
	assert.Equal(t, 1000.0, status.CurrentCapital)
	assert.Equal(t, 5000.0, status.TargetCapital)
	assert.Equal(t, 0, status.CompletedCycles)

	overview := tr.RoadmapOverview()
	require.Len(t, overview.Phases, 4)
	assert.True(t, overview.Phases[0].IsComplete)
	assert.False(t, overview.Phases[0].EndTime.IsZero())
	assert.False(t, overview.Phases[1].StartTime.IsZero())
}

func TestAdvanceOnCycleTarget(t *testing.T) {
	tr := NewTracker(200)

	for i := 0; i < 7; i++ {
		tr.RecordCycle(10, 5)
	}
	assert.Equal(t, 1, tr.CurrentPhase())

	tr.RecordCycle(10, 5)
	assert.Equal(t, 2, tr.CurrentPhase(), "eighth cycle must seal phase 1 even below the capital target")

	overview := tr.RoadmapOverview()
	assert.Equal(t, 8, overview.Phases[0].CompletedCycles)
	assert.Equal(t, 8, overview.TotalCyclesCompleted)
	assert.InDelta(t, 80.0, overview.TotalProfit, 1e-9)
}

func TestPhaseAdvancementIsMonotonic(t *testing.T) {
	tr := NewTracker(200)

	// a capital jump past several targets seals only the current phase;
	// the next update seals the next one
	tr.UpdateCapital(6000)
	assert.Equal(t, 2, tr.CurrentPhase())
	tr.UpdateCapital(6000)
	assert.Equal(t, 3, tr.CurrentPhase())
	tr.UpdateCapital(6000)
	assert.Equal(t, 3, tr.CurrentPhase(), "6000 is below the phase 3 target")
}

func TestRoadmapCompletesAtPhaseFour(t *testing.T) {
	tr := NewTracker(200)

	tr.UpdateCapital(1000)
	tr.UpdateCapital(5000)
	tr.UpdateCapital(20000)
	assert.Equal(t, 4, tr.CurrentPhase())
	assert.False(t, tr.RoadmapComplete())

	tr.UpdateCapital(100000)
	assert.Equal(t, 4, tr.CurrentPhase(), "there is no phase 5")
	assert.True(t, tr.RoadmapComplete())

	// further updates must not re-seal or advance
	tr.UpdateCapital(150000)
	assert.Equal(t, 4, tr.CurrentPhase())
}

func TestPhaseStatusProgressFields(t *testing.T) {
	tr := NewTracker(200)
	tr.UpdateCapital(600)
	tr.RecordCycle(100, 25)
	tr.RecordCycle(100, 25)

	status := tr.PhaseStatus()
	assert.InDelta(t, 25.0, status.CycleProgressPct, 1e-9)
	assert.InDelta(t, 50.0, status.CapitalProgressPct, 1e-9)
	assert.Equal(t, 6, status.CyclesRemaining)
	assert.InDelta(t, 400.0, status.CapitalRemaining, 1e-9)
}

func TestEstimateUnknownWithoutCycles(t *testing.T) {
	tr := NewTracker(200)

	est := tr.EstimateCompletion()
	assert.False(t, est.Known)
	assert.Equal(t, 28, est.CyclesRemaining, "8+8+6+6 cycles across all phases")
}

func TestEstimateAfterCycles(t *testing.T) {
	tr := NewTracker(200)
	tr.RecordCycle(50, 25)
	tr.RecordCycle(50, 25)

	est := tr.EstimateCompletion()
	require.True(t, est.Known)
	assert.Equal(t, 26, est.CyclesRemaining)
	// total profit $100 on $200 starting capital over 2 cycles
	assert.InDelta(t, 25.0, est.AvgROIPerCycle, 1e-9)
	assert.False(t, est.EstimatedDate.IsZero())
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	tr := NewTracker(200)
	tr.UpdateCapital(1000)
	tr.RecordCycle(75, 10)

	snap := tr.Snapshot()

	restored := NewTracker(200)
	restored.Restore(snap)

	assert.Equal(t, tr.CurrentPhase(), restored.CurrentPhase())
	assert.Equal(t, tr.RoadmapOverview(), restored.RoadmapOverview())
	assert.WithinDuration(t, time.Now(), snap.StartTime, time.Minute)
}

func TestRestoreRejectsMalformedSnapshot(t *testing.T) {
	tr := NewTracker(200)
	snap := tr.Snapshot()
	snap.CurrentPhase = 9

	tr.RecordCycle(10, 5)
	tr.Restore(snap)
	assert.Equal(t, 1, tr.RoadmapOverview().Phases[0].CompletedCycles,
		"malformed snapshot must be ignored")
}
