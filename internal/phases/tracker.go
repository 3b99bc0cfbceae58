package phases

import (
	"math"
	"sync"
	"time"

	"github.com/raxxex/arbtronx-live-trading/internal/logger"
	"github.com/raxxex/arbtronx-live-trading/internal/models"
)

const finalPhase = 4

// Tracker follows progress through the fixed four-phase capital roadmap.
// A phase seals when its capital target or its cycle target is reached,
// whichever comes first, and the next phase starts from the sealed
// phase's ending capital. All methods are safe for concurrent use.
type Tracker struct {
	mu              sync.Mutex
	startingCapital float64
	currentPhase    int
	totalCycles     int
	totalProfit     float64
	startTime       time.Time
	phases          []models.PhaseInfo
}

// NewTracker creates a roadmap starting in phase 1 with the given
// capital.
func NewTracker(startingCapital float64) *Tracker {
	now := time.Now()
	t := &Tracker{
		startingCapital: startingCapital,
		currentPhase:    1,
		startTime:       now,
		phases: []models.PhaseInfo{
			{PhaseNumber: 1, StartCapital: 200, TargetCapital: 1000, TargetCycles: 8, TargetROIPerCycle: 25.0, CurrentCapital: startingCapital, StartTime: now},
			{PhaseNumber: 2, StartCapital: 1000, TargetCapital: 5000, TargetCycles: 8, TargetROIPerCycle: 25.0},
			{PhaseNumber: 3, StartCapital: 5000, TargetCapital: 20000, TargetCycles: 6, TargetROIPerCycle: 25.0},
			{PhaseNumber: 4, StartCapital: 20000, TargetCapital: 100000, TargetCycles: 6, TargetROIPerCycle: 20.0},
		},
	}
	return t
}

// UpdateCapital records the latest total capital and checks phase
// advancement.
func (t *Tracker) UpdateCapital(newCapital float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.phases[t.currentPhase-1].CurrentCapital = newCapital
	t.checkAdvancement()
}

// RecordCycle counts a completed cycle against the current phase and
// checks phase advancement.
func (t *Tracker) RecordCycle(profit, roiPct float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.phases[t.currentPhase-1].CompletedCycles++
	t.totalCycles++
	t.totalProfit += profit
	t.checkAdvancement()
}

// checkAdvancement seals the current phase when either target is met.
// Caller must hold t.mu.
func (t *Tracker) checkAdvancement() {
	phase := &t.phases[t.currentPhase-1]
	if phase.IsComplete {
		return
	}
	if phase.CurrentCapital < phase.TargetCapital && phase.CompletedCycles < phase.TargetCycles {
		return
	}

	phase.IsComplete = true
	phase.EndTime = time.Now()
	logger.S().Infow("Roadmap phase complete",
		"phase", phase.PhaseNumber,
		"capital", phase.CurrentCapital,
		"cycles", phase.CompletedCycles)

	if t.currentPhase < finalPhase {
		t.currentPhase++
		next := &t.phases[t.currentPhase-1]
		next.StartTime = time.Now()
		next.CurrentCapital = phase.CurrentCapital
	}
}

// CurrentPhase returns the active phase number, 1 through 4.
func (t *Tracker) CurrentPhase() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentPhase
}

// RoadmapComplete reports whether phase 4 has sealed.
func (t *Tracker) RoadmapComplete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phases[finalPhase-1].IsComplete
}

// PhaseStatus returns the detailed view of the current phase.
func (t *Tracker) PhaseStatus() models.PhaseStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	phase := t.phases[t.currentPhase-1]
	cycleProgress := float64(phase.CompletedCycles) / float64(phase.TargetCycles) * 100
	capitalProgress := 0.0
	if span := phase.TargetCapital - phase.StartCapital; span > 0 {
		capitalProgress = (phase.CurrentCapital - phase.StartCapital) / span * 100
	}

	return models.PhaseStatus{
		PhaseNumber:        phase.PhaseNumber,
		StartCapital:       phase.StartCapital,
		CurrentCapital:     phase.CurrentCapital,
		TargetCapital:      phase.TargetCapital,
		CompletedCycles:    phase.CompletedCycles,
		TargetCycles:       phase.TargetCycles,
		TargetROIPerCycle:  phase.TargetROIPerCycle,
		CycleProgressPct:   math.Min(cycleProgress, 100),
		CapitalProgressPct: math.Min(capitalProgress, 100),
		CyclesRemaining:    maxInt(0, phase.TargetCycles-phase.CompletedCycles),
		CapitalRemaining:   math.Max(0, phase.TargetCapital-phase.CurrentCapital),
		IsComplete:         phase.IsComplete,
	}
}

// RoadmapOverview returns the status of every phase plus totals.
func (t *Tracker) RoadmapOverview() models.RoadmapOverview {
	t.mu.Lock()
	defer t.mu.Unlock()

	phases := make([]models.PhaseInfo, len(t.phases))
	copy(phases, t.phases)

	return models.RoadmapOverview{
		CurrentPhase:         t.currentPhase,
		TotalCyclesCompleted: t.totalCycles,
		TotalProfit:          t.totalProfit,
		StartingCapital:      t.startingCapital,
		Phases:               phases,
	}
}

// EstimateCompletion projects the roadmap finish date from the observed
// cycles-per-day rate. Unknown until at least one cycle has completed.
func (t *Tracker) EstimateCompletion() models.CompletionEstimate {
	t.mu.Lock()
	defer t.mu.Unlock()

	cyclesRemaining := 0
	for i := t.currentPhase - 1; i < len(t.phases); i++ {
		cyclesRemaining += maxInt(0, t.phases[i].TargetCycles-t.phases[i].CompletedCycles)
	}

	if t.totalCycles == 0 {
		return models.CompletionEstimate{Known: false, CyclesRemaining: cyclesRemaining}
	}

	elapsedDays := time.Since(t.startTime).Hours() / 24
	avgCycleDays := elapsedDays / float64(t.totalCycles)
	avgROI := t.totalProfit / t.startingCapital * 100 / float64(t.totalCycles)
	estimatedDays := float64(cyclesRemaining) * avgCycleDays

	return models.CompletionEstimate{
		Known:            true,
		EstimatedDays:    estimatedDays,
		EstimatedDate:    time.Now().Add(time.Duration(estimatedDays * 24 * float64(time.Hour))),
		AvgROIPerCycle:   avgROI,
		AvgCycleTimeDays: avgCycleDays,
		CyclesRemaining:  cyclesRemaining,
	}
}

// Snapshot exports the tracker state for persistence.
func (t *Tracker) Snapshot() models.RoadmapState {
	t.mu.Lock()
	defer t.mu.Unlock()

	phases := make([]models.PhaseInfo, len(t.phases))
	copy(phases, t.phases)
	return models.RoadmapState{
		CurrentPhase:         t.currentPhase,
		StartTime:            t.startTime,
		TotalCyclesCompleted: t.totalCycles,
		TotalProfit:          t.totalProfit,
		Phases:               phases,
	}
}

// Restore loads a previously saved tracker state. Snapshots with a
// malformed phase list are ignored.
func (t *Tracker) Restore(state models.RoadmapState) {
	if state.CurrentPhase < 1 || state.CurrentPhase > finalPhase || len(state.Phases) != finalPhase {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.currentPhase = state.CurrentPhase
	t.startTime = state.StartTime
	t.totalCycles = state.TotalCyclesCompleted
	t.totalProfit = state.TotalProfit
	copy(t.phases, state.Phases)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
