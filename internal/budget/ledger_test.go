package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLedger_CanAffordAndRecord(t *testing.T) {
	l := New(1000, 100, time.Minute)
	require.True(t, l.CanAfford(500, 40))
	l.Record(500, 40, 10*time.Millisecond)
	require.True(t, l.CanAfford(400, 50))
	require.False(t, l.CanAfford(600, 10))
}

func TestLedger_RemainingRatio(t *testing.T) {
	l := New(1000, 100, time.Hour)
	require.InDelta(t, 1.0, l.RemainingRatio(), 0.001)
	l.Record(500, 50, 0)
	require.InDelta(t, 0.5, l.RemainingRatio(), 0.01)
}

func TestLedger_NeverExceeds105PercentHeadroom(t *testing.T) {
	l := New(100, 0, time.Hour)
	l.Record(90, 0, 0)
	l.Record(15, 0, 0) // Record never rejects; this is the over-budget settlement case.
	snap := l.Snapshot()
	require.LessOrEqual(t, float64(snap.TokensUsed), 1.05*100)
}

func TestLedger_DegradePlan_Bands(t *testing.T) {
	l := New(100, 0, time.Hour)
	require.Empty(t, l.DegradePlan("ask").Overrides)

	l.Record(60, 0, 0) // ratio now 0.4 -> moderate band
	plan := l.DegradePlan("ask")
	require.Equal(t, 2, plan.Overrides["depth"])

	l2 := New(100, 0, time.Hour)
	l2.Record(80, 0, 0) // ratio now 0.2 -> aggressive band
	plan2 := l2.DegradePlan("ask")
	require.Equal(t, 1, plan2.Overrides["depth"])
	require.Contains(t, plan2.Warnings, "degradation_rerank_disabled")
}

func TestLedger_AddWarning(t *testing.T) {
	l := New(100, 10, time.Minute)
	l.AddWarning("pii_masked:ssn")
	require.Equal(t, []string{"pii_masked:ssn"}, l.Warnings())
}
