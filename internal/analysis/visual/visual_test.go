package visual

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talon/internal/ledger"
)

func closed(exit time.Time, pnl float64) ledger.TradeRecord {
	return ledger.TradeRecord{ExitTime: &exit, Pnl: &pnl}
}

func TestBuildEquityCurveAccumulates(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	points := BuildEquityCurve(1000, []ledger.TradeRecord{
		closed(base, 50),
		closed(base.Add(time.Hour), -20),
		{}, // open trade, no exit yet
		closed(base.Add(2*time.Hour), 10),
	})
	require.Len(t, points, 3)
	assert.Equal(t, 1050.0, points[0].Equity)
	assert.Equal(t, 1030.0, points[1].Equity)
	assert.Equal(t, 1040.0, points[2].Equity)
}

func TestBuildEquityCurveEmpty(t *testing.T) {
	assert.Empty(t, BuildEquityCurve(1000, nil))
}

func TestRenderEquityCurveProducesHTML(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	points := BuildEquityCurve(100, []ledger.TradeRecord{closed(base, 5), closed(base.Add(time.Hour), -2)})

	var buf bytes.Buffer
	require.NoError(t, RenderEquityCurve(&buf, "Realized Equity", points))
	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "Realized Equity")
}
