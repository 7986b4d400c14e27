package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskbot/internal/domain"
	"riskbot/internal/ports"
)

func TestPositionSize(t *testing.T) {
	t.Run("long sizing", func(t *testing.T) {
		// 1% of 10000 = 100 risked over a 500-point stop distance.
		qty, err := PositionSize(10000, 1, 45000, 44500)
		require.NoError(t, err)
		assert.InDelta(t, 0.2, qty, 1e-9)
	})

	t.Run("short sizing", func(t *testing.T) {
		qty, err := PositionSize(10000, 1, 2500, 2550)
		require.NoError(t, err)
		assert.InDelta(t, 2.0, qty, 1e-9)
	})

	t.Run("entry equals stop-loss", func(t *testing.T) {
		_, err := PositionSize(10000, 1, 45000, 45000)
		require.Error(t, err)
		assert.ErrorIs(t, err, ports.ErrValidation)
	})

	t.Run("non-positive inputs", func(t *testing.T) {
		cases := []struct {
			name                      string
			balance, risk, entry, sl float64
		}{
			{"zero balance", 0, 1, 45000, 44500},
			{"negative balance", -10, 1, 45000, 44500},
			{"zero risk percent", 10000, 0, 45000, 44500},
			{"zero entry", 10000, 1, 0, 44500},
			{"negative stop-loss", 10000, 1, 45000, -1},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := PositionSize(tc.balance, tc.risk, tc.entry, tc.sl)
				assert.ErrorIs(t, err, ports.ErrValidation)
			})
		}
	})
}

func TestRiskReward(t *testing.T) {
	t.Run("long trade", func(t *testing.T) {
		riskAmt, rewardAmt, ratio, err := RiskReward(45000, 44500, 46500, 0.2)
		require.NoError(t, err)
		assert.InDelta(t, 100.0, riskAmt, 1e-9)
		assert.InDelta(t, 300.0, rewardAmt, 1e-9)
		assert.InDelta(t, 3.0, ratio, 1e-9)
	})

	t.Run("short trade", func(t *testing.T) {
		riskAmt, rewardAmt, ratio, err := RiskReward(2500, 2550, 2400, 2)
		require.NoError(t, err)
		assert.InDelta(t, 100.0, riskAmt, 1e-9)
		assert.InDelta(t, 200.0, rewardAmt, 1e-9)
		assert.InDelta(t, 2.0, ratio, 1e-9)
	})

	t.Run("zero risk denominator", func(t *testing.T) {
		_, _, _, err := RiskReward(45000, 45000, 46500, 0.2)
		assert.ErrorIs(t, err, ports.ErrValidation)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		_, _, _, err := RiskReward(45000, 44500, 46500, 0)
		assert.ErrorIs(t, err, ports.ErrValidation)
	})
}

func TestValidateDirection(t *testing.T) {
	cases := []struct {
		name              string
		direction         domain.Direction
		entry, sl, target float64
		wantErr           bool
	}{
		{"valid long", domain.Long, 45000, 44500, 46500, false},
		{"valid short", domain.Short, 2500, 2550, 2400, false},
		{"long sl above entry", domain.Long, 45000, 45100, 46500, true},
		{"long target below entry", domain.Long, 45000, 44500, 44900, true},
		{"long sl equals entry", domain.Long, 45000, 45000, 46500, true},
		{"short sl below entry", domain.Short, 2500, 2450, 2400, true},
		{"short target above entry", domain.Short, 2500, 2550, 2600, true},
		{"unknown direction", domain.Direction("SIDEWAYS"), 2500, 2550, 2400, true},
		{"negative price", domain.Long, -45000, 44500, 46500, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDirection(tc.direction, tc.entry, tc.sl, tc.target)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ports.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
