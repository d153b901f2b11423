package points

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBonusScheduleValidate(t *testing.T) {
	require.NoError(t, BonusSchedule(nil).Validate())
	require.NoError(t, BonusSchedule{{Every: 7, Bonus: 20}, {At: 30, Bonus: 100}}.Validate())
	require.Error(t, BonusSchedule{{Every: 7, At: 7, Bonus: 1}}.Validate())
	require.Error(t, BonusSchedule{{Bonus: 1}}.Validate())
	require.Error(t, BonusSchedule{{Every: 7, Bonus: -1}}.Validate())
	require.Error(t, BonusSchedule{{Every: -7, Bonus: 1}}.Validate())
}

func TestBonusFor(t *testing.T) {
	s := BonusSchedule{{Every: 7, Bonus: 20}, {At: 28, Bonus: 100}}

	require.Equal(t, 0, s.BonusFor(1))
	require.Equal(t, 0, s.BonusFor(6))
	require.Equal(t, 20, s.BonusFor(7))
	require.Equal(t, 20, s.BonusFor(14))
	require.Equal(t, 120, s.BonusFor(28))
	require.Equal(t, 0, BonusSchedule(nil).BonusFor(7))
}

func TestNextBonusIn(t *testing.T) {
	s := BonusSchedule{{Every: 7, Bonus: 20}, {At: 3, Bonus: 5}}

	require.Equal(t, 3, s.NextBonusIn(0))
	require.Equal(t, 1, s.NextBonusIn(2))
	require.Equal(t, 4, s.NextBonusIn(3))
	require.Equal(t, 7, s.NextBonusIn(7))
	require.Equal(t, 0, BonusSchedule{{At: 3, Bonus: 5}}.NextBonusIn(3))
	require.Equal(t, 0, BonusSchedule{{Every: 7}}.NextBonusIn(0))
}
