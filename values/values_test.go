package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveProfile(t *testing.T) {
	t.Run("bolt", func(t *testing.T) {
		p, err := ResolveProfile(Bolt, false)
		require.NoError(t, err)
		assert.True(t, p.SupportsRegen)
		assert.True(t, p.HasHVBattery)
		assert.Equal(t, -1.3, p.BrakeLightAccelThreshold)
		assert.False(t, p.PedalInterceptor)
		assert.False(t, p.InvertedCruiseAvailable)
		assert.False(t, p.SendsPedalCommand())
		assert.Equal(t, []string{MsgRegenPaddle, MsgBatteryVoltageCur}, p.OptionalMessages())
	})

	t.Run("volt with interceptor", func(t *testing.T) {
		p, err := ResolveProfile(Volt, true)
		require.NoError(t, err)
		assert.True(t, p.PedalInterceptor)
		assert.True(t, p.InvertedCruiseAvailable)
		assert.True(t, p.SendsPedalCommand())
		assert.Zero(t, p.BrakeLightAccelThreshold)
	})

	t.Run("interceptor without regen sends no pedal", func(t *testing.T) {
		p, err := ResolveProfile(Acadia, true)
		require.NoError(t, err)
		assert.True(t, p.PedalInterceptor)
		assert.False(t, p.SendsPedalCommand())
		assert.Empty(t, p.OptionalMessages())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := ResolveProfile("TOYOTA PRIUS 2017", false)
		assert.Error(t, err)
	})
}

func TestCarControllerParams(t *testing.T) {
	p := DefaultCarControllerParams()
	require.NoError(t, p.Validate())
	assert.Equal(t, 17.0, p.MaxSteerDelta())
	assert.InDelta(t, 0.15625, p.PedalZero, 1e-12)

	bad := p
	bad.SteerStep = 0
	assert.ErrorContains(t, bad.Validate(), "steer_step")

	bad = p
	bad.SteerDeltaUp = 0
	assert.Error(t, bad.Validate())

	bad = p
	bad.PedalHystGap = 1
	assert.Error(t, bad.Validate())
}

func TestGearFromPRNDL(t *testing.T) {
	assert.Equal(t, GearPark, GearFromPRNDL(1))
	assert.Equal(t, GearReverse, GearFromPRNDL(2))
	assert.Equal(t, GearNeutral, GearFromPRNDL(3))
	assert.Equal(t, GearDrive, GearFromPRNDL(4))
	assert.Equal(t, GearLow, GearFromPRNDL(6))
	assert.Equal(t, GearUnknown, GearFromPRNDL(5))
	assert.Equal(t, "drive", GearDrive.String())
	assert.Equal(t, "sw_gmlan", BusSWGMLAN.String())
}
