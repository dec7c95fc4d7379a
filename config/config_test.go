package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gm-can-core/values"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gmcan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, string(values.Volt), cfg.Vehicle.Fingerprint)
	assert.False(t, cfg.Vehicle.EnableGasInterceptor)
	assert.Equal(t, "vcan0", cfg.CAN.Powertrain)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, values.DefaultCarControllerParams(), cfg.ControllerParams())
}

func TestLoad_ShippedFile(t *testing.T) {
	cfg, err := Load("gmcan.yaml")
	require.NoError(t, err)

	profile, err := cfg.Profile()
	require.NoError(t, err)
	assert.True(t, profile.SendsPedalCommand())
	assert.Equal(t, map[values.CanBus]string{
		values.BusPowertrain: "vcan0",
		values.BusSWGMLAN:    "vcan1",
	}, cfg.Interfaces())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
vehicle:
  fingerprint: "CHEVROLET BOLT EV PREMIER 2017"
can:
  powertrain: can0
log:
  level: debug
params:
  steer_max: 250
  pedal_step: 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, string(values.Bolt), cfg.Vehicle.Fingerprint)
	assert.Equal(t, "can0", cfg.CAN.Powertrain)
	assert.Equal(t, "vcan0", cfg.CAN.SWGMLAN)
	assert.Equal(t, "config/can/gm_global_a_powertrain.csv", cfg.CAN.DictionaryPath)

	p := cfg.ControllerParams()
	assert.Equal(t, 250.0, p.SteerMax)
	assert.Equal(t, uint64(2), p.PedalStep)
	assert.Equal(t, 7.0, p.SteerDeltaUp)
	assert.Equal(t, uint64(4), p.DashboardStep)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GMCAN_FINGERPRINT", string(values.Acadia))
	t.Setenv("GMCAN_GAS_INTERCEPTOR", "true")
	t.Setenv("GMCAN_PT_IFACE", "can1")
	t.Setenv("GMCAN_SW_GMLAN_IFACE", "can3")
	t.Setenv("GMCAN_LOG_LEVEL", "trace")

	cfg, err := Load(writeConfig(t, "vehicle:\n  fingerprint: \"CHEVROLET VOLT PREMIER 2017\"\n"))
	require.NoError(t, err)

	assert.Equal(t, string(values.Acadia), cfg.Vehicle.Fingerprint)
	assert.True(t, cfg.Vehicle.EnableGasInterceptor)
	assert.Equal(t, "can1", cfg.CAN.Powertrain)
	assert.Equal(t, "can3", cfg.CAN.SWGMLAN)
	assert.Equal(t, "trace", cfg.Log.Level)
}

func TestLoad_BadGasInterceptorEnvIgnored(t *testing.T) {
	t.Setenv("GMCAN_GAS_INTERCEPTOR", "sometimes")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Vehicle.EnableGasInterceptor)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"unknown fingerprint", "vehicle:\n  fingerprint: TRABANT\n", "unknown fingerprint"},
		{"unknown key", "vehicle:\n  colour: red\n", "failed to load config"},
		{"bad log level", "log:\n  level: loud\n", "invalid log level"},
		{"empty interface", "can:\n  powertrain: \"\"\n", "can.powertrain"},
		{"negative steer max", "params:\n  steer_max: -1\n", "steer_max"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInterfaces_WithoutSWGMLAN(t *testing.T) {
	cfg := Default()
	cfg.CAN.SWGMLAN = ""
	assert.Equal(t, map[values.CanBus]string{values.BusPowertrain: "vcan0"}, cfg.Interfaces())
}

func TestLoad_LogLevelIsCaseInsensitive(t *testing.T) {
	cfg, err := Load(writeConfig(t, "log:\n  level: INFO\n"))
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.Log.Level)

	t.Setenv("GMCAN_LOG_LEVEL", "Debug")
	_, err = Load("")
	require.NoError(t, err)
}

func TestLoad_ExplicitZeroParams(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
params:
  min_steer_speed: 0
  pedal_hyst_gap: 0
`))
	require.NoError(t, err)

	p := cfg.ControllerParams()
	assert.Zero(t, p.MinSteerSpeed)
	assert.Zero(t, p.PedalHystGap)
	assert.Equal(t, 300.0, p.SteerMax)
	assert.Equal(t, uint64(2), p.SteerStep)
}
