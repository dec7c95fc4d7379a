package main

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.einride.tech/can"

	"gm-can-core/config"
	"gm-can-core/utils"
	"gm-can-core/values"
)

type fakeWriter struct {
	mu     sync.Mutex
	frames []can.Frame
	err    error
	closed bool
}

func (w *fakeWriter) WriteFrame(_ context.Context, f can.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.frames = append(w.frames, f)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func (w *fakeWriter) sent() []can.Frame {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]can.Frame(nil), w.frames...)
}

func (w *fakeWriter) byID(id uint32) (can.Frame, bool) {
	for _, f := range w.sent() {
		if f.ID == id {
			return f, true
		}
	}
	return can.Frame{}, false
}

// chanReader hands out queued frames and blocks until ctx is done.
type chanReader struct {
	frames chan can.Frame
}

func (r *chanReader) ReadFrame(ctx context.Context) (can.Frame, error) {
	select {
	case f := <-r.frames:
		return f, nil
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	}
}

func (r *chanReader) Close() error { return nil }

type runnerFixture struct {
	runner *Runner
	cmap   *utils.CANMap
	pt     *fakeWriter
	logBuf *bytes.Buffer
}

func newFixture(t *testing.T, fp values.Fingerprint, interceptor bool, scenJSON string) runnerFixture {
	t.Helper()
	cmap, err := utils.LoadCANMap("../config/can/gm_global_a_powertrain.csv")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Vehicle.Fingerprint = string(fp)
	cfg.Vehicle.EnableGasInterceptor = interceptor
	require.NoError(t, cfg.Validate())

	scen, err := ParseScenario([]byte(scenJSON))
	require.NoError(t, err)

	var buf bytes.Buffer
	log := utils.NewLogger(&buf, utils.DEBUG)
	pt := &fakeWriter{}
	r, err := newRunner(cfg, cmap, scen, log, &chanReader{frames: make(chan can.Frame, 16)},
		map[values.CanBus]utils.CANWriter{values.BusPowertrain: pt})
	require.NoError(t, err)
	return runnerFixture{runner: r, cmap: cmap, pt: pt, logBuf: &buf}
}

// driveAt feeds one frame of every required message, as a healthy car
// rolling at kph would send it.
func (f runnerFixture) driveAt(t *testing.T, kph float64) {
	t.Helper()
	overrides := map[string]map[string]float64{
		values.MsgWheelSpdFront: {"FLWheelSpd": kph, "FRWheelSpd": kph},
		values.MsgWheelSpdRear:  {"RLWheelSpd": kph, "RRWheelSpd": kph},
	}
	for _, msg := range f.runner.est.RequiredMessages() {
		fr, err := f.cmap.EncodeEinrideFrame(msg, overrides[msg])
		require.NoError(t, err)
		ok, err := f.runner.cache.Update(fr)
		require.NoError(t, err)
		require.True(t, ok, msg)
	}
}

const engagedScenario = `{
	"meta": {"name": "engaged"},
	"timing": {"duration_s": 0.05},
	"defaults": {"enabled": true, "steer": 1, "v_cruise_mps": 25}
}`

func TestRunnerStep_WithoutSignalsSendsDisabledFrames(t *testing.T) {
	f := newFixture(t, values.Volt, false, engagedScenario)

	require.NoError(t, f.runner.Step(context.Background(), 0))
	require.NoError(t, f.runner.Step(context.Background(), 0.01))

	steer, ok := f.pt.byID(0x180)
	require.True(t, ok)
	got, err := f.cmap.DecodeFrame(steer.ID, steer.Data[:steer.Length])
	require.NoError(t, err)
	assert.Zero(t, got["LKASteeringCmd"])
	assert.Zero(t, got["LKASteeringCmdActive"])

	// steering, dashboard and two keep-alives; the icon has no interface
	assert.Len(t, f.pt.sent(), 4)
	assert.Equal(t, uint64(2), f.runner.frame)

	logs := f.logBuf.String()
	assert.Equal(t, 1, bytes.Count(f.logBuf.Bytes(), []byte("Vehicle state unavailable")))
	assert.Equal(t, 1, bytes.Count(f.logBuf.Bytes(), []byte("No interface for bus sw_gmlan")))
	assert.Contains(t, logs, "missing message")
}

func TestRunnerStep_SteersWhenMoving(t *testing.T) {
	f := newFixture(t, values.Malibu, false, engagedScenario)
	f.driveAt(t, 36)

	require.NoError(t, f.runner.Step(context.Background(), 0))

	steer, ok := f.pt.byID(0x180)
	require.True(t, ok)
	got, err := f.cmap.DecodeFrame(steer.ID, steer.Data[:steer.Length])
	require.NoError(t, err)
	assert.Equal(t, 7.0, got["LKASteeringCmd"])
	assert.Equal(t, 1.0, got["LKASteeringCmdActive"])

	dash, ok := f.pt.byID(0x370)
	require.True(t, ok)
	got, err = f.cmap.DecodeFrame(dash.ID, dash.Data[:dash.Length])
	require.NoError(t, err)
	assert.Equal(t, 1440.0, got["ACCSpeedSetpoint"])
}

func TestRunnerStep_RecoversAfterMissingSignals(t *testing.T) {
	f := newFixture(t, values.Malibu, false, engagedScenario)

	require.NoError(t, f.runner.Step(context.Background(), 0))
	f.driveAt(t, 36)
	require.NoError(t, f.runner.Step(context.Background(), 0.01))

	assert.Contains(t, f.logBuf.String(), "Vehicle state recovered")
	assert.Empty(t, f.runner.lastMissing)
}

func TestRunnerStep_DisengagesWhenBusGoesSilent(t *testing.T) {
	f := newFixture(t, values.Malibu, false, engagedScenario)
	now := time.Unix(5000, 0)
	f.runner.cache.SetClock(func() time.Time { return now })
	f.driveAt(t, 36)

	lastSteer := func() map[string]float64 {
		t.Helper()
		sent := f.pt.sent()
		for i := len(sent) - 1; i >= 0; i-- {
			if sent[i].ID == 0x180 {
				got, err := f.cmap.DecodeFrame(sent[i].ID, sent[i].Data[:sent[i].Length])
				require.NoError(t, err)
				return got
			}
		}
		t.Fatal("no steering frame sent")
		return nil
	}

	require.NoError(t, f.runner.Step(context.Background(), 0))
	assert.Equal(t, 1.0, lastSteer()["LKASteeringCmdActive"])

	for i := 1; i <= 1000; i++ {
		now = now.Add(10 * time.Millisecond)
		require.NoError(t, f.runner.Step(context.Background(), float64(i)*0.01))
	}

	steer := lastSteer()
	assert.Zero(t, steer["LKASteeringCmdActive"])
	assert.Zero(t, steer["LKASteeringCmd"])
	assert.NotEmpty(t, f.runner.lastMissing)
	assert.Contains(t, f.logBuf.String(), "Vehicle state unavailable")
}

func TestRunnerStep_SpeedPIDDrivesPedal(t *testing.T) {
	f := newFixture(t, values.Volt, true, `{
		"meta": {"name": "cruise", "control_mode": "speed_pid"},
		"timing": {"duration_s": 1},
		"defaults": {"enabled": true},
		"pid_config": {"target_velocity_mps": 20, "kp": 0.5, "integral_limit": 1}
	}`)
	f.driveAt(t, 36)

	require.NoError(t, f.runner.Step(context.Background(), 0))

	pedal, ok := f.pt.byID(0x200)
	require.True(t, ok)
	got, err := f.cmap.DecodeFrame(pedal.ID, pedal.Data[:pedal.Length])
	require.NoError(t, err)
	assert.Equal(t, 1.0, got["ENABLE"])
	assert.Equal(t, 252.0, got["GAS_COMMAND"])
	assert.Contains(t, f.logBuf.String(), "PID: v=")
}

func TestRunnerStep_TransmitError(t *testing.T) {
	f := newFixture(t, values.Malibu, false, engagedScenario)
	f.pt.err = errors.New("bus off")

	err := f.runner.Step(context.Background(), 0)
	assert.ErrorContains(t, err, "bus off")
	assert.Contains(t, f.logBuf.String(), "Transmit failed")
}

func TestRunnerRun_ReceivesAndTransmits(t *testing.T) {
	f := newFixture(t, values.Malibu, false, engagedScenario)
	for _, msg := range f.runner.est.RequiredMessages() {
		require.NoError(t, f.runner.cache.Seed(msg))
	}

	reader := f.runner.reader.(*chanReader)
	front, err := f.cmap.EncodeEinrideFrame(values.MsgWheelSpdFront, map[string]float64{"FLWheelSpd": 36, "FRWheelSpd": 36})
	require.NoError(t, err)
	reader.frames <- front

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.runner.Run(ctx))

	assert.NotZero(t, f.runner.frame)
	assert.NotEmpty(t, f.pt.sent())
	assert.Equal(t, uint64(1), f.runner.cache.Count(values.MsgWheelSpdFront))
}

func TestRunnerRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t, values.Malibu, false, `{"timing": {"duration_s": 60}}`)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)
	err := f.runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
