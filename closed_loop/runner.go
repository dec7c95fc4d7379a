package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gm-can-core/carcontroller"
	"gm-can-core/carstate"
	"gm-can-core/config"
	"gm-can-core/utils"
	"gm-can-core/values"
)

const controlPeriod = time.Duration(values.DtCtrl * float64(time.Second))

type Runner struct {
	cfg   *config.Config
	log   *utils.Logger
	cmap  *utils.CANMap
	cache *utils.SignalCache
	est   *carstate.Estimator
	ctrl  *carcontroller.Controller
	scen  Scenario
	pid   *PIDController

	reader  utils.CANReader
	writers map[values.CanBus]utils.CANWriter
	closers []utils.CANWriter

	frame       uint64
	sent        uint64
	lastMissing string
	unrouted    map[values.CanBus]bool
}

// NewRunner loads the dictionary and opens one SocketCAN writer per distinct
// interface plus a reader on the powertrain bus.
func NewRunner(ctx context.Context, cfg *config.Config, scen Scenario, log *utils.Logger) (*Runner, error) {
	cmap, err := utils.LoadCANMap(cfg.CAN.DictionaryPath)
	if err != nil {
		return nil, fmt.Errorf("load can map: %w", err)
	}

	byIface := map[string]utils.CANWriter{}
	writers := map[values.CanBus]utils.CANWriter{}
	var closers []utils.CANWriter
	for bus, iface := range cfg.Interfaces() {
		w, ok := byIface[iface]
		if !ok {
			sw, err := NewSocketCANWriter(ctx, iface)
			if err != nil {
				closeAll(closers)
				return nil, err
			}
			w = sw
			byIface[iface] = w
			closers = append(closers, w)
		}
		writers[bus] = w
	}

	reader, err := utils.NewSocketCANReader(ctx, cfg.CAN.Powertrain)
	if err != nil {
		closeAll(closers)
		return nil, err
	}

	r, err := newRunner(cfg, cmap, scen, log, reader, writers)
	if err != nil {
		_ = reader.Close()
		closeAll(closers)
		return nil, err
	}
	r.closers = closers
	return r, nil
}

// NewSocketCANWriter is a seam so tests can run the tick loop without sockets.
var NewSocketCANWriter = func(ctx context.Context, iface string) (utils.CANWriter, error) {
	return utils.NewSocketCANWriter(ctx, iface)
}

func newRunner(cfg *config.Config, cmap *utils.CANMap, scen Scenario, log *utils.Logger,
	reader utils.CANReader, writers map[values.CanBus]utils.CANWriter) (*Runner, error) {
	profile, err := cfg.Profile()
	if err != nil {
		return nil, err
	}

	cache := utils.NewSignalCache(cmap)
	for _, msg := range profile.OptionalMessages() {
		if err := cache.Seed(msg); err != nil {
			return nil, fmt.Errorf("seed %s: %w", msg, err)
		}
	}

	ctrl, err := carcontroller.NewController(profile, cfg.ControllerParams(), cmap, log.WithTag("ctrl"))
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:      cfg,
		log:      log,
		cmap:     cmap,
		cache:    cache,
		est:      carstate.NewEstimator(profile, nil, log.WithTag("state")),
		ctrl:     ctrl,
		scen:     scen,
		reader:   reader,
		writers:  writers,
		unrouted: map[values.CanBus]bool{},
	}

	if scen.Meta.ControlMode == ModeSpeedPID {
		r.pid = NewPIDController(*scen.PIDConfig)
		log.Info("Speed PID initialized: target=%.2f m/s, Kp=%.2f, Ki=%.2f, Kd=%.2f",
			scen.PIDConfig.TargetVelocityMPS, scen.PIDConfig.Kp, scen.PIDConfig.Ki, scen.PIDConfig.Kd)
	}

	log.Info("Vehicle %q regen=%v interceptor=%v pedal_cmd=%v",
		profile.Fingerprint, profile.SupportsRegen, profile.PedalInterceptor, profile.SendsPedalCommand())
	return r, nil
}

func closeAll(ws []utils.CANWriter) {
	for _, w := range ws {
		_ = w.Close()
	}
}

func (r *Runner) Close() {
	if r.reader != nil {
		_ = r.reader.Close()
	}
	closeAll(r.closers)
}

func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("Starting control loop: period=%s iface=%s scenario=%s duration=%.2fs mode=%s",
		controlPeriod, r.cfg.CAN.Powertrain, r.scen.Meta.Name, r.scen.Timing.DurationS, r.scen.Meta.ControlMode)

	go r.receiveLoop(ctx)

	start := time.Now()
	ticker := time.NewTicker(controlPeriod)
	defer ticker.Stop()

	endAfter := time.Duration(r.scen.Timing.DurationS * float64(time.Second))

	for {
		select {
		case <-ctx.Done():
			r.log.Warn("Context canceled; stopping")
			r.log.Info("Completed. ticks=%d frames_sent=%d", r.frame, r.sent)
			return ctx.Err()

		case now := <-ticker.C:
			elapsed := now.Sub(start)
			if elapsed > endAfter {
				r.log.Info("Completed. ticks=%d frames_sent=%d", r.frame, r.sent)
				return nil
			}
			if err := r.Step(ctx, elapsed.Seconds()); err != nil {
				return err
			}
		}
	}
}

// Step runs one control tick at scenario time t.
func (r *Runner) Step(ctx context.Context, t float64) error {
	cs, err := r.est.Update(carstate.Signals(r.cache.Snapshot()))
	if err != nil {
		var missing *carstate.MissingSignalError
		if !errors.As(err, &missing) {
			return err
		}
		if msg := missing.Error(); msg != r.lastMissing {
			r.log.Warn("Vehicle state unavailable (%s); sending disabled frames", msg)
			r.lastMissing = msg
		}
		cs = nil
	} else if r.lastMissing != "" {
		r.log.Info("Vehicle state recovered")
		r.lastMissing = ""
	}

	cmd := EvalActCmd(&r.scen, t)
	act := carcontroller.Actuators{Steer: cmd.Steer, Gas: cmd.Gas, Brake: cmd.Brake}

	if r.pid != nil {
		if cs != nil {
			u := r.pid.Update(cs.VEgo, values.DtCtrl)
			act.Gas, act.Brake = Split(u)
			if r.frame%100 == 0 {
				diag := r.pid.GetDiagnostics()
				r.log.Debug("PID: v=%.2f err=%.3f u=%.3f P=%.3f I=%.3f",
					cs.VEgo, diag.Error, u, diag.P, diag.I)
			}
		} else {
			r.pid.Reset()
		}
	}

	hud := carcontroller.HUD{
		VCruise:     cmd.VCruiseMPS,
		LeadVisible: cmd.LeadVisible,
		Alert:       cmd.VisualAlert(),
	}

	frames, err := r.ctrl.Update(cmd.Enabled, cs, r.frame, act, hud)
	if err != nil {
		r.log.Critical("Controller failed at frame=%d: %v", r.frame, err)
		return err
	}
	r.frame++

	for _, f := range frames {
		w, ok := r.writers[f.Bus]
		if !ok {
			if !r.unrouted[f.Bus] {
				r.log.Warn("No interface for bus %s; dropping its frames", f.Bus)
				r.unrouted[f.Bus] = true
			}
			continue
		}
		if err := w.WriteFrame(ctx, f.CANFrame()); err != nil {
			r.log.Critical("Transmit failed at t=%.3f: %v", t, err)
			return err
		}
		r.sent++
		r.log.Trace("TX t=%.3f %s", t, f)
	}
	return nil
}

// receiveLoop continuously reads powertrain frames into the signal cache
func (r *Runner) receiveLoop(ctx context.Context) {
	r.log.Debug("RX loop started")
	defer r.log.Debug("RX loop stopped")

	for {
		frame, err := r.reader.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Error("RX error: %v", err)
			return
		}

		if _, err := r.cache.Update(frame); err != nil {
			r.log.Error("RX decode id=0x%X: %v", frame.ID, err)
			continue
		}
		r.log.Trace("RX id=0x%X len=%d data=% X", frame.ID, frame.Length, frame.Data[:frame.Length])
	}
}
