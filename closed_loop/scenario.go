package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gm-can-core/values"
)

// Control modes of a scenario.
const (
	ModeOpenLoop = "open_loop"
	ModeSpeedPID = "speed_pid"
)

// Scenario defines a complete drive script for the harness
type Scenario struct {
	Meta      ScenarioMeta      `json:"meta"`
	Timing    ScenarioTiming    `json:"timing"`
	Defaults  ActuatorCmd       `json:"defaults"`
	Segments  []ScenarioSegment `json:"segments"`
	PIDConfig *PIDConfig        `json:"pid_config,omitempty"` // required in speed_pid mode
}

// ScenarioMeta contains scenario metadata
type ScenarioMeta struct {
	Name        string `json:"name"`
	Version     int    `json:"version"`
	Description string `json:"description"`
	ControlMode string `json:"control_mode,omitempty"` // "open_loop" or "speed_pid"
}

// ScenarioTiming defines timing parameters
type ScenarioTiming struct {
	DurationS float64 `json:"duration_s"`
}

// ScenarioSegment overrides the defaults between T0 and T1 (T1 < 0 runs to
// the end of the scenario).
type ScenarioSegment struct {
	T0      float64 `json:"t0"`
	T1      float64 `json:"t1"`
	Enabled *bool   `json:"enabled,omitempty"`
	Steer   float64 `json:"steer,omitempty"`
	Gas     float64 `json:"gas,omitempty"`
	Brake   float64 `json:"brake,omitempty"`
	Alert   string  `json:"alert,omitempty"`
	Comment string  `json:"comment,omitempty"`
}

// ActuatorCmd is what the scenario asks for at one instant
type ActuatorCmd struct {
	Enabled     bool    `json:"enabled"`
	Steer       float64 `json:"steer"`
	Gas         float64 `json:"gas"`
	Brake       float64 `json:"brake"`
	VCruiseMPS  float64 `json:"v_cruise_mps"`
	LeadVisible bool    `json:"lead_visible"`
	Alert       string  `json:"alert"`
}

// VisualAlert maps the alert name used in scenario files.
func (c ActuatorCmd) VisualAlert() values.VisualAlert {
	return parseAlert(c.Alert)
}

func parseAlert(s string) values.VisualAlert {
	switch s {
	case "fcw":
		return values.AlertFCW
	case "steerRequired":
		return values.AlertSteerRequired
	case "ldw":
		return values.AlertLDW
	default:
		return values.AlertNone
	}
}

// LoadScenario loads a scenario from JSON file
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario
func ParseScenario(data []byte) (Scenario, error) {
	var scen Scenario
	if err := json.Unmarshal(data, &scen); err != nil {
		return Scenario{}, fmt.Errorf("unmarshal: %w", err)
	}

	if scen.Timing.DurationS <= 0 {
		return Scenario{}, fmt.Errorf("invalid duration_s: %f", scen.Timing.DurationS)
	}

	if scen.Meta.ControlMode == "" {
		scen.Meta.ControlMode = ModeOpenLoop
	}

	switch scen.Meta.ControlMode {
	case ModeOpenLoop:
	case ModeSpeedPID:
		if scen.PIDConfig == nil {
			return Scenario{}, fmt.Errorf("speed_pid mode requires pid_config")
		}
		if scen.PIDConfig.TargetVelocityMPS <= 0 {
			return Scenario{}, fmt.Errorf("invalid target_velocity_mps: %f", scen.PIDConfig.TargetVelocityMPS)
		}
	default:
		return Scenario{}, fmt.Errorf("unknown control_mode %q", scen.Meta.ControlMode)
	}

	for i, seg := range scen.Segments {
		if seg.T1 >= 0 && seg.T1 < seg.T0 {
			return Scenario{}, fmt.Errorf("segment %d ends before it starts (t0=%.2f t1=%.2f)", i, seg.T0, seg.T1)
		}
	}

	return scen, nil
}

// EvalActCmd evaluates the scenario at time t; the first matching segment wins
func EvalActCmd(scen *Scenario, t float64) ActuatorCmd {
	cmd := scen.Defaults

	for _, seg := range scen.Segments {
		t1 := seg.T1
		if t1 < 0 {
			t1 = scen.Timing.DurationS
		}

		if t >= seg.T0 && t < t1 {
			if seg.Enabled != nil {
				cmd.Enabled = *seg.Enabled
			}
			cmd.Steer = seg.Steer
			if scen.Meta.ControlMode != ModeSpeedPID {
				cmd.Gas = seg.Gas
				cmd.Brake = seg.Brake
			}
			if seg.Alert != "" {
				cmd.Alert = seg.Alert
			}
			break
		}
	}

	return cmd
}
