package carcontroller

import "gm-can-core/values"

// IconStatus is the (active, critical) pair shown by the LKA dash icon.
type IconStatus struct {
	Active   bool
	Critical bool
}

// Schedule holds the message periods in control ticks.
type Schedule struct {
	SteerStep           uint64
	PedalStep           uint64
	DashboardStep       uint64
	AdasKeepaliveStep   uint64
	CameraKeepaliveStep uint64
}

func NewSchedule(p values.CarControllerParams) Schedule {
	return Schedule{
		SteerStep:           p.SteerStep,
		PedalStep:           p.PedalStep,
		DashboardStep:       p.DashboardStep,
		AdasKeepaliveStep:   p.AdasKeepaliveStep,
		CameraKeepaliveStep: p.CameraKeepaliveStep,
	}
}

// Due reports whether a message with the given period goes out on tick.
// A zero period never fires.
func Due(tick, period uint64) bool {
	return period != 0 && tick%period == 0
}

// Counter is the 2-bit rolling counter of a message with the given period.
func Counter(tick, period uint64) uint8 {
	if period == 0 {
		return 0
	}
	return uint8((tick / period) % 4)
}

// Plan is what goes out on one tick.
type Plan struct {
	Steer        bool
	SteerCounter uint8
	Pedal        bool
	PedalCounter uint8
	Dashboard    bool
	Keepalive    bool
	Icon         bool
}

// Plan decides which messages are due. The pedal command is only considered
// when withPedal is set. The icon goes out on its period or as soon as its
// status differs from the one last sent.
func (s Schedule) Plan(tick uint64, withPedal bool, icon, lastIcon IconStatus) Plan {
	p := Plan{
		Steer:     Due(tick, s.SteerStep),
		Dashboard: Due(tick, s.DashboardStep),
		Keepalive: Due(tick, s.AdasKeepaliveStep),
		Icon:      Due(tick, s.CameraKeepaliveStep) || icon != lastIcon,
	}
	if p.Steer {
		p.SteerCounter = Counter(tick, s.SteerStep)
	}
	if withPedal && Due(tick, s.PedalStep) {
		p.Pedal = true
		p.PedalCounter = Counter(tick, s.PedalStep)
	}
	return p
}
