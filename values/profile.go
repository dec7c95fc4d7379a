package values

import (
	"fmt"
	"sort"
)

// Fingerprint identifies a supported GM model.
type Fingerprint string

const (
	HoldenAstra Fingerprint = "HOLDEN ASTRA RS-V BK 2017"
	Volt        Fingerprint = "CHEVROLET VOLT PREMIER 2017"
	CadillacATS Fingerprint = "CADILLAC ATS Premium Performance 2018"
	Malibu      Fingerprint = "CHEVROLET MALIBU PREMIER 2017"
	Acadia      Fingerprint = "GMC ACADIA DENALI 2018"
	BuickRegal  Fingerprint = "BUICK REGAL ESSENCE 2018"
	Escalade    Fingerprint = "CADILLAC ESCALADE 2017"
	Bolt        Fingerprint = "CHEVROLET BOLT EV PREMIER 2017"
)

type variantTraits struct {
	regen      bool
	hvBattery  bool
	accelLight float64 // 0 disables the synthetic brake light
}

var variants = map[Fingerprint]variantTraits{
	HoldenAstra: {},
	Volt:        {regen: true, hvBattery: true},
	CadillacATS: {},
	Malibu:      {},
	Acadia:      {},
	BuickRegal:  {},
	Escalade:    {},
	Bolt:        {regen: true, hvBattery: true, accelLight: -1.3},
}

// VehicleProfile is the capability set of the active vehicle. It is resolved
// once per session and consulted instead of branching on the fingerprint.
type VehicleProfile struct {
	Fingerprint Fingerprint

	// SupportsRegen: the regen paddle is reported and counts as braking.
	SupportsRegen bool

	// PedalInterceptor: auxiliary hardware drives the accelerator signal.
	PedalInterceptor bool

	// InvertedCruiseAvailable: CruiseMainOn reads backwards. Always set
	// together with PedalInterceptor on this harness.
	InvertedCruiseAvailable bool

	// BrakeLightAccelThreshold (m/s^2, negative) lights the brake lights on
	// deceleration below it. Zero disables it.
	BrakeLightAccelThreshold float64

	// HasHVBattery: BECMBatteryVoltageCurrent may be present.
	HasHVBattery bool
}

// ResolveProfile builds the profile for a fingerprint.
func ResolveProfile(fp Fingerprint, enableGasInterceptor bool) (VehicleProfile, error) {
	t, ok := variants[fp]
	if !ok {
		return VehicleProfile{}, fmt.Errorf("unknown fingerprint %q (known: %v)", fp, KnownFingerprints())
	}
	return VehicleProfile{
		Fingerprint:              fp,
		SupportsRegen:            t.regen,
		PedalInterceptor:         enableGasInterceptor,
		InvertedCruiseAvailable:  enableGasInterceptor,
		BrakeLightAccelThreshold: t.accelLight,
		HasHVBattery:             t.hvBattery,
	}, nil
}

// SendsPedalCommand reports whether this core generates the interceptor
// pedal command. Other combinations leave longitudinal control to another path.
func (p VehicleProfile) SendsPedalCommand() bool {
	return p.PedalInterceptor && p.SupportsRegen
}

// OptionalMessages lists the variant-specific messages whose defaults the
// caller must seed when the vehicle does not send them.
func (p VehicleProfile) OptionalMessages() []string {
	var out []string
	if p.SupportsRegen {
		out = append(out, MsgRegenPaddle)
	}
	if p.HasHVBattery {
		out = append(out, MsgBatteryVoltageCur)
	}
	return out
}

func KnownFingerprints() []string {
	out := make([]string, 0, len(variants))
	for fp := range variants {
		out = append(out, string(fp))
	}
	sort.Strings(out)
	return out
}
