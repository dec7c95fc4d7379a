package carcontroller

import (
	"fmt"

	"gm-can-core/values"
)

// UnsupportedVariantError is returned when a hardware-specific path is
// invoked for a vehicle without that hardware. It is a programming error.
type UnsupportedVariantError struct {
	Fingerprint values.Fingerprint
	Feature     string
}

func (e *UnsupportedVariantError) Error() string {
	return fmt.Sprintf("%s not supported on %q", e.Feature, e.Fingerprint)
}
