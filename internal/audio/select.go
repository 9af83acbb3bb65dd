package audio

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/glizzus/sound-bridge/internal/util"
)

var ErrDeviceNotFound = errors.New("audio device not found")

// Select picks a device by numeric ID or by exact name.
// A name shared by several devices is ambiguous and must be
// given as an ID instead.
func Select(devices []Device, ref string) (Device, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		if d, ok := util.FindFirst(devices, func(d Device) bool { return d.ID == id }); ok {
			return d, nil
		}
	}

	named := util.Filter(devices, func(d Device) bool { return d.Name == ref })
	d, err := util.One(named)
	switch {
	case errors.Is(err, util.ErrNoElement):
		return Device{}, fmt.Errorf("%w: %q", ErrDeviceNotFound, ref)
	case errors.Is(err, util.ErrMultipleElements):
		return Device{}, fmt.Errorf("device name %q is ambiguous, use its ID", ref)
	}
	return d, nil
}
