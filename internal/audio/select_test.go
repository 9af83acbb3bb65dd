package audio_test

import (
	"errors"
	"testing"

	"github.com/glizzus/sound-bridge/internal/audio"
)

func TestSelect(t *testing.T) {
	devices := []audio.Device{
		{ID: 0, Name: "Built-in Microphone"},
		{ID: 1, Name: "USB Interface"},
		{ID: 2, Name: "USB Interface"},
		{ID: 7, Name: "42"},
	}

	tc := []struct {
		name   string
		ref    string
		wantID int
		err    bool
	}{
		{name: "by id", ref: "1", wantID: 1},
		{name: "by name", ref: "Built-in Microphone", wantID: 0},
		{name: "numeric name", ref: "42", wantID: 7},
		{name: "ambiguous name", ref: "USB Interface", err: true},
		{name: "name is case sensitive", ref: "built-in microphone", err: true},
		{name: "unknown id", ref: "9", err: true},
	}

	for _, test := range tc {
		t.Run(test.name, func(t *testing.T) {
			d, err := audio.Select(devices, test.ref)
			if test.err {
				if err == nil {
					t.Errorf("expected error but got device %v", d)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.ID != test.wantID {
				t.Errorf("expected device %d, got %d", test.wantID, d.ID)
			}
		})
	}

	t.Run("not found wraps ErrDeviceNotFound", func(t *testing.T) {
		_, err := audio.Select(devices, "Headset")
		if !errors.Is(err, audio.ErrDeviceNotFound) {
			t.Errorf("expected ErrDeviceNotFound, got %v", err)
		}
	})
}
