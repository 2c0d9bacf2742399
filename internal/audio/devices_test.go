package audio

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

// fakeHost replaces the PortAudio device queries for one test. def is the
// index of the default input device, or -1 for none.
func fakeHost(t *testing.T, infos []*portaudio.DeviceInfo, def int) {
	t.Helper()
	origDevices, origDefault := paLibDevicesFunc, paLibDefaultInputDeviceFunc
	t.Cleanup(func() {
		paLibDevicesFunc, paLibDefaultInputDeviceFunc = origDevices, origDefault
	})

	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) { return infos, nil }
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		if def < 0 {
			return nil, errors.New("no default input device")
		}
		return infos[def], nil
	}
}

func studioHost() []*portaudio.DeviceInfo {
	return []*portaudio.DeviceInfo{
		{Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 44100},
		{Name: "Built-in Mic", MaxInputChannels: 1, DefaultSampleRate: 48000, DefaultLowInputLatency: 5 * time.Millisecond},
		{Name: "Interface", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 96000},
	}
}

func TestHostDevicesMapsIDs(t *testing.T) {
	fakeHost(t, studioHost(), 1)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}

	want := []Device{
		{ID: 0, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 44100},
		{ID: 1, Name: "Built-in Mic", MaxInputChannels: 1, DefaultSampleRate: 48000},
		{ID: 2, Name: "Interface", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 96000},
	}
	if len(devices) != len(want) {
		t.Fatalf("got %d devices, want %d", len(devices), len(want))
	}
	for i := range want {
		if devices[i] != want[i] {
			t.Errorf("device %d = %+v, want %+v", i, devices[i], want[i])
		}
	}
}

func TestHostDevicesEmptyHost(t *testing.T) {
	fakeHost(t, nil, -1)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if devices == nil || len(devices) != 0 {
		t.Errorf("devices = %#v, want an empty slice", devices)
	}
}

func TestHostDevicesError(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, errors.New("PortAudio not initialized")
	}

	if _, err := HostDevices(); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("err = %v, want the PortAudio error", err)
	}
}

func TestInputOnly(t *testing.T) {
	fakeHost(t, studioHost(), 1)
	devices, err := HostDevices()
	if err != nil {
		t.Fatal(err)
	}

	inputs := InputOnly(devices)
	if len(inputs) != 2 {
		t.Fatalf("got %d input devices, want 2", len(inputs))
	}
	// IDs must survive filtering so a picked device maps back to PortAudio.
	if inputs[0].ID != 1 || inputs[1].ID != 2 {
		t.Errorf("input IDs = %d, %d, want 1, 2", inputs[0].ID, inputs[1].ID)
	}
	if got := InputOnly(nil); got == nil || len(got) != 0 {
		t.Errorf("InputOnly(nil) = %#v", got)
	}
}

func TestInputDevice(t *testing.T) {
	tests := []struct {
		name     string
		def      int
		id       int
		wantName string
		wantErr  string
	}{
		{"Default resolves through PortAudio", 1, -1, "Built-in Mic", ""},
		{"Default missing", -1, -1, "", "no default input device"},
		{"Explicit input device", 1, 2, "Interface", ""},
		{"Output-only device", 1, 0, "", "does not support input"},
		{"Below default", 1, -2, "", "invalid device ID"},
		{"Past the end", 1, 3, "", "invalid device ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakeHost(t, studioHost(), tt.def)

			dev, err := InputDevice(tt.id)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("InputDevice(%d) error: %v", tt.id, err)
			}
			if dev.Name != tt.wantName {
				t.Errorf("device = %q, want %q", dev.Name, tt.wantName)
			}
		})
	}
}

func TestInitializeTerminate(t *testing.T) {
	origInit, origTerm := paLibInitialize, paLibTerminate
	defer func() { paLibInitialize, paLibTerminate = origInit, origTerm }()

	tests := []struct {
		name    string
		fail    error
		call    func() error
		set     func(error)
		wantErr string
	}{
		{"Initialize ok", nil, Initialize, func(err error) { paLibInitialize = func() error { return err } }, ""},
		{"Initialize fails", errors.New("no host API"), Initialize, func(err error) { paLibInitialize = func() error { return err } }, "failed to initialize PortAudio: no host API"},
		{"Terminate ok", nil, Terminate, func(err error) { paLibTerminate = func() error { return err } }, ""},
		{"Terminate fails", errors.New("busy"), Terminate, func(err error) { paLibTerminate = func() error { return err } }, "failed to terminate PortAudio: busy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.set(tt.fail)
			err := tt.call()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
			if !errors.Is(err, tt.fail) {
				t.Error("cause not wrapped")
			}
		})
	}
}

func TestFprintDevices(t *testing.T) {
	fakeHost(t, studioHost(), 1)

	var out bytes.Buffer
	if err := FprintDevices(&out); err != nil {
		t.Fatalf("FprintDevices error: %v", err)
	}

	for _, want := range []string{
		"[0] Speakers (Output)",
		"[1] Built-in Mic (Input)",
		"[2] Interface (Input/Output)",
		"Default sample rate: 48000 Hz",
		"Low=5.00ms",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}
