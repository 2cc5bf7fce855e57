// SPDX-License-Identifier: MIT
package capture

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

func mockDevices(t *testing.T, devices []*portaudio.DeviceInfo, err error) {
	t.Helper()
	origDevices, origDefault := paDevicesFunc, paDefaultInputDeviceFunc
	t.Cleanup(func() {
		paDevicesFunc, paDefaultInputDeviceFunc = origDevices, origDefault
	})
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) { return devices, err }
	paDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		if len(devices) == 0 {
			return nil, fmt.Errorf("no default input")
		}
		return devices[0], nil
	}
}

var testDevices = []*portaudio.DeviceInfo{
	{Name: "Built-in Microphone", MaxInputChannels: 2, DefaultSampleRate: 48000,
		DefaultLowInputLatency: 3 * time.Millisecond, DefaultHighInputLatency: 12 * time.Millisecond},
	{Name: "Built-in Output", MaxOutputChannels: 2, DefaultSampleRate: 48000},
	{Name: "Interface", MaxInputChannels: 8, MaxOutputChannels: 8, DefaultSampleRate: 96000},
}

func TestHostDevices(t *testing.T) {
	mockDevices(t, testDevices, nil)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != len(testDevices) {
		t.Fatalf("got %d devices, want %d", len(devices), len(testDevices))
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Name != testDevices[i].Name {
			t.Errorf("Device %d name = %q", i, d.Name)
		}
	}
	if devices[0].DefaultLowInputLatency != 3 {
		t.Errorf("low latency = %v ms, want 3", devices[0].DefaultLowInputLatency)
	}

	wantTypes := []string{"Input", "Output", "Input/Output"}
	for i, want := range wantTypes {
		if got := devices[i].Type(); got != want {
			t.Errorf("device %d Type() = %q, want %q", i, got, want)
		}
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	mockDevices(t, nil, fmt.Errorf("mock error"))

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestInputDevice(t *testing.T) {
	mockDevices(t, testDevices, nil)

	tests := []struct {
		id      int
		want    string
		wantErr bool
	}{
		{-1, "Built-in Microphone", false},
		{0, "Built-in Microphone", false},
		{2, "Interface", false},
		{1, "", true}, // output only
		{3, "", true},
		{-2, "", true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.id), func(t *testing.T) {
			d, err := InputDevice(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("InputDevice(%d) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err == nil && d.Name != tt.want {
				t.Errorf("InputDevice(%d) = %q, want %q", tt.id, d.Name, tt.want)
			}
		})
	}
}

func TestListDevices(t *testing.T) {
	mockDevices(t, testDevices, nil)
	devices, err := HostDevices()
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	ListDevices(&buf, devices)
	out := buf.String()
	for _, want := range []string{
		"Available Audio Devices",
		"[0] Built-in Microphone (Input)",
		"[2] Interface (Input/Output)",
		"Default sample rate: 96000 Hz",
		"Latency: Low=3.00ms, High=12.00ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
