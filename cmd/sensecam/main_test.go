package main

import (
	"context"
	"testing"
	"time"

	"github.com/cjeanneret/SenseCam/internal/config"
	"github.com/cjeanneret/SenseCam/internal/hw/camera"
)

// ---------- validateCLIOverrides ----------

func TestValidateCLIOverrides_Empty(t *testing.T) {
	if err := validateCLIOverrides(cameraOverrides{}); err != nil {
		t.Errorf("empty overrides should be valid (use config values), got: %v", err)
	}
}

func TestValidateCLIOverrides_Valid(t *testing.T) {
	cases := []struct {
		name string
		o    cameraOverrides
	}{
		{"frame_size_upper", cameraOverrides{FrameSize: "UXGA"}},
		{"frame_size_lower", cameraOverrides{FrameSize: "qvga"}},
		{"pixel_format", cameraOverrides{PixelFormat: "jpeg"}},
		{"both", cameraOverrides{FrameSize: "96X96", PixelFormat: "grayscale"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateCLIOverrides(tc.o); err != nil {
				t.Errorf("expected valid, got: %v", err)
			}
		})
	}
}

func TestValidateCLIOverrides_Invalid(t *testing.T) {
	cases := []struct {
		name string
		o    cameraOverrides
	}{
		{"unknown_frame_size", cameraOverrides{FrameSize: "4K"}},
		{"unknown_pixel_format", cameraOverrides{PixelFormat: "webp"}},
		{"one_bad_one_good", cameraOverrides{FrameSize: "VGA", PixelFormat: "bmp"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateCLIOverrides(tc.o); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// ---------- applyOverrides ----------

func newTestConfig() *config.Config {
	return &config.Config{
		Camera: config.CameraConfig{
			Driver:      "testpattern",
			PixelFormat: "jpeg",
			FrameSize:   "UXGA",
		},
		Server:   config.ServerConfig{Port: 8080},
		Defaults: config.DefaultsConfig{MockGPIO: true},
	}
}

func TestApplyOverrides_NonEmpty(t *testing.T) {
	cfg := newTestConfig()
	applyOverrides(cfg, cameraOverrides{FrameSize: "VGA", PixelFormat: "grayscale"})
	if cfg.Camera.FrameSize != "VGA" {
		t.Errorf("FrameSize = %q, want VGA", cfg.Camera.FrameSize)
	}
	if cfg.Camera.PixelFormat != "grayscale" {
		t.Errorf("PixelFormat = %q, want grayscale", cfg.Camera.PixelFormat)
	}
}

func TestApplyOverrides_EmptyLeavesUnchanged(t *testing.T) {
	cfg := newTestConfig()
	applyOverrides(cfg, cameraOverrides{})
	if cfg.Camera.FrameSize != "UXGA" || cfg.Camera.PixelFormat != "jpeg" {
		t.Errorf("camera changed: %+v", cfg.Camera)
	}
}

func TestApplyOverrides_ReachCameraSettings(t *testing.T) {
	cfg := newTestConfig()
	cfg.Camera.Pins = camera.DefaultPins()
	applyOverrides(cfg, cameraOverrides{FrameSize: "qqvga"})

	cam, err := cfg.CameraSettings()
	if err != nil {
		t.Fatalf("CameraSettings: %v", err)
	}
	if cam.FrameSize.Width != 160 || cam.FrameSize.Height != 120 {
		t.Errorf("frame size = %v, want 160x120", cam.FrameSize)
	}
}

// ---------- webPortFlag ----------

func TestWebPortFlag_Unset(t *testing.T) {
	w := &webPortFlag{}
	if w.enabled() {
		t.Error("web should be disabled when the flag is absent")
	}
}

func TestWebPortFlag_EmptyUsesConfigPort(t *testing.T) {
	w := &webPortFlag{}
	if err := w.Set(""); err != nil {
		t.Fatalf("Set(\"\") error: %v", err)
	}
	if !w.enabled() {
		t.Error("web should be enabled by -web=")
	}
	if got := w.port(9000); got != 9000 {
		t.Errorf("port(9000) = %d, want configured 9000", got)
	}
}

func TestWebPortFlag_ValidPorts(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{"8080", 8080},
		{"1", 1},
		{"65535", 65535},
		{"3000", 3000},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			w := &webPortFlag{}
			if err := w.Set(tc.input); err != nil {
				t.Fatalf("Set(%q) error: %v", tc.input, err)
			}
			if got := w.port(8080); got != tc.want {
				t.Errorf("port() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestWebPortFlag_InvalidPorts(t *testing.T) {
	cases := []string{"0", "65536", "-1", "abc", "8080.5"}
	for _, input := range cases {
		t.Run(input, func(t *testing.T) {
			w := &webPortFlag{}
			if err := w.Set(input); err == nil {
				t.Errorf("Set(%q) should fail, got nil", input)
			}
		})
	}
}

func TestWebPortFlag_String(t *testing.T) {
	w := &webPortFlag{}
	if s := w.String(); s != "0" {
		t.Errorf("String() = %q, want \"0\"", s)
	}
	_ = w.Set("9090")
	if s := w.String(); s != "9090" {
		t.Errorf("String() = %q, want \"9090\"", s)
	}
}

// ---------- connectWiFi ----------

func TestConnectWiFi_None(t *testing.T) {
	cfg := newTestConfig()
	cfg.WiFi = config.WiFiConfig{Connector: "none", TimeoutMs: 100}
	link, err := connectWiFi(context.Background(), cfg)
	if err != nil {
		t.Fatalf("connectWiFi: %v", err)
	}
	if link.String() != "unmanaged" {
		t.Errorf("link = %v", link)
	}
}

func TestConnectWiFi_HostTimesOut(t *testing.T) {
	cfg := newTestConfig()
	cfg.WiFi = config.WiFiConfig{
		SSID:      "nowhere",
		Connector: "host",
		Interface: "sensecam-test0", // no such interface
		TimeoutMs: 50,
	}
	start := time.Now()
	if _, err := connectWiFi(context.Background(), cfg); err == nil {
		t.Fatal("expected error for missing interface")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("connectWiFi took %v, timeout not honored", elapsed)
	}
}

func TestConnectWiFi_UnknownConnector(t *testing.T) {
	cfg := newTestConfig()
	cfg.WiFi = config.WiFiConfig{Connector: "smoke-signals", TimeoutMs: 50}
	if _, err := connectWiFi(context.Background(), cfg); err == nil {
		t.Error("expected error for unknown connector")
	}
}
