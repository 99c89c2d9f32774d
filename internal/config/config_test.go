package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cjeanneret/SenseCam/internal/hw/camera"
	"github.com/cjeanneret/SenseCam/internal/hw/gpio"
)

// ---------- ValidateConfigPath ----------

func TestValidateConfigPath_Valid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "configs", "default.yaml")
	if err := ValidateConfigPath(path); err != nil {
		t.Errorf("expected valid path, got error: %v", err)
	}
	if err := ValidateConfigPath("configs/default.yaml"); err != nil {
		t.Errorf("expected valid relative path, got error: %v", err)
	}
}

func TestValidateConfigPath_Rejected(t *testing.T) {
	cases := []string{
		"",
		"../../etc/passwd",
		"configs/../../../etc/shadow",
		"configs/default.json",
		"configs/default.yml",
		"configs/default",
		"other/default.yaml",
		"default.yaml",
		"/tmp/default.yaml",
	}
	for _, path := range cases {
		if err := ValidateConfigPath(path); err == nil {
			t.Errorf("expected error for %q, got nil", path)
		}
	}
}

// ---------- Load ----------

// writeConfig creates a temporary configs/ dir with the given YAML content and returns the path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.Mkdir(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfgDir, "test.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
wifi:
  ssid: "workshop"
  psk: "hunter22"
  connector: "nmcli"
  interface: "wlan1"
  timeout_ms: 5000
camera:
  driver: "testpattern"
  pixel_format: "grayscale"
  frame_size: "qvga"
  jpeg_quality: 60
  fail_every: 7
  pins:
    pwdn: 4
    led: 21
server:
  port: 9000
stream:
  interval_ms: 250
monitor:
  enabled: true
  interval_ms: 500
  retry_ms: 50
defaults:
  debug_level: 2
  mock_gpio: true
`

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeConfig(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WiFi.SSID != "workshop" || cfg.WiFi.Connector != "nmcli" || cfg.WiFi.Interface != "wlan1" {
		t.Errorf("wifi = %+v", cfg.WiFi)
	}
	if cfg.WiFiTimeout() != 5*time.Second {
		t.Errorf("WiFiTimeout() = %v, want 5s", cfg.WiFiTimeout())
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("server.port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.StreamInterval() != 250*time.Millisecond {
		t.Errorf("StreamInterval() = %v, want 250ms", cfg.StreamInterval())
	}
	if !cfg.Monitor.Enabled || cfg.MonitorInterval() != 500*time.Millisecond || cfg.MonitorRetry() != 50*time.Millisecond {
		t.Errorf("monitor = %+v", cfg.Monitor)
	}
	if cfg.Defaults.DebugLevel != 2 || !cfg.Defaults.MockGPIO {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}

	cam, err := cfg.CameraSettings()
	if err != nil {
		t.Fatalf("CameraSettings: %v", err)
	}
	if cam.PixelFormat != camera.PixelFormatGrayscale {
		t.Errorf("pixel format = %v, want grayscale", cam.PixelFormat)
	}
	if cam.FrameSize.Width != 320 || cam.FrameSize.Height != 240 {
		t.Errorf("frame size = %dx%d, want 320x240", cam.FrameSize.Width, cam.FrameSize.Height)
	}
	if cam.JPEGQuality != 60 || cam.FailEvery != 7 {
		t.Errorf("camera = %+v", cam)
	}
}

func TestLoad_PartialPinsKeepDefaults(t *testing.T) {
	path := writeConfig(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := camera.DefaultPins()
	got := cfg.Camera.Pins
	if got.PWDN != 4 || got.LED != 21 {
		t.Errorf("overridden pins = pwdn %d, led %d", got.PWDN, got.LED)
	}
	if got.Reset != gpio.NotConnected {
		t.Errorf("reset = %d, want not connected", got.Reset)
	}
	if got.XCLK != want.XCLK || got.D7 != want.D7 || got.SIOC != want.SIOC {
		t.Errorf("unset pins lost their defaults: %+v", got)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	path := writeConfig(t, `
camera:
  driver: "testpattern"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Camera.PixelFormat != "jpeg" {
		t.Errorf("pixel_format default = %q, want jpeg", cfg.Camera.PixelFormat)
	}
	if cfg.Camera.FrameSize != "UXGA" {
		t.Errorf("frame_size default = %q, want UXGA", cfg.Camera.FrameSize)
	}
	if cfg.Camera.JPEGQuality != 80 {
		t.Errorf("jpeg_quality default = %d, want 80", cfg.Camera.JPEGQuality)
	}
	if cfg.Camera.Device != "/dev/video0" {
		t.Errorf("device default = %q", cfg.Camera.Device)
	}
	if cfg.CaptureTimeout() != 2*time.Second {
		t.Errorf("CaptureTimeout() default = %v, want 2s", cfg.CaptureTimeout())
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port default = %d, want 8080", cfg.Server.Port)
	}
	if cfg.StreamInterval() != 100*time.Millisecond {
		t.Errorf("StreamInterval() default = %v, want 100ms", cfg.StreamInterval())
	}
	if cfg.MonitorInterval() != time.Second || cfg.MonitorRetry() != 100*time.Millisecond {
		t.Errorf("monitor defaults = %v / %v", cfg.MonitorInterval(), cfg.MonitorRetry())
	}
	if cfg.WiFi.Connector != "none" {
		t.Errorf("wifi.connector default = %q, want none", cfg.WiFi.Connector)
	}
	if cfg.WiFiTimeout() != 15*time.Second {
		t.Errorf("WiFiTimeout() default = %v, want 15s", cfg.WiFiTimeout())
	}
	if cfg.Camera.Pins != camera.DefaultPins() {
		t.Errorf("pins default = %+v", cfg.Camera.Pins)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing_driver", `
camera:
  frame_size: "VGA"
`},
		{"unknown_frame_size", `
camera:
  driver: "testpattern"
  frame_size: "8K"
`},
		{"unknown_pixel_format", `
camera:
  driver: "testpattern"
  pixel_format: "png"
`},
		{"quality_over_100", `
camera:
  driver: "testpattern"
  jpeg_quality: 101
`},
		{"negative_fail_every", `
camera:
  driver: "testpattern"
  fail_every: -1
`},
		{"duplicate_pins", `
camera:
  driver: "testpattern"
  pins:
    d0: 10
`},
		{"port_out_of_range", `
camera:
  driver: "testpattern"
server:
  port: 70000
`},
		{"unknown_connector", `
camera:
  driver: "testpattern"
wifi:
  connector: "wpa_supplicant"
`},
		{"nmcli_without_ssid", `
camera:
  driver: "testpattern"
wifi:
  connector: "nmcli"
`},
		{"debug_level_too_high", `
camera:
  driver: "testpattern"
defaults:
  debug_level: 5
`},
		{"invalid_yaml", "{{{{invalid yaml!!!!"},
		{"empty_file", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvWiFiSSID, "")
			path := writeConfig(t, tc.yaml)
			if _, err := Load(path); err == nil {
				t.Errorf("expected error, got nil")
			}
		})
	}
}

func TestLoad_EnvOverridesCredentials(t *testing.T) {
	t.Setenv(EnvWiFiSSID, "from-env")
	t.Setenv(EnvWiFiPSK, "env-secret")
	path := writeConfig(t, `
camera:
  driver: "testpattern"
wifi:
  connector: "nmcli"
  ssid: "from-file"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	creds := cfg.WiFiCredentials()
	if creds.SSID != "from-env" || creds.PSK != "env-secret" {
		t.Errorf("credentials = %q / %q, want env values", creds.SSID, creds.PSK)
	}
}

func TestLoad_EnvSatisfiesNMCLISSID(t *testing.T) {
	t.Setenv(EnvWiFiSSID, "from-env")
	path := writeConfig(t, `
camera:
  driver: "testpattern"
wifi:
  connector: "nmcli"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WiFi.Interface != "wlan0" {
		t.Errorf("interface default = %q, want wlan0", cfg.WiFi.Interface)
	}
}

func TestLoad_FileTooLarge(t *testing.T) {
	path := writeConfig(t, strings.Repeat("#", MaxConfigFileBytes+1))
	if _, err := Load(path); err == nil {
		t.Error("expected error for oversized config file, got nil")
	}
}

func TestLoad_UnknownFields(t *testing.T) {
	path := writeConfig(t, `
camera:
  driver: "testpattern"
unknown_section:
  foo: bar
`)
	if _, err := Load(path); err != nil {
		t.Errorf("unknown fields should be ignored, got error: %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "nonexistent.yaml")
	if _, err := Load(path); err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
}

// ---------- Helper methods ----------

func TestConfig_Durations(t *testing.T) {
	cfg := &Config{
		WiFi:    WiFiConfig{TimeoutMs: 1500},
		Camera:  CameraConfig{CaptureTimeoutMs: 300},
		Stream:  StreamConfig{IntervalMs: 40},
		Monitor: MonitorConfig{IntervalMs: 2000, RetryMs: 25},
	}
	cases := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"WiFiTimeout", cfg.WiFiTimeout(), 1500 * time.Millisecond},
		{"CaptureTimeout", cfg.CaptureTimeout(), 300 * time.Millisecond},
		{"StreamInterval", cfg.StreamInterval(), 40 * time.Millisecond},
		{"MonitorInterval", cfg.MonitorInterval(), 2 * time.Second},
		{"MonitorRetry", cfg.MonitorRetry(), 25 * time.Millisecond},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s() = %v, want %v", tc.name, tc.got, tc.want)
		}
	}
}
