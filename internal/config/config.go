package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/SenseCam/internal/hw/camera"
	"github.com/cjeanneret/SenseCam/internal/hw/wifi"
)

// Environment variables that override the Wi-Fi credentials in the file.
const (
	EnvWiFiSSID = "SENSECAM_WIFI_SSID"
	EnvWiFiPSK  = "SENSECAM_WIFI_PSK"
)

// MaxConfigFileBytes bounds the size of a configuration file.
const MaxConfigFileBytes = 1 << 20

// ValidateConfigPath accepts only .yaml files located directly in a configs/ directory.
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("config path %q must not contain '..'", path)
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// WiFiConfig selects how the network link is brought up.
type WiFiConfig struct {
	SSID      string `yaml:"ssid"`
	PSK       string `yaml:"psk"`
	Connector string `yaml:"connector"`  // "none", "host" or "nmcli"
	Interface string `yaml:"interface"`  // e.g., "wlan0"
	TimeoutMs int    `yaml:"timeout_ms"` // how long to wait for an address
}

// CameraConfig describes the sensor and how to drive it.
// Driver selects a concrete implementation ("testpattern" or "v4l2").
type CameraConfig struct {
	Driver           string      `yaml:"driver"`
	Device           string      `yaml:"device"`             // V4L2 device node
	PixelFormat      string      `yaml:"pixel_format"`       // e.g., "jpeg"
	FrameSize        string      `yaml:"frame_size"`         // preset name, e.g., "UXGA"
	JPEGQuality      int         `yaml:"jpeg_quality"`       // 1-100
	FPS              int         `yaml:"fps"`                // sensor frame rate (v4l2)
	CaptureTimeoutMs int         `yaml:"capture_timeout_ms"` // max wait for a frame (v4l2)
	FailEvery        int         `yaml:"fail_every"`         // testpattern: drop every Nth frame (0 = never)
	Pins             camera.Pins `yaml:"pins"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// StreamConfig tunes the MJPEG route.
type StreamConfig struct {
	IntervalMs int `yaml:"interval_ms"` // sleep between frames
}

// MonitorConfig tunes the console frame logger.
type MonitorConfig struct {
	Enabled    bool `yaml:"enabled"`     // also run alongside the web server
	IntervalMs int  `yaml:"interval_ms"` // delay after a frame
	RetryMs    int  `yaml:"retry_ms"`    // delay after a missing frame
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	WiFi     WiFiConfig     `yaml:"wifi"`
	Camera   CameraConfig   `yaml:"camera"`
	Server   ServerConfig   `yaml:"server"`
	Stream   StreamConfig   `yaml:"stream"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// defaultConfig seeds values that zero cannot express (unconnected pins are -1).
func defaultConfig() Config {
	return Config{
		Camera: CameraConfig{
			Pins: camera.DefaultPins(),
		},
	}
}

// Load reads a YAML file, applies environment overrides and defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxConfigFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if ssid := os.Getenv(EnvWiFiSSID); ssid != "" {
		cfg.WiFi.SSID = ssid
	}
	if psk := os.Getenv(EnvWiFiPSK); psk != "" {
		cfg.WiFi.PSK = psk
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	// Camera
	if c.Camera.Driver == "" {
		return fmt.Errorf("camera.driver is required")
	}
	if c.Camera.Device == "" {
		c.Camera.Device = "/dev/video0"
	}
	if c.Camera.PixelFormat == "" {
		c.Camera.PixelFormat = "jpeg"
	}
	if c.Camera.FrameSize == "" {
		c.Camera.FrameSize = "UXGA" // 1600x1200
	}
	if c.Camera.JPEGQuality <= 0 {
		c.Camera.JPEGQuality = 80
	}
	if c.Camera.JPEGQuality > 100 {
		return fmt.Errorf("camera.jpeg_quality must be between 1 and 100, got %d", c.Camera.JPEGQuality)
	}
	if c.Camera.FPS <= 0 {
		c.Camera.FPS = 15
	}
	if c.Camera.CaptureTimeoutMs <= 0 {
		c.Camera.CaptureTimeoutMs = 2000
	}
	if c.Camera.FailEvery < 0 {
		return fmt.Errorf("camera.fail_every must be >= 0, got %d", c.Camera.FailEvery)
	}
	if _, err := c.CameraSettings(); err != nil {
		return err
	}

	// Server and routes
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Stream.IntervalMs <= 0 {
		c.Stream.IntervalMs = 100
	}
	if c.Monitor.IntervalMs <= 0 {
		c.Monitor.IntervalMs = 1000
	}
	if c.Monitor.RetryMs <= 0 {
		c.Monitor.RetryMs = 100
	}

	// Wi-Fi
	if c.WiFi.Connector == "" {
		c.WiFi.Connector = wifi.KindNone
	}
	switch c.WiFi.Connector {
	case wifi.KindNone:
	case wifi.KindHost, wifi.KindNMCLI:
		if c.WiFi.Interface == "" {
			c.WiFi.Interface = "wlan0"
		}
		if c.WiFi.Connector == wifi.KindNMCLI && c.WiFi.SSID == "" {
			return fmt.Errorf("wifi.ssid is required for the nmcli connector (or set %s)", EnvWiFiSSID)
		}
	default:
		return fmt.Errorf("wifi.connector must be none, host or nmcli, got %q", c.WiFi.Connector)
	}
	if c.WiFi.TimeoutMs <= 0 {
		c.WiFi.TimeoutMs = 15000
	}

	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

// CameraSettings converts the camera section into a driver configuration.
func (c *Config) CameraSettings() (camera.Config, error) {
	format, err := camera.ParsePixelFormat(c.Camera.PixelFormat)
	if err != nil {
		return camera.Config{}, fmt.Errorf("camera.pixel_format: %w", err)
	}
	size, err := camera.ParseFrameSize(c.Camera.FrameSize)
	if err != nil {
		return camera.Config{}, fmt.Errorf("camera.frame_size: %w", err)
	}
	if err := c.Camera.Pins.Validate(); err != nil {
		return camera.Config{}, fmt.Errorf("camera.pins: %w", err)
	}
	return camera.Config{
		Driver:         c.Camera.Driver,
		Device:         c.Camera.Device,
		PixelFormat:    format,
		FrameSize:      size,
		JPEGQuality:    c.Camera.JPEGQuality,
		FPS:            c.Camera.FPS,
		CaptureTimeout: c.CaptureTimeout(),
		FailEvery:      c.Camera.FailEvery,
		Pins:           c.Camera.Pins,
	}, nil
}

// WiFiCredentials returns the network to join.
func (c *Config) WiFiCredentials() wifi.Credentials {
	return wifi.Credentials{SSID: c.WiFi.SSID, PSK: c.WiFi.PSK}
}

// WiFiTimeout returns how long to wait for the network.
func (c *Config) WiFiTimeout() time.Duration {
	return time.Duration(c.WiFi.TimeoutMs) * time.Millisecond
}

// CaptureTimeout returns the longest wait for a single frame.
func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.Camera.CaptureTimeoutMs) * time.Millisecond
}

// StreamInterval returns the sleep between two MJPEG parts.
func (c *Config) StreamInterval() time.Duration {
	return time.Duration(c.Stream.IntervalMs) * time.Millisecond
}

// MonitorInterval returns the delay after a logged frame.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalMs) * time.Millisecond
}

// MonitorRetry returns the delay after a missing frame.
func (c *Config) MonitorRetry() time.Duration {
	return time.Duration(c.Monitor.RetryMs) * time.Millisecond
}
