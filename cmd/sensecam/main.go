package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/cjeanneret/SenseCam/internal/config"
	"github.com/cjeanneret/SenseCam/internal/debug"
	"github.com/cjeanneret/SenseCam/internal/hw/camera"
	"github.com/cjeanneret/SenseCam/internal/hw/gpio"
	"github.com/cjeanneret/SenseCam/internal/hw/wifi"
	"github.com/cjeanneret/SenseCam/internal/logic/access"
	"github.com/cjeanneret/SenseCam/internal/logic/capture"
	"github.com/cjeanneret/SenseCam/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{}
	flag.Var(webPort, "web", "start web server; -web= uses server.port from config, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	frameSize := flag.String("frame_size", "", "override camera frame size ("+strings.Join(camera.FrameSizeNames(), ", ")+")")
	pixelFormat := flag.String("pixel_format", "", "override camera pixel format (jpeg, grayscale, rgb565, yuv422, rgb888)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Validate CLI overrides (empty means "use config value")
	overrides := cameraOverrides{FrameSize: *frameSize, PixelFormat: *pixelFormat}
	if err := validateCLIOverrides(overrides); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}
	applyOverrides(cfg, overrides)

	// Initialize debug system. The console monitor prints at live level,
	// so it needs at least that much output.
	level := cfg.Defaults.DebugLevel
	if !webPort.enabled() && level < debug.LevelLive {
		level = debug.LevelLive
	}
	debug.Init(level)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", level)

	// Initialize GPIO driver
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	// Connect to the network
	debug.Step(2, "Connecting Wi-Fi")
	debug.Value("Connector", cfg.WiFi.Connector)
	debug.Value("SSID", cfg.WiFi.SSID)
	link, err := connectWiFi(ctx, cfg)
	if err != nil {
		log.Fatalf("init Wi-Fi failed: %v", err)
	}
	debug.Info("Wi-Fi connected: %s", link)

	// Initialize camera
	debug.Step(3, "Initializing camera")
	camCfg, err := cfg.CameraSettings()
	if err != nil {
		log.Fatalf("camera config: %v", err)
	}
	debug.Value("Camera driver", camCfg.Driver)
	debug.Value("Frame size", camCfg.FrameSize)
	debug.Value("Pixel format", camCfg.PixelFormat)
	debug.PrintStruct("Camera pins", camCfg.Pins)
	cam, err := camera.Open(camCfg, gpioDriver)
	if err != nil {
		log.Fatalf("init camera failed: %v", err)
	}
	coord := access.New(cam)
	defer func() {
		if err := coord.Close(); err != nil {
			log.Printf("closing camera failed: %v", err)
		}
	}()

	monitor := capture.NewMonitor(coord, cfg.MonitorInterval(), cfg.MonitorRetry())

	if webPort.enabled() {
		debug.Step(4, "Starting web server")
		webAddr := fmt.Sprintf(":%d", webPort.port(cfg.Server.Port))

		monitorDone := make(chan struct{})
		if cfg.Monitor.Enabled {
			go func() {
				defer close(monitorDone)
				monitor.Run(ctx)
			}()
		} else {
			close(monitorDone)
		}

		srv := web.NewServer(webAddr, web.NewHandlers(coord, cfg.StreamInterval()))
		err := srv.Run(ctx)
		cancel()
		<-monitorDone
		if err != nil {
			log.Printf("web server: %v", err)
		}
		return
	}

	debug.Step(4, "Starting console monitor")
	if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("monitor: %v", err)
	}
}

// connectWiFi brings the network up, giving up after wifi.timeout_ms.
func connectWiFi(ctx context.Context, cfg *config.Config) (*wifi.Link, error) {
	connector, err := wifi.New(cfg.WiFi.Connector, cfg.WiFi.Interface)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.WiFiTimeout())
	defer cancel()
	return connector.Connect(ctx, cfg.WiFiCredentials())
}

// cameraOverrides holds camera parameters given on the command line.
type cameraOverrides struct {
	FrameSize   string
	PixelFormat string
}

// validateCLIOverrides checks that non-empty CLI overrides name known values.
// Empty values are ignored (they mean "use config value").
func validateCLIOverrides(o cameraOverrides) error {
	if o.FrameSize != "" {
		if _, err := camera.ParseFrameSize(o.FrameSize); err != nil {
			return fmt.Errorf("frame_size: %w", err)
		}
	}
	if o.PixelFormat != "" {
		if _, err := camera.ParsePixelFormat(o.PixelFormat); err != nil {
			return fmt.Errorf("pixel_format: %w", err)
		}
	}
	return nil
}

// applyOverrides mutates cfg with overrides. Only non-empty override values are applied.
func applyOverrides(cfg *config.Config, o cameraOverrides) {
	if o.FrameSize != "" {
		cfg.Camera.FrameSize = o.FrameSize
	}
	if o.PixelFormat != "" {
		cfg.Camera.PixelFormat = o.PixelFormat
	}
}

// webPortFlag implements flag.Value for -web: unset = disabled,
// -web= uses the configured port, -web 8980 → 8980.
type webPortFlag struct {
	set bool
	val int
}

func (w *webPortFlag) String() string {
	if w == nil || !w.set {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.set, w.val = true, 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.set, w.val = true, v
	return nil
}

func (w *webPortFlag) enabled() bool { return w.set }

// port returns the port given on the command line, or fallback for -web=.
func (w *webPortFlag) port(fallback int) int {
	if w.val == 0 {
		return fallback
	}
	return w.val
}
