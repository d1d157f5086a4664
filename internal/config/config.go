package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the gate binaries.
type Config struct {
	// GRPCAddress is the gRPC address the server listens on and gate-ctl dials.
	GRPCAddress string `yaml:"grpc_addr"`
	// HTTPAddress is the optional listen address of the JSON status surface.
	HTTPAddress string `yaml:"http_addr"`
	// LogLevel is the minimum level written by the logger.
	LogLevel string `yaml:"log_level"`
	// LogFormat selects console or json log encoding.
	LogFormat string `yaml:"log_format"`
	// Timeout is the duration for client RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// Gate holds the timing constants of the monitor.
	Gate Gate `yaml:"gate"`
	// Hardware describes how the relay and the sensors are wired.
	Hardware Hardware `yaml:"hardware"`
	// Audit configures the action log publisher.
	Audit Audit `yaml:"audit"`
	// Auth configures bearer token introspection.
	Auth Auth `yaml:"auth"`
}

// Gate holds monitor timings. They are immutable for the process lifetime.
type Gate struct {
	OpeningTimeout time.Duration `yaml:"opening_timeout"`
	ClosingTimeout time.Duration `yaml:"closing_timeout"`
	AutoCloseDelay time.Duration `yaml:"auto_close_delay"`
	TickPeriod     time.Duration `yaml:"tick_period"`
	RelayPulse     time.Duration `yaml:"relay_pulse"`
}

// Hardware selects the GPIO backend and pin assignment (BCM numbering).
type Hardware struct {
	// Driver is either DriverRPIO or DriverSimulated.
	Driver          string `yaml:"driver"`
	RelayPin        int    `yaml:"relay_pin"`
	ClosedSensorPin int    `yaml:"closed_sensor_pin"`
	OpenSensorPin   int    `yaml:"open_sensor_pin"`
	// SensorsActiveLow is true for pull-up wiring where a near barrier pulls the pin low.
	SensorsActiveLow *bool `yaml:"sensors_active_low"`
	// RelayActiveHigh is true when driving the pin high energizes the relay.
	RelayActiveHigh *bool `yaml:"relay_active_high"`
	// SimulatedTravel is the end-to-end travel time of the simulated barrier.
	SimulatedTravel time.Duration `yaml:"simulated_travel"`
}

// Audit configures the NATS action log. An empty URL disables publishing.
type Audit struct {
	NATSURL             string        `yaml:"nats_url"`
	Subject             string        `yaml:"subject"`
	UnauthorizedSubject string        `yaml:"unauthorized_subject"`
	DeviceID            string        `yaml:"device_id"`
	Timeout             time.Duration `yaml:"timeout"`
}

// Auth configures token introspection against an OpenID Connect provider.
// An empty server URL, or the literal "disabled", turns authentication off.
type Auth struct {
	ServerURL    string        `yaml:"server_url"`
	Realm        string        `yaml:"realm"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Timeout      time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for gate settings.
	DefaultConfigFilename = "gate-controller-settings.yaml"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// DefaultOpeningTimeout is how long an opening may take before an alert.
	DefaultOpeningTimeout = 15 * time.Second
	// DefaultClosingTimeout is how long a closing may take before an alert.
	DefaultClosingTimeout = 20 * time.Second
	// DefaultAutoCloseDelay is the dwell time before an idle open gate is closed.
	DefaultAutoCloseDelay = 3 * time.Minute
	// DefaultTickPeriod is the monitor evaluation cadence.
	DefaultTickPeriod = 100 * time.Millisecond
	// DefaultRelayPulse is how long the relay stays energized per activation.
	DefaultRelayPulse = time.Second

	// DriverRPIO drives real GPIO pins through /dev/gpiomem.
	DriverRPIO = "rpio"
	// DriverSimulated runs against an in-memory barrier model.
	DriverSimulated = "simulated"

	// DefaultSimulatedTravel is the travel time of the simulated barrier.
	DefaultSimulatedTravel = 5 * time.Second

	// DefaultRelayPin is the BCM pin of the relay.
	DefaultRelayPin = 16
	// DefaultClosedSensorPin is the BCM pin of the "closed" proximity sensor.
	DefaultClosedSensorPin = 18
	// DefaultOpenSensorPin is the BCM pin of the "open" proximity sensor.
	DefaultOpenSensorPin = 19

	// DefaultAuditSubject receives authorized actions.
	DefaultAuditSubject = "gate.actions"
	// DefaultUnauthorizedSubject receives rejected actions.
	DefaultUnauthorizedSubject = "gate.actions.unauthorized"
	// DefaultDeviceID identifies this controller in audit events.
	DefaultDeviceID = "gate-controller"

	// authDisabledMarker explicitly disables authentication.
	authDisabledMarker = "disabled"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errGRPCAddressRequired is returned when the gRPC address is missing.
	errGRPCAddressRequired = errors.New("grpc address must be provided")
	// errNegativeDuration is returned when a gate timing is negative.
	errNegativeDuration = errors.New("gate timings must not be negative")
	// errUnknownDriver is returned for an unsupported hardware driver.
	errUnknownDriver = errors.New("unknown hardware driver")
	// errPinsNotDistinct is returned when two roles share a GPIO pin.
	errPinsNotDistinct = errors.New("relay and sensor pins must be distinct")
	// errUnknownLogFormat is returned for an unsupported log format.
	errUnknownLogFormat = errors.New("unknown log format")
	// errRealmRequired is returned when authentication is enabled without a realm.
	errRealmRequired = errors.New("auth realm must be provided")
	// errClientIDRequired is returned when authentication is enabled without a client ID.
	errClientIDRequired = errors.New("auth client id must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// The file may hold the introspection client secret.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills defaults for omitted values.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.GRPCAddress == "" {
		return errGRPCAddressRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.GRPCAddress); err != nil {
		return fmt.Errorf("invalid grpc address: %w", err)
	}

	if settings.HTTPAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.HTTPAddress); err != nil {
			return fmt.Errorf("invalid http address: %w", err)
		}
	}

	switch strings.ToLower(settings.LogFormat) {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: %q", errUnknownLogFormat, settings.LogFormat)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if err := validateGate(&settings.Gate); err != nil {
		return err
	}

	if err := validateHardware(&settings.Hardware); err != nil {
		return err
	}

	validateAudit(&settings.Audit)

	return validateAuth(&settings.Auth)
}

// AuthEnabled reports whether requests must carry a valid bearer token.
func (a *Auth) AuthEnabled() bool {
	server := strings.TrimSpace(a.ServerURL)

	return server != "" && !strings.EqualFold(server, authDisabledMarker)
}

// AuditEnabled reports whether actions are published to NATS.
func (a *Audit) AuditEnabled() bool {
	return strings.TrimSpace(a.NATSURL) != ""
}

// validateGate rejects negative timings and replaces zero ones with defaults.
func validateGate(g *Gate) error {
	durations := []*time.Duration{
		&g.OpeningTimeout,
		&g.ClosingTimeout,
		&g.AutoCloseDelay,
		&g.TickPeriod,
		&g.RelayPulse,
	}

	defaults := []time.Duration{
		DefaultOpeningTimeout,
		DefaultClosingTimeout,
		DefaultAutoCloseDelay,
		DefaultTickPeriod,
		DefaultRelayPulse,
	}

	for i, d := range durations {
		if *d < 0 {
			return errNegativeDuration
		}

		if *d == 0 {
			*d = defaults[i]
		}
	}

	return nil
}

// validateHardware fills default pins and polarities and checks the driver name.
func validateHardware(h *Hardware) error {
	if h.Driver == "" {
		h.Driver = DriverRPIO
	}

	switch h.Driver {
	case DriverRPIO, DriverSimulated:
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, h.Driver)
	}

	if h.SimulatedTravel < 0 {
		return errNegativeDuration
	}

	if h.SimulatedTravel == 0 {
		h.SimulatedTravel = DefaultSimulatedTravel
	}

	if h.RelayPin == 0 {
		h.RelayPin = DefaultRelayPin
	}

	if h.ClosedSensorPin == 0 {
		h.ClosedSensorPin = DefaultClosedSensorPin
	}

	if h.OpenSensorPin == 0 {
		h.OpenSensorPin = DefaultOpenSensorPin
	}

	if h.RelayPin == h.ClosedSensorPin || h.RelayPin == h.OpenSensorPin || h.ClosedSensorPin == h.OpenSensorPin {
		return errPinsNotDistinct
	}

	if h.SensorsActiveLow == nil {
		activeLow := true
		h.SensorsActiveLow = &activeLow
	}

	if h.RelayActiveHigh == nil {
		activeHigh := true
		h.RelayActiveHigh = &activeHigh
	}

	return nil
}

func validateAudit(a *Audit) {
	if a.Subject == "" {
		a.Subject = DefaultAuditSubject
	}

	if a.UnauthorizedSubject == "" {
		a.UnauthorizedSubject = DefaultUnauthorizedSubject
	}

	if a.DeviceID == "" {
		a.DeviceID = DefaultDeviceID
	}

	if a.Timeout <= 0 {
		a.Timeout = DefaultTimeout
	}
}

func validateAuth(a *Auth) error {
	if a.Timeout <= 0 {
		a.Timeout = DefaultTimeout
	}

	if !a.AuthEnabled() {
		return nil
	}

	if a.Realm == "" {
		return errRealmRequired
	}

	if a.ClientID == "" {
		return errClientIDRequired
	}

	server := a.ServerURL
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "http://" + server
	}

	if _, err := url.ParseRequestURI(server); err != nil {
		return fmt.Errorf("invalid auth server URL: %w", err)
	}

	return nil
}
