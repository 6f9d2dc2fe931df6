package core

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/jo-hoe/recipe-app/internal/backend/commandstructure"
	"gopkg.in/yaml.v3"
)

// CommandConfig represents a generic command configuration
type CommandConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:",inline"`
}

type Database struct {
	Type             string `yaml:"type" validate:"required,oneof=sqlite postgres"`
	Host             string `yaml:"host"`
	Port             int    `yaml:"port" validate:"min=0,max=65535"`
	Name             string `yaml:"name"`
	User             string `yaml:"user"`
	Password         string `yaml:"password"`
	ConnectionString string `yaml:"connectionString"`
	MaxOpenConns     int    `yaml:"maxOpenConns" validate:"min=0"`
}

type Redis struct {
	Address  string        `yaml:"address"`
	TokenTTL time.Duration `yaml:"tokenTTL"`
}

type Media struct {
	Root string `yaml:"root" validate:"required"`
	URL  string `yaml:"url" validate:"required"`
}

type WaitForDB struct {
	Interval time.Duration `yaml:"interval" validate:"gt=0"`
	Timeout  time.Duration `yaml:"timeout" validate:"min=0"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ServiceConfig struct {
	Port          int             `yaml:"port" validate:"min=1,max=65535"`
	Database      Database        `yaml:"database"`
	Redis         Redis           `yaml:"redis"`
	Media         Media           `yaml:"media"`
	ImageCommands []CommandConfig `yaml:"imageCommands"`
	WaitForDB     WaitForDB       `yaml:"waitForDB"`
	Log           Log             `yaml:"log"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *ServiceConfig {
	return &ServiceConfig{
		Port: 8000,
		Database: Database{
			Type: "postgres",
			Port: 5432,
		},
		Redis: Redis{TokenTTL: time.Hour},
		Media: Media{
			Root: "/vol/web/media",
			URL:  "/static/media/",
		},
		ImageCommands: []CommandConfig{
			{Name: "PngConverterCommand"},
			{Name: "ScaleCommand", Params: map[string]any{"maxWidth": 1024}},
		},
		WaitForDB: WaitForDB{Interval: time.Second},
		Log:       Log{Level: "info", Format: "text"},
	}
}

// LoadConfig loads configuration from the specified YAML file on top of the
// defaults and applies environment overrides. A missing file is not an error.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	if err := applyEnvOverrides(config, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *ServiceConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateCommands(c.ImageCommands); err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}
	return nil
}

// DSN returns the configured connection string, building a postgres URL from
// the discrete fields when none is given.
func (d Database) DSN() string {
	if d.ConnectionString != "" || d.Type != "postgres" {
		return d.ConnectionString
	}
	host := d.Host
	if d.Port > 0 {
		host = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     host,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// PipelineConfigs converts the configured image commands into invoker configs.
func (c *ServiceConfig) PipelineConfigs() []commandstructure.CommandConfig {
	out := make([]commandstructure.CommandConfig, 0, len(c.ImageCommands))
	for _, cmd := range c.ImageCommands {
		out = append(out, commandstructure.CommandConfig{Name: cmd.Name, Params: cmd.Params})
	}
	return out
}

func applyEnvOverrides(config *ServiceConfig, lookup func(string) (string, bool)) error {
	strOverrides := map[string]*string{
		"DB_TYPE":              &config.Database.Type,
		"DB_HOST":              &config.Database.Host,
		"DB_NAME":              &config.Database.Name,
		"DB_USER":              &config.Database.User,
		"DB_PASS":              &config.Database.Password,
		"DB_CONNECTION_STRING": &config.Database.ConnectionString,
		"REDIS_ADDR":           &config.Redis.Address,
		"MEDIA_ROOT":           &config.Media.Root,
		"LOG_LEVEL":            &config.Log.Level,
	}
	for key, target := range strOverrides {
		if v, ok := lookup(key); ok {
			*target = v
		}
	}

	intOverrides := map[string]*int{
		"DB_PORT": &config.Database.Port,
		"PORT":    &config.Port,
	}
	for key, target := range intOverrides {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("environment variable %s must be an integer, got %q", key, v)
		}
		*target = n
	}
	return nil
}

// validateCommands ensures all command configurations have required fields
func validateCommands(commands []CommandConfig) error {
	seenNames := make(map[string]bool)

	for i, cmd := range commands {
		if cmd.Name == "" {
			return fmt.Errorf("command at index %d has empty name", i)
		}

		if seenNames[cmd.Name] {
			return fmt.Errorf("duplicate command name: %s", cmd.Name)
		}
		seenNames[cmd.Name] = true

		if !commandstructure.DefaultRegistry.IsRegistered(cmd.Name) {
			return fmt.Errorf("unknown command at index %d: %s (available: %s)",
				i, cmd.Name, strings.Join(commandstructure.DefaultRegistry.GetRegisteredNames(), ", "))
		}
		if _, err := commandstructure.DefaultRegistry.Create(cmd.Name, cmd.Params); err != nil {
			return fmt.Errorf("command at index %d: %w", i, err)
		}
	}

	return nil
}
