package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	Pad       PadConfig         `yaml:"pad"`
	Session   SessionConfig     `yaml:"session"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	if err := c.Pad.Validate(); err != nil {
		return err
	}
	if err := c.Session.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// WorkspaceConfig locates the workspace directory and its well-known
// subdirectories.
type WorkspaceConfig struct {
	Path           string `yaml:"path"`
	BoardsDir      string `yaml:"boards_dir"`
	NotesDir       string `yaml:"notes_dir"`
	AttachmentsDir string `yaml:"attachments_dir"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.BoardsDir, validation.Required),
		validation.Field(&c.NotesDir, validation.Required),
		validation.Field(&c.AttachmentsDir, validation.Required),
	)
}

// PadConfig tunes the SmartPad engine.
//
// DebounceSeconds is the quiet period before an auto-save commit; the
// editors in the original shell used values between 3 and 5 seconds, and
// the range is enforced. MaxFileBytes caps preview loads; zero disables the
// cap.
type PadConfig struct {
	DebounceSeconds int `yaml:"debounce_seconds"`
	MaxFileBytes    int `yaml:"max_file_bytes"`
}

// Validate validates the pad configuration.
func (c *PadConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DebounceSeconds, validation.Required, validation.Min(3), validation.Max(5)),
		validation.Field(&c.MaxFileBytes, validation.Min(0)),
	)
}

// SessionConfig holds the SQLite session database configuration.
type SessionConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Validate validates the session configuration.
func (c *SessionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SQLitePath, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Host: "127.0.0.1",
				Port: 8464,
			},
		},
		Workspace: WorkspaceConfig{
			Path:           "./workspace",
			BoardsDir:      "boards",
			NotesDir:       "notes",
			AttachmentsDir: "attachments",
		},
		Pad: PadConfig{
			DebounceSeconds: 4,
			MaxFileBytes:    1 << 20,
		},
		Session: SessionConfig{
			SQLitePath: "./ansuz.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
