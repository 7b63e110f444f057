package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Config holds configuration options for the inlining process
type Config struct {
	// PreserveMediaQueries keeps allowed @media rules in a <style> element
	PreserveMediaQueries bool `yaml:"preserve_media_queries"`

	// PreservePseudoSelectors keeps :hover, :focus, etc. in a <style> element
	PreservePseudoSelectors bool `yaml:"preserve_pseudo_selectors"`

	// EmailClientOptimizations applies the target client's compatibility profile
	EmailClientOptimizations bool `yaml:"email_client_optimizations"`

	// TargetEmailClient selects the compatibility profile
	TargetEmailClient string `yaml:"target_email_client"`

	// UnprocessableTags are removed from the document when empty
	UnprocessableTags []string `yaml:"unprocessable_tags"`

	Logging LoggingConfig `yaml:"logging"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		PreserveMediaQueries:     true,  // needed for responsive emails
		PreservePseudoSelectors:  false, // :hover rules are dropped like any other unsupported selector
		EmailClientOptimizations: false,
		TargetEmailClient:        "generic",
		UnprocessableTags:        []string{"wbr"},
		Logging: LoggingConfig{
			ConsoleLogger: LoggerConfig{Level: "normal"},
			FileLogger:    LoggerConfig{Level: "none", Mode: "append"},
		},
	}
}

// Load reads a YAML configuration file over the defaults. Keys missing from
// the file keep their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read configuration file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("unable to parse configuration file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that YAML decoding cannot.
func (c Config) Validate() error {
	for _, l := range []LoggerConfig{c.Logging.ConsoleLogger, c.Logging.FileLogger} {
		switch l.Level {
		case "", "none", "normal", "debug":
		default:
			return fmt.Errorf("unknown logging level %q", l.Level)
		}
		switch l.Mode {
		case "", "append", "overwrite":
		default:
			return fmt.Errorf("unknown logging mode %q", l.Mode)
		}
	}
	if l := c.Logging.FileLogger; l.Level != "" && l.Level != "none" && l.Destination == "" {
		return errors.New("file logging requires a destination")
	}
	return nil
}

// Profile returns the compatibility profile in effect. Without email client
// optimizations every feature is considered supported.
func (c Config) Profile() EmailClientCompatibility {
	if !c.EmailClientOptimizations {
		return EmailClientCompatibility{
			SupportsMediaQueries:    true,
			SupportsPseudoSelectors: map[string]bool{":hover": true, ":focus": true},
		}
	}
	return GetCompatibilityProfile(c.TargetEmailClient)
}

// EmailClientCompatibility holds information about email client CSS support
type EmailClientCompatibility struct {
	SupportsMediaQueries    bool
	SupportsPseudoSelectors map[string]bool // :hover, :focus, etc.
	RequiresInlineStyles    bool
	MaxStylesheetSize       int // in bytes, 0 = no limit
}

// SupportsAnyPseudo reports whether the client honors at least one pseudo-class.
func (c EmailClientCompatibility) SupportsAnyPseudo() bool {
	for _, ok := range c.SupportsPseudoSelectors {
		if ok {
			return true
		}
	}
	return false
}

var (
	outlookDesktop = EmailClientCompatibility{
		SupportsPseudoSelectors: map[string]bool{":hover": false, ":focus": false},
		RequiresInlineStyles:    true,
		MaxStylesheetSize:       64 << 10,
	}
	webmail = EmailClientCompatibility{
		SupportsMediaQueries:    true,
		SupportsPseudoSelectors: map[string]bool{":hover": true, ":focus": true},
	}
	outlookWeb = EmailClientCompatibility{
		SupportsMediaQueries:    true,
		SupportsPseudoSelectors: map[string]bool{":hover": true, ":focus": false},
		RequiresInlineStyles:    true,
		MaxStylesheetSize:       64 << 10,
	}
	// unknown clients
	conservative = EmailClientCompatibility{
		SupportsPseudoSelectors: map[string]bool{},
		RequiresInlineStyles:    true,
		MaxStylesheetSize:       32 << 10,
	}
)

// profiles maps lower-cased client names and their aliases to what the
// client renders. Desktop Outlook uses the Word engine.
var profiles = map[string]EmailClientCompatibility{
	"outlook":         outlookDesktop,
	"outlook_desktop": outlookDesktop,
	"gmail":           webmail,
	"gmail_web":       webmail,
	"apple_mail":      webmail,
	"mail_app":        webmail,
	"outlook_online":  outlookWeb,
	"outlook_web":     outlookWeb,
}

// GetCompatibilityProfile returns what the named email client supports,
// falling back to a conservative profile for unknown names.
func GetCompatibilityProfile(client string) EmailClientCompatibility {
	if p, ok := profiles[strings.ToLower(client)]; ok {
		return p
	}
	return conservative
}
