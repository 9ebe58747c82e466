package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/marcodamonte/concurrency/handoff/prodcons"
)

// ValidationError is one rejected setting, named by its viper key.
type ValidationError struct {
	Field   string // viper key, indexed for list entries: "greet.names[2]"
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is what Load returns when any setting is rejected; every
// problem is reported at once rather than stopping at the first.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log formats
func ValidLogFormats() []string {
	return []string{"console", "json"}
}

// ValidLogOutputs returns the streams diagnostics may be written to
func ValidLogOutputs() []string {
	return []string{"stderr", "stdout"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, c.validateMailbox()...)
	errs = append(errs, c.validateCountdown()...)
	errs = append(errs, c.validateGreet()...)
	errs = append(errs, c.validateLogging()...)
	return errs
}

func (c *Config) validateMailbox() []ValidationError {
	var errs []ValidationError

	for i, p := range c.Mailbox.Payloads {
		if p == prodcons.Sentinel {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("mailbox.payloads[%d]", i),
				Value:   p,
				Message: "payload must not equal the end-of-stream sentinel",
			})
		}
	}
	if c.Mailbox.MaxDelay < 0 {
		errs = append(errs, ValidationError{
			Field:   "mailbox.max_delay",
			Value:   c.Mailbox.MaxDelay,
			Message: "must be non-negative",
		})
	}
	if c.Mailbox.Timeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "mailbox.timeout",
			Value:   c.Mailbox.Timeout,
			Message: "must be non-negative (0 disables the timeout)",
		})
	}

	return errs
}

func (c *Config) validateCountdown() []ValidationError {
	var errs []ValidationError

	if c.Countdown.Start < 0 {
		errs = append(errs, ValidationError{
			Field:   "countdown.start",
			Value:   c.Countdown.Start,
			Message: "must be non-negative",
		})
	}
	errs = append(errs, validateNames(c.Countdown.Workers, "countdown.workers")...)

	return errs
}

func (c *Config) validateGreet() []ValidationError {
	return validateNames(c.Greet.Names, "greet.names")
}

func (c *Config) validateLogging() []ValidationError {
	var errs []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}
	if !slices.Contains(ValidLogOutputs(), strings.ToLower(c.Logging.Output)) {
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Value:   c.Logging.Output,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogOutputs(), ", ")),
		})
	}

	return errs
}

// validateNames requires at least one worker name, none blank, none repeated.
// Names are identities, so two workers may not share one.
func validateNames(names []string, field string) []ValidationError {
	var errs []ValidationError

	if len(names) == 0 {
		errs = append(errs, ValidationError{
			Field:   field,
			Value:   names,
			Message: "at least one name is required",
		})
		return errs
	}

	seen := make(map[string]bool, len(names))
	for i, name := range names {
		switch {
		case strings.TrimSpace(name) == "":
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Value:   name,
				Message: "name must not be blank",
			})
		case seen[name]:
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Value:   name,
				Message: "duplicate name",
			})
		}
		seen[name] = true
	}

	return errs
}
