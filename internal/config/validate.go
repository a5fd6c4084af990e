package config

import (
	"fmt"
	"unicode/utf8"

	"github.com/robfig/cron/v3"
)

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func required(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

func validPort(field string, port int) error {
	if port < 1 || port > 65535 {
		return &ValidationError{Field: field, Message: "must be between 1 and 65535"}
	}
	return nil
}

// Validate checks settings every command depends on.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error, fatal"}
	}

	if utf8.RuneCountInString(c.Output.Delimiter) != 1 {
		return &ValidationError{Field: "output.delimiter", Message: "must be a single character"}
	}
	if c.GSC.RowLimit < 1 {
		return &ValidationError{Field: "gsc.row_limit", Message: "must be positive"}
	}
	if c.GSC.RequestsPerSecond <= 0 {
		return &ValidationError{Field: "gsc.requests_per_second", Message: "must be positive"}
	}
	if c.Ranks.MinGapDays < 0 {
		return &ValidationError{Field: "ranks.min_gap_days", Message: "must not be negative"}
	}

	if c.Database.Enabled {
		if err := validPort("database.port", c.Database.Port); err != nil {
			return err
		}
		if err := required("database.user", c.Database.User); err != nil {
			return err
		}
	}
	if c.Elasticsearch.Enabled {
		if err := required("elasticsearch.url", c.Elasticsearch.URL); err != nil {
			return err
		}
	}
	if c.Cache.Enabled {
		if err := required("cache.address", c.Cache.Address); err != nil {
			return err
		}
	}

	return nil
}

// ValidateReport checks the extra settings a full report run needs.
func (c *Config) ValidateReport() error {
	checks := []struct{ field, value string }{
		{"sources.in_house_clicks", c.Sources.InHouseClicks},
		{"sources.serpclix_clicks", c.Sources.SerpClixClicks},
		{"sources.filter_rules", c.Sources.FilterRules},
		{"sources.domains", c.Sources.Domains},
		{"gsc.credentials_file", c.GSC.CredentialsFile},
	}
	for _, chk := range checks {
		if err := required(chk.field, chk.value); err != nil {
			return err
		}
	}
	return nil
}

// ValidateServe checks the viewer API and schedule settings.
func (c *Config) ValidateServe() error {
	if err := validPort("server.port", c.Server.Port); err != nil {
		return err
	}
	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return &ValidationError{Field: "schedule.cron", Message: err.Error()}
		}
		return c.ValidateReport()
	}
	return nil
}
