package module

import (
	"jsonlmerge/internal/platform/config"
	"jsonlmerge/internal/platform/validate"
)

// Options holds configuration settings for the merge module
type Options struct {
	KeyField      string `json:"key_field"      validate:"required"`
	BatchSize     int    `json:"batch_size"     validate:"gte=1"`
	ProgressEvery int    `json:"progress_every" validate:"gte=0"`
	PageSize      int    `json:"page_size"      validate:"gte=1"`
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	mf := cfg.Prefix("CORE_MERGE_")
	return Options{
		KeyField:      mf.MayString("KEY_FIELD", "id"),
		BatchSize:     mf.MayInt("BATCH_SIZE", 1000),
		ProgressEvery: mf.MayInt("PROGRESS_EVERY", 100000),
		PageSize:      mf.MayInt("PAGE_SIZE", 500),
	}
}

// Validate checks option bounds
func (o Options) Validate() error { return validate.Struct(o) }
