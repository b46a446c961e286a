package templating

// TemplateConfig holds all configuration options for the template manager.
type TemplateConfig struct {
	// PageExtension marks the files under the template dir that are served
	// as pages. Other files are layouts and partials.
	PageExtension string `json:"page_extension"`

	// RegenSourceExtension and RegenTargetExtension control Regenerate:
	// every source file is rendered to a sibling with the target extension.
	RegenSourceExtension string `json:"regen_source_extension"`
	RegenTargetExtension string `json:"regen_target_extension"`

	// CacheTemplates keeps loaded template sources in memory until the next
	// Refresh. Turn it off while editing templates by hand.
	CacheTemplates bool `json:"cache_templates"`

	// CacheSize is the number of template sources kept by the cache.
	CacheSize int `json:"cache_size"`

	// MaxTemplateSize is the largest template file, in bytes, the loader will
	// read. Zero means no limit.
	MaxTemplateSize int64 `json:"max_template_size"`

	// MarkdownEnabled adds the markdown directive to every render context.
	MarkdownEnabled bool `json:"markdown_enabled"`

	// SanitizeEnabled adds the sanitize directive to every render context.
	SanitizeEnabled bool `json:"sanitize_enabled"`
}

// DefaultConfig returns a TemplateConfig with safe default values.
func DefaultConfig() TemplateConfig {
	return TemplateConfig{
		PageExtension:        ".htmo",
		RegenSourceExtension: ".htms",
		RegenTargetExtension: ".html",
		CacheTemplates:       true,
		CacheSize:            256,
		MaxTemplateSize:      1048576, // 1MB
		MarkdownEnabled:      true,
		SanitizeEnabled:      true,
	}
}
