package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/CTAG07/Bakery/pkg/templating"
	"github.com/natefinch/atomic"
)

// ServerConfig holds the configuration for the HTTP servers.
type ServerConfig struct {
	ServerAddr     string   `json:"server_addr"`
	ApiAddr        string   `json:"api_addr"`
	LogLevel       string   `json:"log_level"`
	TrustedProxies []string `json:"trusted_proxies"`
	DataDir        string   `json:"data_dir"`
	DatabasePath   string   `json:"database_path"`
	// MountPoint is the URL prefix pages are served under, e.g. "/notes/".
	MountPoint string `json:"mount_point"`
	// SpecialDir holds the static 404.html and 50x.html error pages.
	SpecialDir string `json:"special_dir"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server    *ServerConfig              `json:"server_config"`
	Templates *templating.TemplateConfig `json:"template_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ServerAddr:     ":7277",
		ApiAddr:        "127.0.0.1:7278",
		LogLevel:       "info",
		TrustedProxies: []string{},
		DataDir:        "./data",
		DatabasePath:   "./data/bakery.db?_journal_mode=WAL&_busy_timeout=5000",
		MountPoint:     "/",
		SpecialDir:     "./data/special",
	}
}

// DefaultConfig returns a full configuration with default values.
func DefaultConfig() *Config {
	tmplConfig := templating.DefaultConfig()
	return &Config{
		Server:    DefaultServerConfig(),
		Templates: &tmplConfig,
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server == nil || c.Templates == nil {
		return errors.New("server_config and template_config are required")
	}
	if !strings.HasPrefix(c.Server.MountPoint, "/") {
		return fmt.Errorf("mount_point %q must start with '/'", c.Server.MountPoint)
	}
	if c.Templates.PageExtension == "" {
		return errors.New("page_extension must not be empty")
	}
	if c.Templates.CacheTemplates && c.Templates.CacheSize <= 0 {
		return errors.New("cache_size must be positive when caching is enabled")
	}
	return nil
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	// Initialize with default configurations
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Log a warning instead of failing, as the server can still run with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		// For other errors (e.g., permission denied), return the error.
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal the JSON from the file into the config struct.
	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return config, nil
}

// ConfigManager handles thread-safe access to configuration and derived state (trusted proxies).
type ConfigManager struct {
	config       *Config
	mu           sync.RWMutex
	trustedCIDRs []*net.IPNet
	trustedIPs   []net.IP
	configPath   string
	logger       *slog.Logger
	tm           *templating.TemplateManager
}

// NewConfigManager loads the config and initializes the manager.
func NewConfigManager(path string) (*ConfigManager, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	cm := &ConfigManager{
		config:     cfg,
		configPath: path,
		// Log to stdout before the application-specific logger is set.
		logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})),
	}
	cm.refreshCache()

	return cm, nil
}

// SetTemplateManager registers the template manager to receive config updates.
func (cm *ConfigManager) SetTemplateManager(tm *templating.TemplateManager) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.tm = tm
}

// SetLogger sets the logger. That's about it.
func (cm *ConfigManager) SetLogger(logger *slog.Logger) {
	cm.logger = logger
}

// Get returns a thread-safe copy of the current configuration.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	server := *cm.config.Server
	server.TrustedProxies = append([]string(nil), cm.config.Server.TrustedProxies...)
	templates := *cm.config.Templates
	return Config{Server: &server, Templates: &templates}
}

// errConfigSave marks Update failures caused by writing the config file
// rather than by the configuration itself.
var errConfigSave = errors.New("failed to save config")

// Update validates the configuration, applies the template part to the
// template manager, saves it to disk, and only then makes it current. If
// the template manager rejects the new settings or the save fails, the old
// settings stay in effect.
func (cm *ConfigManager) Update(newConfig Config) error {
	if err := newConfig.Validate(); err != nil {
		return err
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	oldTmplConfig := cm.config.Templates
	if cm.tm != nil {
		if err := cm.tm.SetConfig(newConfig.Templates); err != nil {
			_ = cm.tm.SetConfig(oldTmplConfig)
			return fmt.Errorf("template configuration rejected: %w", err)
		}
	}

	data, err := json.MarshalIndent(&newConfig, "", "  ")
	if err == nil {
		err = atomic.WriteFile(cm.configPath, bytes.NewReader(data))
	}
	if err != nil {
		if cm.tm != nil {
			_ = cm.tm.SetConfig(oldTmplConfig)
		}
		return fmt.Errorf("%w: %w", errConfigSave, err)
	}

	*cm.config = newConfig
	cm.refreshCache()
	return nil
}

// IsTrusted checks if an IP is in the trusted proxies list using the cache.
func (cm *ConfigManager) IsTrusted(ipAddr string) bool {
	parsedIP := net.ParseIP(ipAddr)
	if parsedIP == nil {
		return false
	}

	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for _, ipNet := range cm.trustedCIDRs {
		if ipNet.Contains(parsedIP) {
			return true
		}
	}

	for _, trustedIP := range cm.trustedIPs {
		if trustedIP.Equal(parsedIP) {
			return true
		}
	}

	return false
}

// refreshCache rebuilds the binary IP lists from the config strings.
func (cm *ConfigManager) refreshCache() {
	var cidrs []*net.IPNet
	var ips []net.IP

	for _, t := range cm.config.Server.TrustedProxies {
		if strings.Contains(t, "/") {
			_, ipNet, err := net.ParseCIDR(t)
			if err == nil {
				cidrs = append(cidrs, ipNet)
			} else {
				cm.logger.Warn("Failed to parse trusted proxy CIDR", "cidr", t, "error", err)
			}
		} else {
			ip := net.ParseIP(t)
			if ip != nil {
				ips = append(ips, ip)
			} else {
				cm.logger.Warn("Failed to parse trusted proxy IP", "ip", t)
			}
		}
	}
	cm.trustedCIDRs = cidrs
	cm.trustedIPs = ips
}
