package config

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL        = "http://127.0.0.1:7480"
	DefaultDBFileName    = ".inkpost.db"
	DefaultUploadDirName = ".inkpost-uploads"
	DefaultLogLevel      = "info"
	ConfigFileName       = ".inkpost.toml"

	DefaultMaxAvatarBytes     int64 = 5 * 1024 * 1024
	DefaultMaxPostBytes       int64 = 512 * 1024 * 1024
	DefaultMaxBrandingBytes   int64 = 10 * 1024 * 1024
	DefaultMultipartMemory    int64 = 8 * 1024 * 1024
	DefaultRejectMismatch           = true
	DefaultEditorMaxFileBytes int64 = 100 * 1024 * 1024

	DefaultPlaceholderLabel = "uploading"
	DefaultMarkupStyle      = "embed"
	DefaultProgressPolicy   = "average"
	DefaultEditorCategory   = "post"

	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"

	configDirEnvKey          = "INKPOST_CONFIG_DIR"
	trustProjectConfigEnvKey = "INKPOST_TRUST_PROJECT_CONFIG"

	allowedMediaTypesEnvKey = "INKPOST_ALLOWED_MEDIA_TYPES"
	rejectMismatchEnvKey    = "INKPOST_REJECT_MEDIA_TYPE_MISMATCH"
	s3AccessKeyEnvKey       = "INKPOST_S3_ACCESS_KEY"
	s3SecretKeyEnvKey       = "INKPOST_S3_SECRET_KEY"
)

// ServerConfig defines settings for the upload server.
type ServerConfig struct {
	// APITokenHash is a bcrypt hash; when set, API requests need the token.
	APITokenHash string `toml:"api_token_hash"`
}

// UploadsConfig defines per-category limits enforced by the server.
type UploadsConfig struct {
	MaxAvatarBytes          int64    `toml:"max_avatar_bytes"`
	MaxPostBytes            int64    `toml:"max_post_bytes"`
	MaxBrandingBytes        int64    `toml:"max_branding_bytes"`
	MultipartMaxMemory      int64    `toml:"multipart_max_memory"`
	AllowedMediaTypes       []string `toml:"allowed_media_types"`
	RejectMediaTypeMismatch bool     `toml:"reject_media_type_mismatch"`
}

// EditorConfig defines how files are inserted into documents.
type EditorConfig struct {
	PlaceholderLabel string   `toml:"placeholder_label"`
	MarkupStyle      string   `toml:"markup_style"`
	ProgressPolicy   string   `toml:"progress_policy"`
	MaxFileBytes     int64    `toml:"max_file_bytes"`
	AllowedKinds     []string `toml:"allowed_kinds"`
	Category         string   `toml:"category"`
}

// StorageConfig selects where upload bytes live.
type StorageConfig struct {
	Backend   string `toml:"backend"`
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	// Path prefixes object keys and public URLs.
	Path    string `toml:"path"`
	BaseURL string `toml:"base_url"`
}

// Config defines runtime configuration for inkpost.
type Config struct {
	APIURL                   string        `toml:"api_url"`
	DBPath                   string        `toml:"db_path"`
	LogLevel                 string        `toml:"log_level"`
	SiteURL                  string        `toml:"site_url"`
	UploadDir                string        `toml:"upload_dir"`
	Server                   ServerConfig  `toml:"server"`
	Uploads                  UploadsConfig `toml:"uploads"`
	Editor                   EditorConfig  `toml:"editor"`
	Storage                  StorageConfig `toml:"storage"`
	TrustedProjectConfigPath string        `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		LogLevel: DefaultLogLevel,
		Uploads: UploadsConfig{
			MaxAvatarBytes:          DefaultMaxAvatarBytes,
			MaxPostBytes:            DefaultMaxPostBytes,
			MaxBrandingBytes:        DefaultMaxBrandingBytes,
			MultipartMaxMemory:      DefaultMultipartMemory,
			RejectMediaTypeMismatch: DefaultRejectMismatch,
		},
		Editor: EditorConfig{
			PlaceholderLabel: DefaultPlaceholderLabel,
			MarkupStyle:      DefaultMarkupStyle,
			ProgressPolicy:   DefaultProgressPolicy,
			MaxFileBytes:     DefaultEditorMaxFileBytes,
			Category:         DefaultEditorCategory,
		},
		Storage: StorageConfig{
			Backend: StorageBackendLocal,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, ConfigFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"site_url",
	"upload_dir",
	"server.api_token_hash",
	"uploads.max_avatar_bytes",
	"uploads.max_post_bytes",
	"uploads.max_branding_bytes",
	"uploads.multipart_max_memory",
	"uploads.allowed_media_types",
	"uploads.reject_media_type_mismatch",
	"editor.placeholder_label",
	"editor.markup_style",
	"editor.progress_policy",
	"editor.max_file_bytes",
	"editor.allowed_kinds",
	"editor.category",
	"storage.backend",
	"storage.endpoint",
	"storage.bucket",
	"storage.region",
	"storage.access_key",
	"storage.secret_key",
	"storage.path",
	"storage.base_url",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "site_url":
		return c.SiteURL, nil
	case "upload_dir":
		return c.UploadDir, nil
	case "server.api_token_hash":
		return c.Server.APITokenHash, nil
	case "uploads.max_avatar_bytes":
		return strconv.FormatInt(c.Uploads.MaxAvatarBytes, 10), nil
	case "uploads.max_post_bytes":
		return strconv.FormatInt(c.Uploads.MaxPostBytes, 10), nil
	case "uploads.max_branding_bytes":
		return strconv.FormatInt(c.Uploads.MaxBrandingBytes, 10), nil
	case "uploads.multipart_max_memory":
		return strconv.FormatInt(c.Uploads.MultipartMaxMemory, 10), nil
	case "uploads.allowed_media_types":
		return strings.Join(c.Uploads.AllowedMediaTypes, ","), nil
	case "uploads.reject_media_type_mismatch":
		return strconv.FormatBool(c.Uploads.RejectMediaTypeMismatch), nil
	case "editor.placeholder_label":
		return c.Editor.PlaceholderLabel, nil
	case "editor.markup_style":
		return c.Editor.MarkupStyle, nil
	case "editor.progress_policy":
		return c.Editor.ProgressPolicy, nil
	case "editor.max_file_bytes":
		return strconv.FormatInt(c.Editor.MaxFileBytes, 10), nil
	case "editor.allowed_kinds":
		return strings.Join(c.Editor.AllowedKinds, ","), nil
	case "editor.category":
		return c.Editor.Category, nil
	case "storage.backend":
		return c.Storage.Backend, nil
	case "storage.endpoint":
		return c.Storage.Endpoint, nil
	case "storage.bucket":
		return c.Storage.Bucket, nil
	case "storage.region":
		return c.Storage.Region, nil
	case "storage.access_key":
		return c.Storage.AccessKey, nil
	case "storage.secret_key":
		if c.Storage.SecretKey != "" {
			return "********", nil
		}
		return "", nil
	case "storage.path":
		return c.Storage.Path, nil
	case "storage.base_url":
		return c.Storage.BaseURL, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, ConfigFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, ConfigFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, ConfigFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		if cfg.DBPath == "" {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
		if cfg.UploadDir == "" {
			cfg.UploadDir = filepath.Join(cwd, DefaultUploadDirName)
		}
	}

	if apiURL := os.Getenv("INKPOST_API_URL"); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv("INKPOST_DB"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if siteURL := os.Getenv("INKPOST_SITE_URL"); siteURL != "" {
		cfg.SiteURL = siteURL
	}
	if uploadDir := os.Getenv("INKPOST_UPLOAD_DIR"); uploadDir != "" {
		cfg.UploadDir = uploadDir
	}
	if accessKey := os.Getenv(s3AccessKeyEnvKey); accessKey != "" {
		cfg.Storage.AccessKey = accessKey
	}
	if secretKey := os.Getenv(s3SecretKeyEnvKey); secretKey != "" {
		cfg.Storage.SecretKey = secretKey
	}

	if raw := strings.TrimSpace(os.Getenv(allowedMediaTypesEnvKey)); raw != "" {
		cfg.Uploads.AllowedMediaTypes = splitCSV(raw)
	}
	if raw := strings.TrimSpace(os.Getenv(rejectMismatchEnvKey)); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			cfg.Uploads.RejectMediaTypeMismatch = parsed
		}
	}

	cfg.normalizeDefaults()

	return &cfg, nil
}

// PublicSiteURL returns the base URL local uploads are served under.
func (c *Config) PublicSiteURL() string {
	if strings.TrimSpace(c.SiteURL) != "" {
		return strings.TrimRight(strings.TrimSpace(c.SiteURL), "/")
	}
	return strings.TrimRight(c.APIURL, "/")
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "uploads.max_avatar_bytes", "uploads.max_post_bytes", "uploads.max_branding_bytes",
		"uploads.multipart_max_memory", "editor.max_file_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "uploads.reject_media_type_mismatch":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "uploads.allowed_media_types", "editor.allowed_kinds":
		return splitCSV(value), nil
	case "log_level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "warning", "error":
			return strings.ToLower(value), nil
		default:
			return nil, fmt.Errorf("log_level must be one of debug, info, warn, error")
		}
	case "editor.markup_style":
		if value != "embed" && value != "link" {
			return nil, fmt.Errorf("%s must be embed or link", key)
		}
		return value, nil
	case "editor.progress_policy":
		if value != "average" && value != "last" {
			return nil, fmt.Errorf("%s must be average or last", key)
		}
		return value, nil
	case "editor.category":
		if value != "avatar" && value != "post" && value != "branding" {
			return nil, fmt.Errorf("%s must be avatar, post or branding", key)
		}
		return value, nil
	case "storage.backend":
		if value != StorageBackendLocal && value != StorageBackendS3 {
			return nil, fmt.Errorf("%s must be local or s3", key)
		}
		return value, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Uploads.MaxAvatarBytes <= 0 {
		c.Uploads.MaxAvatarBytes = DefaultMaxAvatarBytes
	}
	if c.Uploads.MaxPostBytes <= 0 {
		c.Uploads.MaxPostBytes = DefaultMaxPostBytes
	}
	if c.Uploads.MaxBrandingBytes <= 0 {
		c.Uploads.MaxBrandingBytes = DefaultMaxBrandingBytes
	}
	if c.Uploads.MultipartMaxMemory <= 0 {
		c.Uploads.MultipartMaxMemory = DefaultMultipartMemory
	}
	c.Uploads.AllowedMediaTypes = normalizeConfiguredMediaTypes(c.Uploads.AllowedMediaTypes)

	if c.Editor.MaxFileBytes <= 0 {
		c.Editor.MaxFileBytes = DefaultEditorMaxFileBytes
	}
	if strings.TrimSpace(c.Editor.PlaceholderLabel) == "" {
		c.Editor.PlaceholderLabel = DefaultPlaceholderLabel
	}
	if strings.TrimSpace(c.Editor.MarkupStyle) == "" {
		c.Editor.MarkupStyle = DefaultMarkupStyle
	}
	if strings.TrimSpace(c.Editor.ProgressPolicy) == "" {
		c.Editor.ProgressPolicy = DefaultProgressPolicy
	}
	if strings.TrimSpace(c.Editor.Category) == "" {
		c.Editor.Category = DefaultEditorCategory
	}
	if strings.TrimSpace(c.Storage.Backend) == "" {
		c.Storage.Backend = StorageBackendLocal
	}
}

func normalizeConfiguredMediaTypes(rawValues []string) []string {
	if len(rawValues) == 0 {
		return nil
	}
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, _, err := mime.ParseMediaType(raw)
		if err != nil {
			continue
		}
		normalized := strings.ToLower(strings.TrimSpace(parsed))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
