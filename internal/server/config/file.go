package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/netguard/internal/flagx"
	"github.com/dmitrijs2005/netguard/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the server configuration. Durations
// accept "15m" style strings or integer nanoseconds. Omitted fields keep the
// value they had before the file was applied.
type FileConfig struct {
	EndpointAddrHTTP      string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC      string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN           string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey             string         `json:"secret_key" yaml:"secret_key"`
	SessionTTL            timex.Duration `json:"session_ttl" yaml:"session_ttl"`
	AccessTokenTTL        timex.Duration `json:"access_token_ttl" yaml:"access_token_ttl"`
	ModelPath             string         `json:"model_path" yaml:"model_path"`
	S3RootUser            string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Region              string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	PasswordHashAlgorithm string         `json:"password_hash_algorithm" yaml:"password_hash_algorithm"`
	AllowRegistrationRole *bool          `json:"allow_registration_role" yaml:"allow_registration_role"`
	AdminUserName         string         `json:"admin_username" yaml:"admin_username"`
	AdminEmail            string         `json:"admin_email" yaml:"admin_email"`
	AdminPassword         string         `json:"admin_password" yaml:"admin_password"`
	LogLevel              string         `json:"log_level" yaml:"log_level"`
	LogFormat             string         `json:"log_format" yaml:"log_format"`
	CORSOrigins           []string       `json:"cors_origins" yaml:"cors_origins"`
}

// parseFile overlays the config file named by -c/-config (or the
// NETGUARD_CONFIG environment variable) onto config. Files ending in .yaml or
// .yml are decoded as YAML, everything else as JSON. No file, no change.
func parseFile(config *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.SessionTTL.Duration > 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.AccessTokenTTL.Duration > 0 {
		config.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	setString(&config.ModelPath, c.ModelPath)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.PasswordHashAlgorithm, c.PasswordHashAlgorithm)
	if c.AllowRegistrationRole != nil {
		config.AllowRegistrationRole = *c.AllowRegistrationRole
	}
	setString(&config.AdminUserName, c.AdminUserName)
	setString(&config.AdminEmail, c.AdminEmail)
	setString(&config.AdminPassword, c.AdminPassword)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	if c.CORSOrigins != nil {
		config.CORSOrigins = c.CORSOrigins
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
