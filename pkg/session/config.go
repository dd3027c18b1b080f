package session

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/TFMV/hivesql/pkg/errors"
	"github.com/TFMV/hivesql/pkg/models"
	"github.com/TFMV/hivesql/pkg/repositories"
)

// Defaults applied by Config.Validate.
const (
	DefaultPort           = 10000
	DefaultConnectTimeout = 30 * time.Second
	DefaultTransportMode  = "binary"
	DefaultHTTPPath       = "cliservice"
	DefaultService        = "hive"
)

// Config represents session configuration.
type Config struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"-" mapstructure:"password"`
	// Auth is one of NONE, NOSASL, LDAP, KERBEROS or CUSTOM.
	Auth          string `json:"auth" mapstructure:"auth"`
	TransportMode string `json:"transport_mode" mapstructure:"transport_mode"`
	HTTPPath      string `json:"http_path" mapstructure:"http_path"`
	Service       string `json:"service" mapstructure:"service"`
	// DSN is used instead of host and port by database/sql drivers.
	DSN string `json:"-" mapstructure:"dsn"`
	// Database is selected with USE after connecting.
	Database          string        `json:"database" mapstructure:"database"`
	ConnectTimeout    time.Duration `json:"connect_timeout" mapstructure:"connect_timeout"`
	KeepAliveInterval time.Duration `json:"keep_alive_interval" mapstructure:"keep_alive_interval"`
	FetchSize         int64         `json:"fetch_size" mapstructure:"fetch_size"`
}

var authModes = map[string]bool{
	repositories.AuthNone:     true,
	repositories.AuthNoSASL:   true,
	repositories.AuthLDAP:     true,
	repositories.AuthKerberos: true,
	repositories.AuthCustom:   true,
}

// Validate fills defaults and rejects values no driver can use.
func (c *Config) Validate() error {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.Newf(errors.CodeInvalidRequest, "invalid port %d", c.Port)
	}

	c.Auth = strings.ToUpper(strings.TrimSpace(c.Auth))
	if c.Auth == "" {
		c.Auth = repositories.AuthNone
	}
	if !authModes[c.Auth] {
		return errors.Newf(errors.CodeInvalidRequest, "unknown auth mode %q", c.Auth)
	}

	c.TransportMode = strings.ToLower(strings.TrimSpace(c.TransportMode))
	switch c.TransportMode {
	case "":
		c.TransportMode = DefaultTransportMode
	case "binary", "http":
	default:
		return errors.Newf(errors.CodeInvalidRequest, "unknown transport mode %q", c.TransportMode)
	}
	if c.TransportMode == "http" && c.HTTPPath == "" {
		c.HTTPPath = DefaultHTTPPath
	}
	if c.Auth == repositories.AuthKerberos && c.Service == "" {
		c.Service = DefaultService
	}

	if c.Database == "" {
		c.Database = models.DefaultDatabase
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.KeepAliveInterval < 0 {
		return errors.New(errors.CodeInvalidRequest, "keep-alive interval cannot be negative")
	}
	if c.FetchSize < 0 {
		return errors.New(errors.CodeInvalidRequest, "fetch size cannot be negative")
	}
	return nil
}

// ConnConfig returns the driver-facing part of the configuration.
func (c Config) ConnConfig() repositories.ConnConfig {
	return repositories.ConnConfig{
		Host:           c.Host,
		Port:           c.Port,
		Username:       c.Username,
		Password:       c.Password,
		Auth:           c.Auth,
		TransportMode:  c.TransportMode,
		HTTPPath:       c.HTTPPath,
		Service:        c.Service,
		DSN:            c.DSN,
		ConnectTimeout: c.ConnectTimeout,
		FetchSize:      c.FetchSize,
	}
}

// target describes the endpoint for logs without credentials.
func (c Config) target() string {
	if c.DSN != "" {
		return maskDSN(c.DSN)
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
