package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// CacheSize is the maximum number of RRsets held in the answer cache.
	CacheSize uint `koanf:"cache_size" validate:"required,gte=1"`

	// DisableDNSSEC turns response validation off; every answer is then
	// reported as Unsigned.
	DisableDNSSEC bool `koanf:"disable_dnssec"`

	// Enable0x20 randomizes query-name case and checks the echo, a cheap
	// defense against off-path spoofing.
	Enable0x20 bool `koanf:"enable_0x20"`

	// ValidateIdentity requires responses to echo the exact question sent,
	// including 0x20 case when that is enabled.
	ValidateIdentity bool `koanf:"validate_identity"`

	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// QueryTimeoutMS bounds a single upstream exchange, in milliseconds.
	QueryTimeoutMS uint `koanf:"query_timeout_ms" validate:"required,gte=100,lte=60000"`

	// MaxReferrals bounds the delegation walk of one resolution.
	MaxReferrals int `koanf:"max_referrals" validate:"required,gte=1,lte=100"`

	// UDPSize is the EDNS buffer size advertised to servers.
	UDPSize uint16 `koanf:"udp_size" validate:"required,gte=512"`

	// RootHints optionally overrides the compiled-in root server list.
	// Supported formats: json, yaml, toml.
	RootHints string `koanf:"root_hints" validate:"omitempty,hints_file"`

	// TrustAnchors optionally overrides the compiled-in DNSSEC trust
	// anchors. Supported formats: json, yaml, toml.
	TrustAnchors string `koanf:"trust_anchors" validate:"omitempty,hints_file"`

	// TSIGName and TSIGSecret configure transaction signing for zone
	// transfers; both must be set together. The secret is base64.
	TSIGName   string `koanf:"tsig_name" validate:"required_with=TSIGSecret"`
	TSIGSecret string `koanf:"tsig_secret" validate:"required_with=TSIGName,omitempty,base64"`

	// TSIGAlgorithm names the HMAC used for transaction signing.
	TSIGAlgorithm string `koanf:"tsig_algorithm" validate:"omitempty,oneof=hmac-md5.sig-alg.reg.int hmac-sha1 hmac-sha256 hmac-sha512"`
}

// DEFAULT_APP_CONFIG defines the default application configuration: a
// validating resolver with 0x20 protection on, production logging, and the
// compiled-in hints.
var DEFAULT_APP_CONFIG = AppConfig{
	CacheSize:        10000,
	DisableDNSSEC:    false,
	Enable0x20:       true,
	ValidateIdentity: true,
	Env:              "prod",
	LogLevel:         "info",
	QueryTimeoutMS:   5000,
	MaxReferrals:     30,
	UDPSize:          1232,
	TSIGAlgorithm:    "hmac-sha256",
}

// validHintsFile accepts paths whose extension maps to a parser the hint
// store understands.
func validHintsFile(fl validator.FieldLevel) bool {
	switch strings.ToLower(filepath.Ext(fl.Field().String())) {
	case ".json", ".yaml", ".yml", ".toml":
		return true
	default:
		return false
	}
}

// envLoader loads environment variables with the prefix "RECDNS_",
// lowercasing keys and trimming the prefix. A var so tests can mock it.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "RECDNS_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "RECDNS_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG into the provided Koanf instance
// using the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the custom "hints_file" validation.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("hints_file", validHintsFile)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
