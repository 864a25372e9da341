package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// OAuthClientConfig represents the Google OAuth client configuration
type OAuthClientConfig struct {
	Installed OAuthInstalled `json:"installed" validate:"required"`
}

// OAuthInstalled represents the installed section of OAuth config
type OAuthInstalled struct {
	ClientID                string   `json:"client_id" validate:"required"`
	ProjectID               string   `json:"project_id" validate:"required"`
	AuthURI                 string   `json:"auth_uri" validate:"required,url"`
	TokenURI                string   `json:"token_uri" validate:"required,url"`
	AuthProviderX509CertURL string   `json:"auth_provider_x509_cert_url" validate:"required,url"`
	ClientSecret            string   `json:"client_secret" validate:"required"`
	RedirectURIs            []string `json:"redirect_uris" validate:"required,min=1,dive,uri"`
}

// ServiceAccount is the subset of a service account key file we check before handing the raw
// JSON to the Google client libraries
type ServiceAccount struct {
	Type        string `json:"type" validate:"required,eq=service_account"`
	ClientEmail string `json:"client_email" validate:"required,email"`
	PrivateKey  string `json:"private_key" validate:"required"`
	TokenURI    string `json:"token_uri" validate:"required,url"`

	raw []byte
}

// JSON returns the key file contents
func (s *ServiceAccount) JSON() []byte {
	return s.raw
}

// LoadOAuthClientWithEnv loads and validates the OAuth client configuration with an environment suffix
// For example, env="test" will look for "oauthClient.test.json"
func LoadOAuthClientWithEnv(env string) (*OAuthClientConfig, error) {
	oauthPath, err := findFile(envFileName("oauthClient", env))
	if err != nil {
		return nil, fmt.Errorf("failed to find oauth client file: %w", err)
	}

	return LoadOAuthClientFromPath(oauthPath)
}

// LoadOAuthClientFromPath loads and validates the OAuth client configuration from a specific path
func LoadOAuthClientFromPath(path string) (*OAuthClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth client file: %w", err)
	}

	var oauthCfg OAuthClientConfig
	if err := json.Unmarshal(data, &oauthCfg); err != nil {
		return nil, fmt.Errorf("failed to parse oauth client file: %w", err)
	}

	if err := ValidateOAuthClient(&oauthCfg); err != nil {
		return nil, err
	}

	return &oauthCfg, nil
}

// ValidateOAuthClient validates the OAuth client configuration
func ValidateOAuthClient(cfg *OAuthClientConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("oauth client validation failed: %w", err)
	}

	return nil
}

// FindServiceAccount returns the service account for env, or nil if no key file exists
func FindServiceAccount(env string) (*ServiceAccount, error) {
	path, err := findFile(envFileName("serviceAccount", env))
	if err != nil {
		return nil, nil
	}
	return LoadServiceAccountFromPath(path)
}

// LoadServiceAccountFromPath loads and validates a service account key file
func LoadServiceAccountFromPath(path string) (*ServiceAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}

	var sa ServiceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("failed to parse service account file: %w", err)
	}

	if err := validate.Struct(&sa); err != nil {
		return nil, fmt.Errorf("service account validation failed: %w", err)
	}

	sa.raw = data
	return &sa, nil
}

// envFileName adds env as an extension, e.g. ("oauthClient", "test") -> "oauthClient.test.json"
func envFileName(base, env string) string {
	if env == "" {
		return base + ".json"
	}
	return base + "." + env + ".json"
}
