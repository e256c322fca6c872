package providers

import (
	"gochat/internal/httpclient"
)

// DefaultAzureAPIVersion is sent as api-version when Azure mode is enabled
// and no explicit version is configured.
const DefaultAzureAPIVersion = "2023-03-15-preview"

// Config holds the resolved settings used to construct one provider client.
type Config struct {
	Type       string
	APIKey     string
	BaseURL    string
	UseAzure   bool
	APIVersion string
	Proxy      httpclient.ProxyConfig
}

// EffectiveAPIVersion returns the api-version query value, or "" outside Azure mode.
func (c Config) EffectiveAPIVersion() string {
	if !c.UseAzure {
		return ""
	}
	if c.APIVersion != "" {
		return c.APIVersion
	}
	return DefaultAzureAPIVersion
}
