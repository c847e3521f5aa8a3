package auth

import (
	"fmt"

	"golang.org/x/oauth2/clientcredentials"
)

// Conf holds the identity configuration and the client credentials used by
// outbound calls to the transfer collaborator.
type Conf struct {
	// Administrator is the only identity allowed to register schedules.
	Administrator string `json:"administrator"`
	// Delegates maps a beneficiary to identities allowed to claim on its
	// behalf.
	Delegates map[string][]string `json:"delegates"`

	// OAuth2 client credentials for the transfer service. Unused when the
	// transfer endpoint needs no authentication.
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	TokenURL     string   `json:"token_url"`
	Scopes       []string `json:"scopes"`
}

// Validate checks mandatory fields.
func (c Conf) Validate() error {
	if c.Administrator == "" {
		return fmt.Errorf("administrator identity is required")
	}
	return nil
}

func (c Conf) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
}
