package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// ClientCred caches an OAuth2 client-credentials token for outbound HTTP
// requests to the transfer service.
type ClientCred struct {
	conf  oauth2Conf
	token *oauth2.Token
}

type oauth2Conf interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// NewClientCred builds a ClientCred from the configuration.
func NewClientCred(conf Conf) *ClientCred {
	cc := conf.toOauth2Config()
	return &ClientCred{conf: &cc}
}

// SetAuthHeader attaches a valid bearer token to the request, fetching a
// new token when the cached one expired.
func (c *ClientCred) SetAuthHeader(r *http.Request) error {
	if c.token != nil && c.token.Valid() {
		c.token.SetAuthHeader(r)
		return nil
	}
	if err := c.refresh(r.Context()); err != nil {
		return err
	}
	c.token.SetAuthHeader(r)
	return nil
}

func (c *ClientCred) refresh(ctx context.Context) error {
	var err error
	c.token, err = c.conf.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}
	return nil
}
