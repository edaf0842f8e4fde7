package pricing

import (
	"context"
	"errors"
	"net/http"

	"priceupload/models"
)

// Authenticate exchanges the client credentials for a bearer token using HTTP
// Basic auth against the token endpoint. It is not retried.
func (c *Client) Authenticate(ctx context.Context, cred models.Credential) (string, error) {
	if cred.ClientID == "" || cred.ClientSecret == "" {
		return "", &models.AuthenticationError{Err: errors.New("client_id and client_secret are required")}
	}

	var resp models.TokenResponse
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      TokenPath,
		operation: "authenticate",
		prepare: func(r *http.Request) {
			r.SetBasicAuth(cred.ClientID, cred.ClientSecret)
		},
	}, &resp)
	if err != nil {
		return "", &models.AuthenticationError{StatusCode: statusOf(err), Err: err}
	}
	if resp.AccessToken == "" {
		return "", &models.AuthenticationError{Err: errors.New("response has no access_token")}
	}

	c.log.WithComponent("pricing_client").Info("authenticated")
	return resp.AccessToken, nil
}
