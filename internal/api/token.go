package api

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v4"
)

// ErrNoToken is returned when an owner id is needed but no session token is configured.
var ErrNoToken = errors.New("api: no session token configured")

// OwnerID reads the trainer id from the session token's "sub" claim. The
// signature is not checked here; the backend verifies it on every request.
func (c *Client) OwnerID() (int64, error) {
	return OwnerFromToken(c.token)
}

// OwnerFromToken extracts the trainer id from a backend session JWT.
func OwnerFromToken(token string) (int64, error) {
	if token == "" {
		return 0, ErrNoToken
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return 0, fmt.Errorf("api: parse session token: %w", err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("api: session token subject %q is not a trainer id", claims.Subject)
	}
	return id, nil
}
