/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"

	"github.com/nanderstabel/identity/pkg/iota/document"
)

// ErrInvalidJWT is returned for tokens that cannot be parsed or verified.
var ErrInvalidJWT = errors.New("invalid credential JWT")

// JWT is a credential in compact JWS form.
type JWT string

// jwtClaims carries the registered claims derived from the credential next to the "vc" claim.
type jwtClaims struct {
	jwt.Claims
	VC *Credential `json:"vc"`
}

// SignJWT encodes the credential as an EdDSA signed JWT. The issuer, id, subject, issuance and
// expiration dates move to the registered claims and kid identifies the signing method.
func SignJWT(c *Credential, privateKey ed25519.PrivateKey, kid string) (JWT, error) {
	if err := c.Check(); err != nil {
		return "", err
	}

	opts := (&jose.SignerOptions{}).WithType("JWT")
	if kid != "" {
		opts = opts.WithHeader("kid", kid)
	}

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.EdDSA, Key: privateKey}, opts)
	if err != nil {
		return "", fmt.Errorf("create JWT signer: %w", err)
	}

	vc := *c
	vc.Proof = nil

	claims := jwtClaims{
		Claims: jwt.Claims{
			Issuer:    c.Issuer,
			ID:        c.ID,
			NotBefore: jwt.NewNumericDate(c.IssuanceDate),
		},
		VC: &vc,
	}

	if c.Subject[0].ID != "" {
		claims.Subject = c.Subject[0].ID
	}

	if c.ExpirationDate != nil {
		claims.Expiry = jwt.NewNumericDate(*c.ExpirationDate)
	}

	token, err := jwt.Signed(signer).Claims(claims).CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("sign JWT: %w", err)
	}

	return JWT(token), nil
}

// KeyID returns the kid header of the token without verifying it.
func (t JWT) KeyID() (string, error) {
	parsed, err := jwt.ParseSigned(string(t))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidJWT, err.Error())
	}

	if len(parsed.Headers) == 0 {
		return "", fmt.Errorf("%w: no header", ErrInvalidJWT)
	}

	return parsed.Headers[0].KeyID, nil
}

// ParseJWT verifies the token with verifyKey and returns the credential it carries.
func ParseJWT(t JWT, verifyKey ed25519.PublicKey) (*Credential, error) {
	parsed, err := jwt.ParseSigned(string(t))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJWT, err.Error())
	}

	var claims jwtClaims

	if err := parsed.Claims(verifyKey, &claims); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJWT, err.Error())
	}

	if claims.VC == nil {
		return nil, fmt.Errorf("%w: missing vc claim", ErrInvalidJWT)
	}

	if err := claims.ValidateWithLeeway(jwt.Expected{Time: time.Now()}, 0); err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, fmt.Errorf("%w: %s", ErrExpired, err.Error())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidJWT, err.Error())
	}

	c := claims.VC

	if claims.Issuer != "" {
		c.Issuer = claims.Issuer
	}

	if claims.ID != "" {
		c.ID = claims.ID
	}

	if claims.NotBefore != nil {
		c.IssuanceDate = claims.NotBefore.Time().UTC()
	}

	if claims.Expiry != nil {
		exp := claims.Expiry.Time().UTC()
		c.ExpirationDate = &exp
	}

	if err := c.Check(); err != nil {
		return nil, err
	}

	return c, nil
}

// VerifyJWT verifies the token with the method of issuer named by its kid header and checks the
// issuer claim.
func VerifyJWT(t JWT, issuer *document.IotaDocument) (*Credential, error) {
	kid, err := t.KeyID()
	if err != nil {
		return nil, err
	}

	method, err := issuer.ResolveMethod(kid)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJWT, err.Error())
	}

	public, err := method.Data.Decode()
	if err != nil {
		return nil, err
	}

	c, err := ParseJWT(t, public)
	if err != nil {
		return nil, err
	}

	if c.Issuer != issuer.ID().String() {
		return nil, fmt.Errorf("%w: %s is not %s", ErrIssuerMismatch, issuer.ID(), c.Issuer)
	}

	return c, nil
}
