// Package gate is the identity gate: it turns a caller-supplied bearer token
// into a resolved player identity, or rejects the connection before any game
// handler runs.
package gate

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/edupulse/arena/internal/domain"
	"github.com/edupulse/arena/internal/errors"
)

// Directory resolves an authenticated subject to the player profile held by
// the platform's directory service.
type Directory interface {
	Lookup(ctx context.Context, userID string) (domain.Identity, error)
}

type Config struct {
	// Secret is the HMAC key shared with the platform's token issuer.
	Secret []byte

	Directory Directory
}

type Gate struct {
	secret []byte
	dir    Directory
}

func New(c Config) *Gate {
	return &Gate{
		secret: c.Secret,
		dir:    c.Directory,
	}
}

// Authenticate verifies the signed token and resolves its subject through the
// directory. Every failure maps to CodeUnauthenticated so the transport can
// refuse the connection uniformly.
func (g *Gate) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("missing bearer token"))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.Identity{}, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid token"),
			errors.WithCause(err))
	}

	if claims.Subject == "" {
		return domain.Identity{}, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("token has no subject"))
	}

	id, err := g.dir.Lookup(ctx, claims.Subject)
	if err != nil {
		return domain.Identity{}, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("unresolvable identity: user=%s", claims.Subject),
			errors.WithCause(err))
	}

	return id, nil
}
