// Package token issues and verifies signed invite tokens. Verification
// checks the signature and expiry only; whether the referenced room is
// still open is the caller's concern, because token TTL and room TTL
// have independent lifetimes.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/verichat/go-verichat/internal/types"
)

var ErrInvalidToken = errors.New("invalid or expired token")

const (
	roomIdClaim = "room-id"
	roleClaim   = "role"
	expClaim    = "exp"
)

// Claims are the verified contents of an invite token.
type Claims struct {
	RoomId string
	Role   types.Role
}

type Codec struct {
	signingKey []byte
}

func NewCodec(signingKey []byte) *Codec {
	return &Codec{signingKey: signingKey}
}

func (c *Codec) Issue(roomId string, role types.Role, ttl time.Duration) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		roomIdClaim: roomId,
		roleClaim:   string(role),
		expClaim:    time.Now().Add(ttl).Unix(),
	})

	return tok.SignedString(c.signingKey)
}

func (c *Codec) Verify(tokenString string) (Claims, error) {
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.signingKey, nil
	})
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}

	mapClaims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	roomId, ok := mapClaims[roomIdClaim].(string)
	if !ok || roomId == "" {
		return Claims{}, ErrInvalidToken
	}

	roleStr, ok := mapClaims[roleClaim].(string)
	if !ok || !types.Role(roleStr).Valid() {
		return Claims{}, ErrInvalidToken
	}

	return Claims{RoomId: roomId, Role: types.Role(roleStr)}, nil
}
