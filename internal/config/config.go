package config

import (
	"encoding/base64"
	"fmt"
	"time"
)

const DefaultRoomTTL = 24 * time.Hour

type Config struct {
	ServerAddr     string
	DatabaseDSN    string
	SigningKey     []byte
	AllowedOrigins []string
	// InviteBaseURL is the frontend base URL invite links point at.
	InviteBaseURL string
	// RoomTTL is fixed at room creation and never extended.
	RoomTTL time.Duration
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, base64Secret, inviteBaseURL string, allowedOrigins []string, roomTTL time.Duration) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	if inviteBaseURL == "" {
		return nil, fmt.Errorf("invite base URL cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	if roomTTL <= 0 {
		roomTTL = DefaultRoomTTL
	}

	return &Config{
		ServerAddr:     serverAddr,
		DatabaseDSN:    databaseDSN,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		InviteBaseURL:  inviteBaseURL,
		RoomTTL:        roomTTL,
	}, nil
}
