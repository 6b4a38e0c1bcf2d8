// Package jwtnode declares the JWT signing and verification nodes.
package jwtnode

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const serviceName = "jwt"

func Nodes() []domain.NodeDefinition {
	return []domain.NodeDefinition{
		{
			ID:       "jwt_sign",
			Name:     "Sign Token",
			Kind:     domain.NodeKind_Transform,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "secret", Label: "Signing Secret", Type: domain.ConfigFieldType_Secret, Required: true},
				{Key: "claims", Label: "Claims", Type: domain.ConfigFieldType_Map, Required: true},
				{Key: "expires_in_seconds", Label: "Expires In (seconds)", Type: domain.ConfigFieldType_Integer, Help: "Adds an exp claim relative to now"},
			},
			Execute: signToken,
		},
		{
			ID:       "jwt_verify",
			Name:     "Verify Token",
			Kind:     domain.NodeKind_Transform,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "secret", Label: "Signing Secret", Type: domain.ConfigFieldType_Secret, Required: true},
				{Key: "token", Label: "Token", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: verifyToken,
		},
		{
			ID:       "jwt_decode",
			Name:     "Decode Token",
			Kind:     domain.NodeKind_Transform,
			Category: serviceName,
			Config: []domain.ConfigField{
				{Key: "token", Label: "Token", Type: domain.ConfigFieldType_String, Required: true},
			},
			Execute: decodeToken,
		},
	}
}

type signParams struct {
	Secret           string         `json:"secret"`
	Claims           map[string]any `json:"claims"`
	ExpiresInSeconds int            `json:"expires_in_seconds,omitempty"`
}

func signToken(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := signParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	for key, value := range p.Claims {
		claims[key] = value
	}
	claims["iat"] = time.Now().Unix()
	if p.ExpiresInSeconds > 0 {
		claims["exp"] = time.Now().Add(time.Duration(p.ExpiresInSeconds) * time.Second).Unix()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(p.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return map[string]any{"token": signed}, nil
}

type verifyParams struct {
	Secret string `json:"secret"`
	Token  string `json:"token"`
}

func verifyToken(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := verifyParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	token, err := jwt.Parse(p.Token, func(token *jwt.Token) (any, error) {
		return []byte(p.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		// An invalid signature or expired token is a result, not a failure.
		return map[string]any{"valid": false, "error": err.Error()}, nil
	}

	claims, _ := token.Claims.(jwt.MapClaims)

	return map[string]any{
		"valid":  true,
		"claims": map[string]any(claims),
	}, nil
}

type decodeParams struct {
	Token string `json:"token"`
}

func decodeToken(ctx context.Context, in domain.ExecutionInput, ec *domain.ExecutionContext) (any, error) {
	p := decodeParams{}
	if err := in.BindConfig(&p); err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	token, _, err := jwt.NewParser().ParseUnverified(p.Token, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	return map[string]any{
		"header": token.Header,
		"claims": map[string]any(claims),
	}, nil
}
