// Package models holds the agent identity and login DTOs.
package models

import (
	"strings"
	"time"

	"policydesk/pkg/domain"
)

// Agent is the insurance agent operating the desk.
type Agent struct {
	ID       domain.AgentID `json:"id"`
	Username string         `json:"username"`
	Name     string         `json:"name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// Validate normalizes the username. Credential checks belong to the service.
func (r *LoginRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	return nil
}

type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	Agent       Agent     `json:"agent"`
}
