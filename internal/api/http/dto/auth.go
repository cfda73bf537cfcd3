package dto

import "time"

type IssueTokenResponse struct {
	PrincipalID string    `json:"principal_id"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
}
