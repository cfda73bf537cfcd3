package dto

import "github.com/EternisAI/panoptes/internal/credentials"

type PutCredentialsRequest struct {
	AuthHeader  string `json:"auth_header" binding:"required"`
	PartnerID   string `json:"partner_id" binding:"required"`
	SSOEndpoint string `json:"sso_endpoint" binding:"omitempty,url"`
	APIBase     string `json:"api_base" binding:"omitempty,url"`
	ReportsBase string `json:"reports_base" binding:"omitempty,url"`
	Verify      bool   `json:"verify"`
}

type CredentialsResponse struct {
	credentials.Status
	Verified bool `json:"verified,omitempty"`
}
