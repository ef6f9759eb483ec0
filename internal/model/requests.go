package model

// API request payloads for the contract surface. Binding tags mirror the
// contract's own validation; the contract remains the source of truth.

type LoginRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type DeployContractRequest struct {
	ContractType string `json:"contract_type" binding:"required"`
}

type AssignRoleRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

type AssignPatientRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	PatientID string `json:"patient_id" binding:"required"`
	Reason    string `json:"reason"`
}

type RequestAccessRequest struct {
	PatientID         string `json:"patient_id" binding:"required"`
	DataType          string `json:"data_type" binding:"required"`
	Justification     string `json:"justification"`
	SessionDuration   int    `json:"session_duration" binding:"min=0"`
	TwoFactorVerified bool   `json:"two_factor_verified"`
}

type RevokeAccessRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
	Reason      string `json:"reason"`
}

type SetConsentRequest struct {
	PatientID       string   `json:"patient_id" binding:"required"`
	DataTypes       []string `json:"data_types" binding:"required,min=1"`
	AuthorizedRoles []string `json:"authorized_roles" binding:"required,min=1"`
	ExpiryDate      string   `json:"expiry_date"`
}

type AuditLogRequest struct {
	PatientID string `form:"patient_id"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}
