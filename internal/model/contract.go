package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is one of the fixed healthcare roles defined at contract deployment.
type Role string

const (
	RoleDoctor            Role = "Doctor"
	RoleNurse             Role = "Nurse"
	RoleLabTechnician     Role = "Lab Technician"
	RolePatient           Role = "Patient"
	RoleInsuranceProvider Role = "Insurance Provider"
	RoleResearcher        Role = "Researcher"
)

// PatientScope is a role's patient-access scope tag.
type PatientScope string

const (
	ScopeAll        PatientScope = "all"
	ScopeSelfOnly   PatientScope = "self_only"
	ScopeAnonymized PatientScope = "anonymized_only"
	ScopeAssigned   PatientScope = "assigned"
)

// RoleDefinition is the immutable permission set attached to a role.
type RoleDefinition struct {
	Permissions   []string     `json:"permissions"`
	DataTypes     []string     `json:"data_types"`
	PatientAccess PatientScope `json:"patient_access"`
	AuditLevel    string       `json:"audit_level"`
}

// RoleAssignment records which role a user holds and who granted it.
// AssignedBy is always the authenticated caller of assignRole.
type RoleAssignment struct {
	Role       Role       `json:"role"`
	AssignedBy string     `json:"assigned_by"`
	AssignedAt time.Time  `json:"assigned_at"`
	Status     string     `json:"status"`
	LastAccess *time.Time `json:"last_access,omitempty"`
}

// ConsentRecord is a patient's single active consent statement. Setting
// consent replaces the previous record, it never merges.
type ConsentRecord struct {
	ConsentID       uuid.UUID  `json:"consent_id"`
	PatientID       string     `json:"patient_id"`
	DataTypes       []string   `json:"data_types"`
	AuthorizedRoles []Role     `json:"authorized_roles"`
	GrantedAt       time.Time  `json:"granted_at"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	GrantedBy       string     `json:"granted_by"`
	Status          string     `json:"status"`
}

// Token statuses. Active tokens become revoked (terminal) or expired.
const (
	TokenStatusActive  = "active"
	TokenStatusRevoked = "revoked"
	TokenStatusExpired = "expired"
)

// AccessToken is an issued, time-bounded access credential.
type AccessToken struct {
	Token            string     `json:"token"`
	UserID           string     `json:"user_id"`
	PatientID        string     `json:"patient_id"`
	DataType         string     `json:"data_type"`
	IssuedAt         time.Time  `json:"issued_at"`
	ExpiresAt        time.Time  `json:"expires_at"`
	Status           string     `json:"status"`
	Justification    string     `json:"justification,omitempty"`
	RevokedBy        string     `json:"revoked_by,omitempty"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	RevocationReason string     `json:"revocation_reason,omitempty"`
}

// Audit actions.
const (
	AuditActionRoleAssigned    = "role_assigned"
	AuditActionPatientAssigned = "patient_assigned"
	AuditActionAccessGranted   = "access_granted"
	AuditActionAccessDenied    = "access_denied"
	AuditActionAccessRevoked   = "access_revoked"
	AuditActionConsentGranted  = "consent_granted"
)

// AuditEvent is one append-only entry in the contract's audit trail. Every
// contract call, success or failure, appends exactly one.
type AuditEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	PatientID string    `json:"patient_id"`
	DataType  string    `json:"data_type"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
}

// AuditReport is the result of getAuditLog with filters applied.
type AuditReport struct {
	Entries      []AuditEvent `json:"audit_entries"`
	TotalEntries int          `json:"total_entries"`
	GeneratedBy  string       `json:"generated_by"`
	GeneratedAt  time.Time    `json:"generated_at"`
	Filters      AuditFilter  `json:"filters"`
}

// AuditFilter narrows getAuditLog output. Nil fields are unfiltered.
type AuditFilter struct {
	PatientID string     `json:"patient_id,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// Execution statuses.
const (
	ExecutionStatusSuccess = "success"
	ExecutionStatusFailed  = "failed"
)

// ExecutionRecord is the gas-accounting entry for one contract call.
type ExecutionRecord struct {
	ExecutionID uuid.UUID     `json:"execution_id"`
	Operation   string        `json:"operation"`
	Caller      string        `json:"caller"`
	Timestamp   time.Time     `json:"timestamp"`
	Status      string        `json:"status"`
	GasUsed     uint64        `json:"gas_used"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// AccessGrant is returned by a successful requestAccess.
type AccessGrant struct {
	AccessGranted   bool      `json:"access_granted"`
	AccessToken     string    `json:"access_token"`
	PatientID       string    `json:"patient_id"`
	DataType        string    `json:"data_type"`
	ExpiresAt       time.Time `json:"expires_at"`
	SessionDuration int       `json:"session_duration"`
	Permissions     []string  `json:"permissions"`
}

// RevocationResult is returned by a successful revokeAccess.
type RevocationResult struct {
	RevocationID uuid.UUID `json:"revocation_id"`
	AccessToken  string    `json:"access_token"`
	RevokedBy    string    `json:"revoked_by"`
	RevokedAt    time.Time `json:"revoked_at"`
	Reason       string    `json:"reason"`
}

// ContractSummary is the public projection of contract state. It carries
// counts only, never raw tokens or internal maps.
type ContractSummary struct {
	ContractID      string    `json:"contract_id"`
	Creator         string    `json:"creator"`
	CreatedAt       time.Time `json:"created_at"`
	TotalExecutions int       `json:"total_executions"`
	TotalGasUsed    uint64    `json:"total_gas_used"`
	RolesDefined    int       `json:"roles_defined"`
	UsersAssigned   int       `json:"users_assigned"`
	ConsentRecords  int       `json:"consent_records"`
	ActiveTokens    int       `json:"active_tokens"`
	AuditEntries    int       `json:"audit_entries"`
}

// DeploymentRecord is kept by the manager for every deployed contract.
type DeploymentRecord struct {
	ContractID   string    `json:"contract_id"`
	ContractType string    `json:"contract_type"`
	Creator      string    `json:"creator"`
	DeployedAt   time.Time `json:"deployed_at"`
}
