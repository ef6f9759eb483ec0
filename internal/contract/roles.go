package contract

import "github.com/medledger/chain-api/internal/model"

// Role definitions are fixed at deployment and never mutate afterwards.
func defaultRoles() map[model.Role]model.RoleDefinition {
	return map[model.Role]model.RoleDefinition{
		model.RoleDoctor: {
			Permissions:   []string{"read", "write", "update", "delete", "prescribe"},
			DataTypes:     []string{"all"},
			PatientAccess: model.ScopeAssigned,
			AuditLevel:    "detailed",
		},
		model.RoleNurse: {
			Permissions:   []string{"read", "write", "update"},
			DataTypes:     []string{"vital_signs", "nursing_notes", "medication_admin"},
			PatientAccess: model.ScopeAssigned,
			AuditLevel:    "detailed",
		},
		model.RoleLabTechnician: {
			Permissions:   []string{"read", "write"},
			DataTypes:     []string{"lab_results", "test_orders"},
			PatientAccess: model.ScopeAssigned,
			AuditLevel:    "standard",
		},
		model.RolePatient: {
			Permissions:   []string{"read"},
			DataTypes:     []string{"own_records"},
			PatientAccess: model.ScopeSelfOnly,
			AuditLevel:    "basic",
		},
		model.RoleInsuranceProvider: {
			Permissions:   []string{"read"},
			DataTypes:     []string{"billing", "claims", "diagnosis"},
			PatientAccess: model.ScopeAssigned,
			AuditLevel:    "detailed",
		},
		model.RoleResearcher: {
			Permissions:   []string{"read"},
			DataTypes:     []string{"anonymized_data"},
			PatientAccess: model.ScopeAnonymized,
			AuditLevel:    "research",
		},
	}
}

// Roles that may be assigned patients.
var patientFacingRoles = map[model.Role]bool{
	model.RoleDoctor:            true,
	model.RoleNurse:             true,
	model.RoleLabTechnician:     true,
	model.RoleInsuranceProvider: true,
}

// Compliance settings, fixed per deployment.
const (
	maxSessionDuration     = 8 * 3600 // seconds
	defaultSessionDuration = 3600
	anonymizedPrefix       = "ANON_"
)

var justificationRequired = map[model.Role]bool{
	model.RoleDoctor: true,
	model.RoleNurse:  true,
}

var twoFactorRequired = map[model.Role]bool{
	model.RoleInsuranceProvider: true,
	model.RoleResearcher:        true,
}
