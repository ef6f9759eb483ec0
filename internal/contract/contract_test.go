package contract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medledger/chain-api/internal/model"
	"github.com/medledger/chain-api/pkg/errors"
)

const (
	admin   = "ADMIN"
	doctor  = "USER_1"
	patient = "PATIENT_1"
)

func newTestContract(t *testing.T) *AccessContract {
	t.Helper()
	return NewAccessContract("CONTRACT_TEST_0", admin, nil, nil, nil)
}

func execute(t *testing.T, c *AccessContract, caller string, op Operation) *ExecutionResult {
	t.Helper()
	result, err := c.Execute(context.Background(), caller, op)
	require.NoError(t, err, "operation %s by %s", op.OpName(), caller)
	return result
}

func executeErr(t *testing.T, c *AccessContract, caller string, op Operation) error {
	t.Helper()
	_, err := c.Execute(context.Background(), caller, op)
	require.Error(t, err, "operation %s by %s should fail", op.OpName(), caller)
	return err
}

// setupDoctorWithConsent walks the canonical grant path: admin assigns the
// Doctor role and a patient, the patient consents to lab_results for Doctors.
func setupDoctorWithConsent(t *testing.T, c *AccessContract) {
	t.Helper()
	execute(t, c, admin, AssignRoleOp{UserID: doctor, Role: model.RoleDoctor})
	execute(t, c, admin, AssignPatientOp{UserID: doctor, PatientID: patient, Reason: "primary care"})
	execute(t, c, patient, SetConsentOp{
		PatientID:       patient,
		DataTypes:       []string{"lab_results"},
		AuthorizedRoles: []model.Role{model.RoleDoctor},
	})
}

func TestAccessGrantScenario(t *testing.T) {
	c := newTestContract(t)
	setupDoctorWithConsent(t, c)

	result := execute(t, c, doctor, RequestAccessOp{
		PatientID:       patient,
		DataType:        "lab_results",
		Justification:   "routine",
		SessionDuration: 3600,
	})

	grant, ok := result.Result.(*model.AccessGrant)
	require.True(t, ok)
	assert.True(t, grant.AccessGranted)
	assert.NotEmpty(t, grant.AccessToken)
	assert.Equal(t, patient, grant.PatientID)
	assert.Contains(t, grant.Permissions, "prescribe")

	// Same call for a data type outside the consent must fail on consent.
	err := executeErr(t, c, doctor, RequestAccessOp{
		PatientID:       patient,
		DataType:        "medical_images",
		Justification:   "routine",
		SessionDuration: 3600,
	})
	assert.True(t, errors.HasCode(err, errors.ErrConsentDenied))
}

func TestAssignRoleAntiSpoofing(t *testing.T) {
	c := newTestContract(t)

	// The operation carries no assigned-by parameter at all; the stored
	// assigner must be the authenticated caller.
	execute(t, c, admin, AssignRoleOp{UserID: doctor, Role: model.RoleDoctor})

	assignment, err := c.RoleAssignment(doctor)
	require.NoError(t, err)
	assert.Equal(t, admin, assignment.AssignedBy)
	assert.Equal(t, model.RoleDoctor, assignment.Role)
	assert.Equal(t, "active", assignment.Status)
}

func TestAssignRoleRequiresAdmin(t *testing.T) {
	c := newTestContract(t)
	err := executeErr(t, c, "MALLORY", AssignRoleOp{UserID: doctor, Role: model.RoleDoctor})
	assert.True(t, errors.HasCode(err, errors.ErrUnauthorized))
}

func TestAssignRoleRejectsUnknownRole(t *testing.T) {
	c := newTestContract(t)
	err := executeErr(t, c, admin, AssignRoleOp{UserID: doctor, Role: "Janitor"})
	assert.True(t, errors.HasCode(err, errors.ErrInvalidRole))
}

func TestAssignPatientChecks(t *testing.T) {
	c := newTestContract(t)

	// No role assigned yet.
	err := executeErr(t, c, admin, AssignPatientOp{UserID: doctor, PatientID: patient})
	assert.True(t, errors.HasCode(err, errors.ErrRoleNotAssigned))

	// Researchers are not patient-facing.
	execute(t, c, admin, AssignRoleOp{UserID: "RES_1", Role: model.RoleResearcher})
	err = executeErr(t, c, admin, AssignPatientOp{UserID: "RES_1", PatientID: patient})
	assert.True(t, errors.HasCode(err, errors.ErrRoleNotAssignable))

	// Non-admin caller.
	execute(t, c, admin, AssignRoleOp{UserID: doctor, Role: model.RoleDoctor})
	err = executeErr(t, c, doctor, AssignPatientOp{UserID: doctor, PatientID: patient})
	assert.True(t, errors.HasCode(err, errors.ErrUnauthorized))
}

func TestAssignPatientIdempotent(t *testing.T) {
	c := newTestContract(t)
	execute(t, c, admin, AssignRoleOp{UserID: doctor, Role: model.RoleDoctor})
	execute(t, c, admin, AssignPatientOp{UserID: doctor, PatientID: patient})
	execute(t, c, admin, AssignPatientOp{UserID: doctor, PatientID: patient})

	assert.Equal(t, []string{patient}, c.patientAssignments[doctor])
}

func TestRequestAccessDenialReasons(t *testing.T) {
	c := newTestContract(t)
	setupDoctorWithConsent(t, c)

	tests := []struct {
		name   string
		caller string
		op     RequestAccessOp
		code   errors.ErrorCode
	}{
		{
			name:   "no role assigned",
			caller: "STRANGER",
			op:     RequestAccessOp{PatientID: patient, DataType: "lab_results"},
			code:   errors.ErrRoleNotAssigned,
		},
		{
			name:   "session too long",
			caller: doctor,
			op:     RequestAccessOp{PatientID: patient, DataType: "lab_results", Justification: "x", SessionDuration: maxSessionDuration + 1},
			code:   errors.ErrSessionTooLong,
		},
		{
			name:   "missing justification",
			caller: doctor,
			op:     RequestAccessOp{PatientID: patient, DataType: "lab_results", Justification: "   "},
			code:   errors.ErrJustificationRequired,
		},
		{
			name:   "patient out of scope",
			caller: doctor,
			op:     RequestAccessOp{PatientID: "PATIENT_OTHER", DataType: "lab_results", Justification: "x"},
			code:   errors.ErrPatientScopeDenied,
		},
		{
			name:   "no consent for data type",
			caller: doctor,
			op:     RequestAccessOp{PatientID: patient, DataType: "medical_images", Justification: "x"},
			code:   errors.ErrConsentDenied,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := executeErr(t, c, tt.caller, tt.op)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestRequestAccessDataTypeDenied(t *testing.T) {
	c := newTestContract(t)
	execute(t, c, admin, AssignRoleOp{UserID: "NURSE_1", Role: model.RoleNurse})
	execute(t, c, admin, AssignPatientOp{UserID: "NURSE_1", PatientID: patient})

	// Nurses never see billing data regardless of consent.
	err := executeErr(t, c, "NURSE_1", RequestAccessOp{
		PatientID:     patient,
		DataType:      "billing",
		Justification: "x",
	})
	assert.True(t, errors.HasCode(err, errors.ErrDataTypeDenied))
}

func TestRequestAccessTwoFactor(t *testing.T) {
	c := newTestContract(t)
	execute(t, c, admin, AssignRoleOp{UserID: "INS_1", Role: model.RoleInsuranceProvider})
	execute(t, c, admin, AssignPatientOp{UserID: "INS_1", PatientID: patient})
	execute(t, c, patient, SetConsentOp{
		PatientID:       patient,
		DataTypes:       []string{"billing"},
		AuthorizedRoles: []model.Role{model.RoleInsuranceProvider},
	})

	err := executeErr(t, c, "INS_1", RequestAccessOp{PatientID: patient, DataType: "billing"})
	assert.True(t, errors.HasCode(err, errors.ErrTwoFactorRequired))

	execute(t, c, "INS_1", RequestAccessOp{PatientID: patient, DataType: "billing", TwoFactorVerified: true})
}

func TestRequestAccessSelfOnlyScope(t *testing.T) {
	c := newTestContract(t)
	execute(t, c, admin, AssignRoleOp{UserID: patient, Role: model.RolePatient})
	execute(t, c, patient, SetConsentOp{
		PatientID:       patient,
		DataTypes:       []string{"own_records"},
		AuthorizedRoles: []model.Role{model.RolePatient},
	})

	execute(t, c, patient, RequestAccessOp{PatientID: patient, DataType: "own_records"})

	err := executeErr(t, c, patient, RequestAccessOp{PatientID: "PATIENT_2", DataType: "own_records"})
	assert.True(t, errors.HasCode(err, errors.ErrPatientScopeDenied))
}

func TestRequestAccessAnonymizedScope(t *testing.T) {
	c := newTestContract(t)
	execute(t, c, admin, AssignRoleOp{UserID: "RES_1", Role: model.RoleResearcher})
	execute(t, c, "ANON_42", SetConsentOp{
		PatientID:       "ANON_42",
		DataTypes:       []string{"anonymized_data"},
		AuthorizedRoles: []model.Role{model.RoleResearcher},
	})

	execute(t, c, "RES_1", RequestAccessOp{
		PatientID:         "ANON_42",
		DataType:          "anonymized_data",
		TwoFactorVerified: true,
	})

	err := executeErr(t, c, "RES_1", RequestAccessOp{
		PatientID:         patient,
		DataType:          "anonymized_data",
		TwoFactorVerified: true,
	})
	assert.True(t, errors.HasCode(err, errors.ErrPatientScopeDenied))
}

func TestConsentExpiry(t *testing.T) {
	c := newTestContract(t)
	execute(t, c, admin, AssignRoleOp{UserID: doctor, Role: model.RoleDoctor})
	execute(t, c, admin, AssignPatientOp{UserID: doctor, PatientID: patient})

	expired := time.Now().Add(-time.Hour)
	execute(t, c, patient, SetConsentOp{
		PatientID:       patient,
		DataTypes:       []string{"lab_results"},
		AuthorizedRoles: []model.Role{model.RoleDoctor},
		ExpiryDate:      &expired,
	})

	err := executeErr(t, c, doctor, RequestAccessOp{
		PatientID:     patient,
		DataType:      "lab_results",
		Justification: "routine",
	})
	assert.True(t, errors.HasCode(err, errors.ErrConsentDenied))
	assert.Contains(t, err.Error(), "expired")
}

func TestConsentReplacesNotMerges(t *testing.T) {
	c := newTestContract(t)
	setupDoctorWithConsent(t, c)

	// Replacing the consent with a different data type drops lab_results.
	execute(t, c, patient, SetConsentOp{
		PatientID:       patient,
		DataTypes:       []string{"vital_signs"},
		AuthorizedRoles: []model.Role{model.RoleDoctor},
	})

	err := executeErr(t, c, doctor, RequestAccessOp{
		PatientID:     patient,
		DataType:      "lab_results",
		Justification: "routine",
	})
	assert.True(t, errors.HasCode(err, errors.ErrConsentDenied))
}

func TestConsentAuthorization(t *testing.T) {
	c := newTestContract(t)

	// A third party can set consent for neither themself nor the patient.
	err := executeErr(t, c, "MALLORY", SetConsentOp{
		PatientID:       patient,
		DataTypes:       []string{"lab_results"},
		AuthorizedRoles: []model.Role{model.RoleDoctor},
	})
	assert.True(t, errors.HasCode(err, errors.ErrUnauthorized))

	// Admin may set consent on the patient's behalf.
	execute(t, c, admin, SetConsentOp{
		PatientID:       patient,
		DataTypes:       []string{"lab_results"},
		AuthorizedRoles: []model.Role{model.RoleDoctor},
	})
}

func TestTokenLifecycle(t *testing.T) {
	c := newTestContract(t)
	setupDoctorWithConsent(t, c)

	result := execute(t, c, doctor, RequestAccessOp{
		PatientID:     patient,
		DataType:      "lab_results",
		Justification: "routine",
	})
	grant := result.Result.(*model.AccessGrant)

	token, err := c.Token(grant.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.TokenStatusActive, token.Status)
	assert.Equal(t, doctor, token.UserID)

	// The holder revokes their own token.
	execute(t, c, doctor, RevokeAccessOp{AccessToken: grant.AccessToken, Reason: "done"})

	token, err = c.Token(grant.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.TokenStatusRevoked, token.Status)
	assert.Equal(t, doctor, token.RevokedBy)
	assert.Equal(t, "done", token.RevocationReason)

	// Revoked is terminal.
	errSecond := executeErr(t, c, doctor, RevokeAccessOp{AccessToken: grant.AccessToken})
	assert.True(t, errors.HasCode(errSecond, errors.ErrTokenNotActive))
}

func TestRevokeAuthorization(t *testing.T) {
	c := newTestContract(t)
	setupDoctorWithConsent(t, c)

	result := execute(t, c, doctor, RequestAccessOp{
		PatientID:     patient,
		DataType:      "lab_results",
		Justification: "routine",
	})
	grant := result.Result.(*model.AccessGrant)

	err := executeErr(t, c, "MALLORY", RevokeAccessOp{AccessToken: grant.AccessToken})
	assert.True(t, errors.HasCode(err, errors.ErrUnauthorized))

	err = executeErr(t, c, admin, RevokeAccessOp{AccessToken: "no-such-token"})
	assert.True(t, errors.HasCode(err, errors.ErrTokenNotFound))

	// Admin can revoke someone else's token.
	execute(t, c, admin, RevokeAccessOp{AccessToken: grant.AccessToken, Reason: "policy"})
}

func TestExpireTokens(t *testing.T) {
	c := newTestContract(t)
	setupDoctorWithConsent(t, c)

	result := execute(t, c, doctor, RequestAccessOp{
		PatientID:       patient,
		DataType:        "lab_results",
		Justification:   "routine",
		SessionDuration: 60,
	})
	grant := result.Result.(*model.AccessGrant)

	assert.Zero(t, c.ExpireTokens(time.Now()))
	assert.Equal(t, 1, c.ExpireTokens(time.Now().Add(2*time.Minute)))

	token, err := c.Token(grant.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.TokenStatusExpired, token.Status)

	// Expired tokens cannot be revoked.
	errRevoke := executeErr(t, c, doctor, RevokeAccessOp{AccessToken: grant.AccessToken})
	assert.True(t, errors.HasCode(errRevoke, errors.ErrTokenNotActive))
}

func TestAuditLogAccessAndFilters(t *testing.T) {
	c := newTestContract(t)
	setupDoctorWithConsent(t, c)
	execute(t, c, doctor, RequestAccessOp{
		PatientID:     patient,
		DataType:      "lab_results",
		Justification: "routine",
	})

	err := executeErr(t, c, doctor, AuditLogOp{})
	assert.True(t, errors.HasCode(err, errors.ErrUnauthorized))

	result := execute(t, c, admin, AuditLogOp{})
	report := result.Result.(*model.AuditReport)
	assert.Equal(t, admin, report.GeneratedBy)
	// role_assigned, patient_assigned, consent_granted, access_granted,
	// plus the denied audit probe above.
	assert.Equal(t, 5, report.TotalEntries)

	filtered := execute(t, c, admin, AuditLogOp{Filter: model.AuditFilter{PatientID: patient}})
	filteredReport := filtered.Result.(*model.AuditReport)
	for _, entry := range filteredReport.Entries {
		assert.Equal(t, patient, entry.PatientID)
	}
	assert.Less(t, filteredReport.TotalEntries, report.TotalEntries)

	future := time.Now().Add(time.Hour)
	empty := execute(t, c, admin, AuditLogOp{Filter: model.AuditFilter{StartDate: &future}})
	assert.Zero(t, empty.Result.(*model.AuditReport).TotalEntries)
}

func TestEveryMutationProducesOneAuditEvent(t *testing.T) {
	c := newTestContract(t)

	execute(t, c, admin, AssignRoleOp{UserID: doctor, Role: model.RoleDoctor})
	assert.Len(t, c.auditLog, 1)

	executeErr(t, c, "MALLORY", AssignRoleOp{UserID: "X", Role: model.RoleDoctor})
	assert.Len(t, c.auditLog, 2)
	assert.Equal(t, model.AuditActionAccessDenied, c.auditLog[1].Action)

	execute(t, c, admin, AssignPatientOp{UserID: doctor, PatientID: patient})
	assert.Len(t, c.auditLog, 3)
}

func TestGasAccounting(t *testing.T) {
	c := newTestContract(t)

	result := execute(t, c, admin, AssignRoleOp{UserID: doctor, Role: model.RoleDoctor})
	assert.NotEqual(t, uuid4Zero, result.ExecutionID.String())

	_, err := c.Execute(context.Background(), "MALLORY", AssignRoleOp{UserID: "X", Role: model.RoleDoctor})
	require.Error(t, err)

	history := c.ExecutionHistory(0)
	require.Len(t, history, 2)
	assert.Equal(t, model.ExecutionStatusSuccess, history[0].Status)
	assert.Equal(t, model.ExecutionStatusFailed, history[1].Status)
	assert.Equal(t, uint64(baseGas), history[1].GasUsed)
	assert.NotEmpty(t, history[1].Error)
}

const uuid4Zero = "00000000-0000-0000-0000-000000000000"

func TestTrimAuditLog(t *testing.T) {
	c := newTestContract(t)
	execute(t, c, admin, AssignRoleOp{UserID: doctor, Role: model.RoleDoctor})

	assert.Zero(t, c.TrimAuditLog(time.Now().Add(-time.Hour)))
	assert.Equal(t, 1, c.TrimAuditLog(time.Now().Add(time.Hour)))
	assert.Empty(t, c.auditLog)
}

func TestUnknownOperation(t *testing.T) {
	c := newTestContract(t)
	_, err := c.Execute(context.Background(), admin, unknownOp{})
	assert.True(t, errors.HasCode(err, errors.ErrUnknownOperation))
}

type unknownOp struct{}

func (unknownOp) OpName() string { return "mint_tokens" }
