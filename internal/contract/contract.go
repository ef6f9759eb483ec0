package contract

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medledger/chain-api/internal/model"
	"github.com/medledger/chain-api/pkg/canonical"
	"github.com/medledger/chain-api/pkg/errors"
	"github.com/medledger/chain-api/pkg/logger"
	"github.com/medledger/chain-api/pkg/messaging"
	"github.com/medledger/chain-api/pkg/metrics"
)

// AuditChannel is the broker channel audit events are published on.
const AuditChannel = "contract.audit"

// AccessContract is the healthcare access-control state machine. All state
// mutation goes through Execute; the mutex serializes callers.
type AccessContract struct {
	id        string
	creator   string
	createdAt time.Time

	mu                 sync.Mutex
	roles              map[model.Role]model.RoleDefinition
	assignments        map[string]*model.RoleAssignment
	patientAssignments map[string][]string
	consents           map[string]*model.ConsentRecord
	tokens             map[string]*model.AccessToken
	auditLog           []model.AuditEvent
	execLog            []model.ExecutionRecord
	gasUsed            uint64

	now     func() time.Time
	log     *logger.Logger
	metrics *metrics.Metrics
	broker  messaging.Broker
}

// NewAccessContract deploys a contract instance. The creator is the admin
// identity for every admin-gated operation.
func NewAccessContract(id, creator string, log *logger.Logger, m *metrics.Metrics, broker messaging.Broker) *AccessContract {
	if broker == nil {
		broker = messaging.NewNoopBroker()
	}
	return &AccessContract{
		id:                 id,
		creator:            creator,
		createdAt:          time.Now(),
		roles:              defaultRoles(),
		assignments:        make(map[string]*model.RoleAssignment),
		patientAssignments: make(map[string][]string),
		consents:           make(map[string]*model.ConsentRecord),
		tokens:             make(map[string]*model.AccessToken),
		now:                time.Now,
		log:                log,
		metrics:            m,
		broker:             broker,
	}
}

func (c *AccessContract) ID() string      { return c.id }
func (c *AccessContract) Creator() string { return c.creator }

func (c *AccessContract) isAdmin(userID string) bool {
	return userID == c.creator
}

// assignRole upserts the user's role assignment. The stored assigned_by is
// always the authenticated caller, never a client-supplied identity.
func (c *AccessContract) assignRole(ctx context.Context, caller, userID string, role model.Role) (*model.RoleAssignment, error) {
	if !c.isAdmin(caller) {
		return nil, c.deny(ctx, caller, userID, "role_assignment",
			errors.Unauthorized("only admins can assign roles"))
	}
	if _, ok := c.roles[role]; !ok {
		return nil, c.deny(ctx, caller, userID, "role_assignment",
			errors.Newf(errors.ErrInvalidRole, "invalid role: %s", role))
	}

	assignment := &model.RoleAssignment{
		Role:       role,
		AssignedBy: caller,
		AssignedAt: c.now(),
		Status:     "active",
	}
	c.assignments[userID] = assignment

	c.logEvent(ctx, caller, userID, "role_assignment", model.AuditActionRoleAssigned,
		fmt.Sprintf("assigned role: %s", role))
	return assignment, nil
}

// assignPatient adds patientID to the user's assignment set. Re-adding an
// already assigned patient is a no-op, not an error.
func (c *AccessContract) assignPatient(ctx context.Context, caller, userID, patientID, reason string) (map[string]interface{}, error) {
	if !c.isAdmin(caller) {
		return nil, c.deny(ctx, caller, patientID, "patient_assignment",
			errors.Unauthorized("only admins can assign patients"))
	}
	assignment, ok := c.assignments[userID]
	if !ok {
		return nil, c.deny(ctx, caller, patientID, "patient_assignment",
			errors.New(errors.ErrRoleNotAssigned, "user not found or not assigned a role"))
	}
	if !patientFacingRoles[assignment.Role] {
		return nil, c.deny(ctx, caller, patientID, "patient_assignment",
			errors.Newf(errors.ErrRoleNotAssignable, "role %q cannot be assigned patients", assignment.Role))
	}

	if !contains(c.patientAssignments[userID], patientID) {
		c.patientAssignments[userID] = append(c.patientAssignments[userID], patientID)
	}

	c.logEvent(ctx, caller, patientID, "patient_assignment", model.AuditActionPatientAssigned,
		fmt.Sprintf("assigned to %s (%s): %s", userID, assignment.Role, reason))

	return map[string]interface{}{
		"user_id":     userID,
		"patient_id":  patientID,
		"assigned_by": caller,
		"assigned_at": c.now(),
		"reason":      reason,
	}, nil
}

// requestAccess runs the ordered check sequence, short-circuiting on the
// first failure. Every denial carries its own error code and is logged with
// the specific reason.
func (c *AccessContract) requestAccess(ctx context.Context, caller string, op RequestAccessOp) (*model.AccessGrant, error) {
	duration := op.SessionDuration
	if duration <= 0 {
		duration = defaultSessionDuration
	}

	// 1. Caller must hold a role.
	assignment, ok := c.assignments[caller]
	if !ok {
		return nil, c.deny(ctx, caller, op.PatientID, op.DataType,
			errors.New(errors.ErrRoleNotAssigned, "user not found or not assigned a role"))
	}
	role := assignment.Role
	definition := c.roles[role]

	// 2. Session duration cap.
	if duration > maxSessionDuration {
		return nil, c.deny(ctx, caller, op.PatientID, op.DataType,
			errors.Newf(errors.ErrSessionTooLong, "session duration %ds exceeds maximum %ds", duration, maxSessionDuration))
	}

	// 3. Justification, for roles that require it.
	if justificationRequired[role] && strings.TrimSpace(op.Justification) == "" {
		return nil, c.deny(ctx, caller, op.PatientID, op.DataType,
			errors.Newf(errors.ErrJustificationRequired, "role %q requires justification for data access", role))
	}

	// 4. Two-factor, for roles that require it.
	if twoFactorRequired[role] && !op.TwoFactorVerified {
		return nil, c.deny(ctx, caller, op.PatientID, op.DataType,
			errors.Newf(errors.ErrTwoFactorRequired, "role %q requires two-factor authentication", role))
	}

	// 5. Data type must be permitted for the role.
	if !dataTypeAllowed(definition, op.DataType) {
		return nil, c.deny(ctx, caller, op.PatientID, op.DataType,
			errors.Newf(errors.ErrDataTypeDenied, "role %q not authorized for data type %q", role, op.DataType))
	}

	// 6. Patient must fall inside the role's access scope.
	if !c.patientInScope(caller, op.PatientID, definition.PatientAccess) {
		return nil, c.deny(ctx, caller, op.PatientID, op.DataType,
			errors.Newf(errors.ErrPatientScopeDenied, "no permission to access patient %s", op.PatientID))
	}

	// 7. Patient consent must cover the data type and the caller's role.
	if reason := c.consentDenialReason(op.PatientID, role, op.DataType); reason != "" {
		return nil, c.deny(ctx, caller, op.PatientID, op.DataType,
			errors.Newf(errors.ErrConsentDenied, "patient consent required: %s", reason))
	}

	issuedAt := c.now()
	expiresAt := issuedAt.Add(time.Duration(duration) * time.Second)
	token, err := generateAccessToken(caller, op.PatientID, op.DataType, issuedAt, expiresAt)
	if err != nil {
		return nil, errors.Internal(err)
	}

	c.tokens[token] = &model.AccessToken{
		Token:         token,
		UserID:        caller,
		PatientID:     op.PatientID,
		DataType:      op.DataType,
		IssuedAt:      issuedAt,
		ExpiresAt:     expiresAt,
		Status:        model.TokenStatusActive,
		Justification: op.Justification,
	}
	now := c.now()
	assignment.LastAccess = &now
	if c.metrics != nil {
		c.metrics.ActiveTokens.Inc()
	}

	c.logEvent(ctx, caller, op.PatientID, op.DataType, model.AuditActionAccessGranted, op.Justification)

	return &model.AccessGrant{
		AccessGranted:   true,
		AccessToken:     token,
		PatientID:       op.PatientID,
		DataType:        op.DataType,
		ExpiresAt:       expiresAt,
		SessionDuration: duration,
		Permissions:     definition.Permissions,
	}, nil
}

// revokeAccess marks an active token revoked. Only admins and the token's
// original holder may revoke; revoked is terminal.
func (c *AccessContract) revokeAccess(ctx context.Context, caller, token, reason string) (*model.RevocationResult, error) {
	info, ok := c.tokens[token]
	if !ok {
		return nil, c.deny(ctx, caller, "", "token_revocation",
			errors.New(errors.ErrTokenNotFound, "access token not found"))
	}
	if !c.isAdmin(caller) && info.UserID != caller {
		return nil, c.deny(ctx, caller, info.PatientID, info.DataType,
			errors.Unauthorized("cannot revoke this access token"))
	}
	if info.Status != model.TokenStatusActive {
		return nil, c.deny(ctx, caller, info.PatientID, info.DataType,
			errors.Newf(errors.ErrTokenNotActive, "token is already %s", info.Status))
	}

	revokedAt := c.now()
	info.Status = model.TokenStatusRevoked
	info.RevokedBy = caller
	info.RevokedAt = &revokedAt
	info.RevocationReason = reason
	if c.metrics != nil {
		c.metrics.ActiveTokens.Dec()
	}

	c.logEvent(ctx, caller, info.PatientID, info.DataType, model.AuditActionAccessRevoked, reason)

	return &model.RevocationResult{
		RevocationID: uuid.New(),
		AccessToken:  token,
		RevokedBy:    caller,
		RevokedAt:    revokedAt,
		Reason:       reason,
	}, nil
}

// setPatientConsent replaces the patient's single active consent record.
func (c *AccessContract) setPatientConsent(ctx context.Context, caller string, op SetConsentOp) (*model.ConsentRecord, error) {
	if caller != op.PatientID && !c.isAdmin(caller) {
		return nil, c.deny(ctx, caller, op.PatientID, "consent",
			errors.Unauthorized("only patient or admin can set consent"))
	}

	record := &model.ConsentRecord{
		ConsentID:       uuid.New(),
		PatientID:       op.PatientID,
		DataTypes:       op.DataTypes,
		AuthorizedRoles: op.AuthorizedRoles,
		GrantedAt:       c.now(),
		ExpiryDate:      op.ExpiryDate,
		GrantedBy:       caller,
		Status:          "active",
	}
	c.consents[op.PatientID] = record

	c.logEvent(ctx, caller, op.PatientID, strings.Join(op.DataTypes, ","), model.AuditActionConsentGranted,
		fmt.Sprintf("authorized roles: %s", joinRoles(op.AuthorizedRoles)))
	return record, nil
}

// auditReport returns the audit entries matching every supplied filter.
// Admin only: the full trail is compliance-sensitive.
func (c *AccessContract) auditReport(ctx context.Context, caller string, filter model.AuditFilter) (*model.AuditReport, error) {
	if !c.isAdmin(caller) {
		return nil, c.deny(ctx, caller, filter.PatientID, "audit_log",
			errors.Unauthorized("insufficient permissions for audit log access"))
	}

	entries := make([]model.AuditEvent, 0)
	for _, entry := range c.auditLog {
		if filter.PatientID != "" && entry.PatientID != filter.PatientID {
			continue
		}
		if filter.StartDate != nil && entry.Timestamp.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && entry.Timestamp.After(*filter.EndDate) {
			continue
		}
		entries = append(entries, entry)
	}

	return &model.AuditReport{
		Entries:      entries,
		TotalEntries: len(entries),
		GeneratedBy:  caller,
		GeneratedAt:  c.now(),
		Filters:      filter,
	}, nil
}

// ExpireTokens sweeps active tokens whose expiry has passed. Expiry is
// otherwise implicit (compared at use), so this is bookkeeping for
// dashboards and the retention worker.
func (c *AccessContract) ExpireTokens(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := 0
	for _, token := range c.tokens {
		if token.Status == model.TokenStatusActive && token.ExpiresAt.Before(now) {
			token.Status = model.TokenStatusExpired
			expired++
		}
	}
	if expired > 0 && c.metrics != nil {
		c.metrics.TokensExpired.Add(float64(expired))
		c.metrics.ActiveTokens.Sub(float64(expired))
	}
	return expired
}

// TrimAuditLog drops audit entries older than cutoff and returns how many
// were removed.
func (c *AccessContract) TrimAuditLog(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.auditLog[:0]
	for _, entry := range c.auditLog {
		if !entry.Timestamp.Before(cutoff) {
			kept = append(kept, entry)
		}
	}
	removed := len(c.auditLog) - len(kept)
	c.auditLog = kept
	return removed
}

// Token returns a copy of the stored token record.
func (c *AccessContract) Token(token string) (model.AccessToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.tokens[token]
	if !ok {
		return model.AccessToken{}, errors.New(errors.ErrTokenNotFound, "access token not found")
	}
	return *info, nil
}

// StateSummary projects contract state as counts only. Raw tokens and
// internal maps never leave the contract.
func (c *AccessContract) StateSummary() model.ContractSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	active := 0
	for _, t := range c.tokens {
		if t.Status == model.TokenStatusActive {
			active++
		}
	}
	return model.ContractSummary{
		ContractID:      c.id,
		Creator:         c.creator,
		CreatedAt:       c.createdAt,
		TotalExecutions: len(c.execLog),
		TotalGasUsed:    c.gasUsed,
		RolesDefined:    len(c.roles),
		UsersAssigned:   len(c.assignments),
		ConsentRecords:  len(c.consents),
		ActiveTokens:    active,
		AuditEntries:    len(c.auditLog),
	}
}

// ExecutionHistory returns the most recent execution records, oldest first.
func (c *AccessContract) ExecutionHistory(limit int) []model.ExecutionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limit <= 0 || limit > len(c.execLog) {
		limit = len(c.execLog)
	}
	out := make([]model.ExecutionRecord, limit)
	copy(out, c.execLog[len(c.execLog)-limit:])
	return out
}

// RoleAssignment returns a copy of the user's role assignment.
func (c *AccessContract) RoleAssignment(userID string) (model.RoleAssignment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	assignment, ok := c.assignments[userID]
	if !ok {
		return model.RoleAssignment{}, errors.New(errors.ErrRoleNotAssigned, "user not found or not assigned a role")
	}
	return *assignment, nil
}

// checks

func dataTypeAllowed(def model.RoleDefinition, dataType string) bool {
	for _, dt := range def.DataTypes {
		if dt == "all" || dt == dataType {
			return true
		}
	}
	return false
}

func (c *AccessContract) patientInScope(userID, patientID string, scope model.PatientScope) bool {
	switch scope {
	case model.ScopeAll:
		return true
	case model.ScopeSelfOnly:
		return userID == patientID
	case model.ScopeAnonymized:
		return strings.HasPrefix(patientID, anonymizedPrefix)
	case model.ScopeAssigned:
		return contains(c.patientAssignments[userID], patientID)
	default:
		return false
	}
}

// consentDenialReason returns "" when the patient's active consent covers
// the data type and the caller's role, the denial reason otherwise.
func (c *AccessContract) consentDenialReason(patientID string, role model.Role, dataType string) string {
	record, ok := c.consents[patientID]
	if !ok {
		return "no consent record found"
	}
	if record.Status != "active" {
		return "consent not active"
	}
	if !contains(record.DataTypes, dataType) {
		return "data type not covered by consent"
	}
	authorized := false
	for _, r := range record.AuthorizedRoles {
		if r == role {
			authorized = true
			break
		}
	}
	if !authorized {
		return "user role not authorized by consent"
	}
	if record.ExpiryDate != nil && c.now().After(*record.ExpiryDate) {
		return "consent has expired"
	}
	return ""
}

// audit

// deny logs the failed attempt and passes the error through.
func (c *AccessContract) deny(ctx context.Context, userID, patientID, dataType string, err error) error {
	c.logEvent(ctx, userID, patientID, dataType, model.AuditActionAccessDenied, err.Error())
	return err
}

func (c *AccessContract) logEvent(ctx context.Context, userID, patientID, dataType, action, detail string) {
	event := model.AuditEvent{
		EventID:   uuid.New(),
		Timestamp: c.now(),
		UserID:    userID,
		PatientID: patientID,
		DataType:  dataType,
		Action:    action,
		Detail:    detail,
	}
	c.auditLog = append(c.auditLog, event)

	if c.metrics != nil {
		c.metrics.AuditEvents.WithLabelValues(action).Inc()
	}
	if err := c.broker.Publish(ctx, AuditChannel, messaging.Message{Type: action, Payload: event}); err != nil && c.log != nil {
		c.log.Warn("audit event publish failed", "error", err.Error(), "action", action)
	}
}

func generateAccessToken(userID, patientID, dataType string, issuedAt, expiresAt time.Time) (string, error) {
	return canonical.HashValue(map[string]interface{}{
		"user_id":    userID,
		"patient_id": patientID,
		"data_type":  dataType,
		"issued_at":  issuedAt.Format(time.RFC3339Nano),
		"expires_at": expiresAt.Format(time.RFC3339Nano),
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func joinRoles(roles []model.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ",")
}
