package contract

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medledger/chain-api/internal/model"
	"github.com/medledger/chain-api/pkg/canonical"
	"github.com/medledger/chain-api/pkg/errors"
)

// Gas charged to a failed execution regardless of how far it got.
const baseGas = 21000

// Operation is the closed set of contract calls. Dispatch is a type switch,
// so an operation the contract does not recognize is a typed
// ErrUnknownOperation, not a reflection miss.
type Operation interface {
	OpName() string
}

type AssignRoleOp struct {
	UserID string
	Role   model.Role
}

func (AssignRoleOp) OpName() string { return "assign_role" }

type AssignPatientOp struct {
	UserID    string
	PatientID string
	Reason    string
}

func (AssignPatientOp) OpName() string { return "assign_patient" }

type RequestAccessOp struct {
	PatientID         string
	DataType          string
	Justification     string
	SessionDuration   int // seconds
	TwoFactorVerified bool
}

func (RequestAccessOp) OpName() string { return "request_access" }

type RevokeAccessOp struct {
	AccessToken string
	Reason      string
}

func (RevokeAccessOp) OpName() string { return "revoke_access" }

type SetConsentOp struct {
	PatientID       string
	DataTypes       []string
	AuthorizedRoles []model.Role
	ExpiryDate      *time.Time
}

func (SetConsentOp) OpName() string { return "set_patient_consent" }

type AuditLogOp struct {
	Filter model.AuditFilter
}

func (AuditLogOp) OpName() string { return "get_audit_log" }

// ExecutionResult wraps a successful dispatch with its gas accounting.
type ExecutionResult struct {
	ExecutionID uuid.UUID   `json:"execution_id"`
	Result      interface{} `json:"result"`
	GasUsed     uint64      `json:"gas_used"`
}

// Execute dispatches op on behalf of caller. Success or failure, exactly one
// execution record is appended and gas is charged; failures charge the base
// amount, successes a synthetic execution-time-derived cost. This accounting
// exists so audits can show relative call cost, it enforces no quota.
func (c *AccessContract) Execute(ctx context.Context, caller string, op Operation) (*ExecutionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	started := c.now()
	wallStart := time.Now()
	executionID := uuid.New()

	result, err := c.dispatch(ctx, caller, op)
	elapsed := time.Since(wallStart)

	record := model.ExecutionRecord{
		ExecutionID: executionID,
		Operation:   op.OpName(),
		Caller:      caller,
		Timestamp:   started,
		Duration:    elapsed,
	}

	if err != nil {
		record.Status = model.ExecutionStatusFailed
		record.GasUsed = baseGas
		record.Error = err.Error()
	} else {
		record.Status = model.ExecutionStatusSuccess
		record.GasUsed = uint64(elapsed.Seconds() * baseGas)
	}
	c.gasUsed += record.GasUsed
	c.execLog = append(c.execLog, record)

	if c.metrics != nil {
		c.metrics.ContractExecutions.WithLabelValues(op.OpName(), record.Status).Inc()
		c.metrics.GasUsed.Add(float64(record.GasUsed))
	}
	if err != nil {
		return nil, err
	}
	return &ExecutionResult{
		ExecutionID: executionID,
		Result:      result,
		GasUsed:     record.GasUsed,
	}, nil
}

func (c *AccessContract) dispatch(ctx context.Context, caller string, op Operation) (interface{}, error) {
	switch op := op.(type) {
	case AssignRoleOp:
		return c.assignRole(ctx, caller, op.UserID, op.Role)
	case AssignPatientOp:
		return c.assignPatient(ctx, caller, op.UserID, op.PatientID, op.Reason)
	case RequestAccessOp:
		return c.requestAccess(ctx, caller, op)
	case RevokeAccessOp:
		return c.revokeAccess(ctx, caller, op.AccessToken, op.Reason)
	case SetConsentOp:
		return c.setPatientConsent(ctx, caller, op)
	case AuditLogOp:
		return c.auditReport(ctx, caller, op.Filter)
	default:
		return nil, errors.Newf(errors.ErrUnknownOperation, "operation %q not found in contract", op.OpName())
	}
}

// ParseOperation maps a named call with loosely typed parameters (the HTTP
// dispatch surface) onto a typed Operation. Unknown names keep the original
// "function not found" error path.
func ParseOperation(name string, params map[string]interface{}) (Operation, error) {
	raw, err := canonical.Marshal(params)
	if err != nil {
		return nil, errors.BadRequest("parameters not serializable", err)
	}

	decode := func(v interface{}) error {
		if err := canonical.Unmarshal(raw, v); err != nil {
			return errors.BadRequest("invalid parameters", err)
		}
		return nil
	}

	switch name {
	case "assign_role":
		var p struct {
			UserID string `json:"user_id"`
			Role   string `json:"role"`
		}
		if err := decode(&p); err != nil {
			return nil, err
		}
		return AssignRoleOp{UserID: p.UserID, Role: model.Role(p.Role)}, nil

	case "assign_patient":
		var p struct {
			UserID    string `json:"user_id"`
			PatientID string `json:"patient_id"`
			Reason    string `json:"reason"`
		}
		if err := decode(&p); err != nil {
			return nil, err
		}
		return AssignPatientOp{UserID: p.UserID, PatientID: p.PatientID, Reason: p.Reason}, nil

	case "request_access":
		var p struct {
			PatientID         string `json:"patient_id"`
			DataType          string `json:"data_type"`
			Justification     string `json:"justification"`
			SessionDuration   int    `json:"session_duration"`
			TwoFactorVerified bool   `json:"two_factor_verified"`
		}
		if err := decode(&p); err != nil {
			return nil, err
		}
		return RequestAccessOp{
			PatientID:         p.PatientID,
			DataType:          p.DataType,
			Justification:     p.Justification,
			SessionDuration:   p.SessionDuration,
			TwoFactorVerified: p.TwoFactorVerified,
		}, nil

	case "revoke_access":
		var p struct {
			AccessToken string `json:"access_token"`
			Reason      string `json:"reason"`
		}
		if err := decode(&p); err != nil {
			return nil, err
		}
		return RevokeAccessOp{AccessToken: p.AccessToken, Reason: p.Reason}, nil

	case "set_patient_consent":
		var p struct {
			PatientID       string   `json:"patient_id"`
			DataTypes       []string `json:"data_types"`
			AuthorizedRoles []string `json:"authorized_roles"`
			ExpiryDate      string   `json:"expiry_date"`
		}
		if err := decode(&p); err != nil {
			return nil, err
		}
		op := SetConsentOp{PatientID: p.PatientID, DataTypes: p.DataTypes}
		for _, r := range p.AuthorizedRoles {
			op.AuthorizedRoles = append(op.AuthorizedRoles, model.Role(r))
		}
		if p.ExpiryDate != "" {
			expiry, err := time.Parse(time.RFC3339, p.ExpiryDate)
			if err != nil {
				return nil, errors.BadRequest("invalid expiry_date", err)
			}
			op.ExpiryDate = &expiry
		}
		return op, nil

	case "get_audit_log":
		var p struct {
			PatientID string `json:"patient_id"`
			StartDate string `json:"start_date"`
			EndDate   string `json:"end_date"`
		}
		if err := decode(&p); err != nil {
			return nil, err
		}
		op := AuditLogOp{Filter: model.AuditFilter{PatientID: p.PatientID}}
		if p.StartDate != "" {
			start, err := time.Parse(time.RFC3339, p.StartDate)
			if err != nil {
				return nil, errors.BadRequest("invalid start_date", err)
			}
			op.Filter.StartDate = &start
		}
		if p.EndDate != "" {
			end, err := time.Parse(time.RFC3339, p.EndDate)
			if err != nil {
				return nil, errors.BadRequest("invalid end_date", err)
			}
			op.Filter.EndDate = &end
		}
		return op, nil

	default:
		return nil, errors.Newf(errors.ErrUnknownOperation, "operation %q not found in contract", name)
	}
}
