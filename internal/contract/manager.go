package contract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/medledger/chain-api/internal/model"
	"github.com/medledger/chain-api/pkg/errors"
	"github.com/medledger/chain-api/pkg/logger"
	"github.com/medledger/chain-api/pkg/messaging"
	"github.com/medledger/chain-api/pkg/metrics"
)

// ContractTypeHealthcareAccess is the only deployable contract type.
const ContractTypeHealthcareAccess = "HealthcareAccess"

// Manager owns deployed contract instances and dispatches calls to them.
type Manager struct {
	mu          sync.Mutex
	contracts   map[string]*AccessContract
	deployments []model.DeploymentRecord

	now     func() time.Time
	log     *logger.Logger
	metrics *metrics.Metrics
	broker  messaging.Broker
}

// NewManager creates an empty contract registry.
func NewManager(log *logger.Logger, m *metrics.Metrics, broker messaging.Broker) *Manager {
	if broker == nil {
		broker = messaging.NewNoopBroker()
	}
	return &Manager{
		contracts: make(map[string]*AccessContract),
		now:       time.Now,
		log:       log,
		metrics:   m,
		broker:    broker,
	}
}

// Deploy instantiates a contract of the given type. Contract ids only need
// to be unique within one manager lifetime.
func (m *Manager) Deploy(contractType, creator string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if contractType != ContractTypeHealthcareAccess {
		return "", errors.Newf(errors.ErrUnknownContractType, "unknown contract type: %s", contractType)
	}

	contractID := fmt.Sprintf("CONTRACT_%d_%d", m.now().Unix(), len(m.contracts))
	m.contracts[contractID] = NewAccessContract(contractID, creator, m.log, m.metrics, m.broker)
	m.deployments = append(m.deployments, model.DeploymentRecord{
		ContractID:   contractID,
		ContractType: contractType,
		Creator:      creator,
		DeployedAt:   m.now(),
	})

	if m.log != nil {
		m.log.Info("contract deployed", "contract_id", contractID, "creator", creator)
	}
	return contractID, nil
}

// Contract returns the deployed instance.
func (m *Manager) Contract(contractID string) (*AccessContract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[contractID]
	if !ok {
		return nil, errors.Newf(errors.ErrContractNotFound, "contract %s not found", contractID)
	}
	return c, nil
}

// Execute dispatches op on the named contract.
func (m *Manager) Execute(ctx context.Context, contractID, caller string, op Operation) (*ExecutionResult, error) {
	c, err := m.Contract(contractID)
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, caller, op)
}

// StateSummary returns the contract's public projection.
func (m *Manager) StateSummary(contractID string) (model.ContractSummary, error) {
	c, err := m.Contract(contractID)
	if err != nil {
		return model.ContractSummary{}, err
	}
	return c.StateSummary(), nil
}

// ExecutionHistory returns up to limit recent executions for the contract.
func (m *Manager) ExecutionHistory(contractID string, limit int) ([]model.ExecutionRecord, error) {
	c, err := m.Contract(contractID)
	if err != nil {
		return nil, err
	}
	return c.ExecutionHistory(limit), nil
}

// Deployments returns the deployment log in order.
func (m *Manager) Deployments() []model.DeploymentRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.DeploymentRecord, len(m.deployments))
	copy(out, m.deployments)
	return out
}

// Contracts returns the deployed instances, for sweep workers.
func (m *Manager) Contracts() []*AccessContract {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*AccessContract, 0, len(m.contracts))
	for _, c := range m.contracts {
		out = append(out, c)
	}
	return out
}
