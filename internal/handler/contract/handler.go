package contract

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medledger/chain-api/internal/contract"
	"github.com/medledger/chain-api/internal/handler"
	"github.com/medledger/chain-api/internal/middleware"
	"github.com/medledger/chain-api/internal/model"
)

// Handler serves the contract surface. The caller identity for every
// operation comes from the authenticated session, never from the body.
type Handler struct {
	manager *contract.Manager
}

func NewHandler(manager *contract.Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	contracts := r.Group("/contracts")
	{
		contracts.POST("", h.Deploy)
		contracts.GET("", h.ListDeployments)
		contracts.GET("/:id", h.GetState)
		contracts.GET("/:id/executions", h.GetExecutions)
		contracts.POST("/:id/execute", h.Execute)

		contracts.POST("/:id/roles", h.AssignRole)
		contracts.POST("/:id/patients", h.AssignPatient)
		contracts.POST("/:id/access/request", h.RequestAccess)
		contracts.POST("/:id/access/revoke", h.RevokeAccess)
		contracts.POST("/:id/consent", h.SetConsent)
		contracts.GET("/:id/audit-log", h.GetAuditLog)
	}
}

func (h *Handler) Deploy(c *gin.Context) {
	var req model.DeployContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	contractID, err := h.manager.Deploy(req.ContractType, middleware.CallerID(c))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(gin.H{
		"contract_id":   contractID,
		"contract_type": req.ContractType,
	}))
}

func (h *Handler) ListDeployments(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.manager.Deployments()))
}

func (h *Handler) GetState(c *gin.Context) {
	summary, err := h.manager.StateSummary(c.Param("id"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

func (h *Handler) GetExecutions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid limit"))
			return
		}
		limit = parsed
	}

	history, err := h.manager.ExecutionHistory(c.Param("id"), limit)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(history))
}

// Execute is the generic dispatch endpoint: an operation name plus loosely
// typed parameters, for callers that script against the contract.
func (h *Handler) Execute(c *gin.Context) {
	var req struct {
		Operation string                 `json:"operation" binding:"required"`
		Params    map[string]interface{} `json:"params"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	op, err := contract.ParseOperation(req.Operation, req.Params)
	if err != nil {
		handler.Error(c, err)
		return
	}
	h.execute(c, op)
}

func (h *Handler) AssignRole(c *gin.Context) {
	var req model.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	h.execute(c, contract.AssignRoleOp{UserID: req.UserID, Role: model.Role(req.Role)})
}

func (h *Handler) AssignPatient(c *gin.Context) {
	var req model.AssignPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	h.execute(c, contract.AssignPatientOp{
		UserID:    req.UserID,
		PatientID: req.PatientID,
		Reason:    req.Reason,
	})
}

func (h *Handler) RequestAccess(c *gin.Context) {
	var req model.RequestAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	h.execute(c, contract.RequestAccessOp{
		PatientID:         req.PatientID,
		DataType:          req.DataType,
		Justification:     req.Justification,
		SessionDuration:   req.SessionDuration,
		TwoFactorVerified: req.TwoFactorVerified,
	})
}

func (h *Handler) RevokeAccess(c *gin.Context) {
	var req model.RevokeAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	h.execute(c, contract.RevokeAccessOp{AccessToken: req.AccessToken, Reason: req.Reason})
}

func (h *Handler) SetConsent(c *gin.Context) {
	var req model.SetConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	op := contract.SetConsentOp{PatientID: req.PatientID, DataTypes: req.DataTypes}
	for _, r := range req.AuthorizedRoles {
		op.AuthorizedRoles = append(op.AuthorizedRoles, model.Role(r))
	}
	if req.ExpiryDate != "" {
		expiry, err := time.Parse(time.RFC3339, req.ExpiryDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid expiry_date"))
			return
		}
		op.ExpiryDate = &expiry
	}
	h.execute(c, op)
}

func (h *Handler) GetAuditLog(c *gin.Context) {
	var req model.AuditLogRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	filter := model.AuditFilter{PatientID: req.PatientID}
	if req.StartDate != "" {
		start, err := time.Parse(time.RFC3339, req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid start_date"))
			return
		}
		filter.StartDate = &start
	}
	if req.EndDate != "" {
		end, err := time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid end_date"))
			return
		}
		filter.EndDate = &end
	}
	h.execute(c, contract.AuditLogOp{Filter: filter})
}

// execute dispatches op as the authenticated caller. Policy denials map to
// their HTTP statuses with the denial reason in the standard envelope.
func (h *Handler) execute(c *gin.Context, op contract.Operation) {
	result, err := h.manager.Execute(c.Request.Context(), c.Param("id"), middleware.CallerID(c), op)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}
