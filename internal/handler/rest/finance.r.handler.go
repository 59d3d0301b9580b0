package hrest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"finance-service/internal/domain"
	"finance-service/internal/response"
	"finance-service/internal/usecase"
	"finance-service/internal/xerrors"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type FinanceRestHandler struct {
	recordUC  *usecase.RecordUsecase
	accountUC *usecase.AccountUsecase
	summaryUC *usecase.SummaryUsecase
	logger    *zap.Logger
}

func NewFinanceRestHandler(
	recordUC *usecase.RecordUsecase,
	accountUC *usecase.AccountUsecase,
	summaryUC *usecase.SummaryUsecase,
	logger *zap.Logger,
) *FinanceRestHandler {
	return &FinanceRestHandler{
		recordUC:  recordUC,
		accountUC: accountUC,
		summaryUC: summaryUC,
		logger:    logger,
	}
}

// ===============================
// REQUEST BODIES
// ===============================

type CreateExpenseJSON struct {
	ProjectCode string          `json:"project_code"`
	Category    string          `json:"category"`
	BaseAmount  decimal.Decimal `json:"base_amount"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	Status      *string         `json:"status,omitempty"`
	AccountID   *int64          `json:"account_id,omitempty"`
	Description *string         `json:"description,omitempty"`
}

type CreateIncomeJSON struct {
	ProjectCode string           `json:"project_code"`
	Amount      decimal.Decimal  `json:"amount"`
	DueDate     time.Time        `json:"due_date"`
	Status      *string          `json:"status,omitempty"`
	AccountID   *int64           `json:"account_id,omitempty"`
	Attachments []AttachmentJSON `json:"attachments,omitempty"`
}

type AttachmentJSON struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Source   string `json:"source"`
}

type StatusUpdateJSON struct {
	Status       string     `json:"status"`
	Approver     *string    `json:"approver,omitempty"`
	RejectReason *string    `json:"reject_reason,omitempty"`
	PaymentDate  *time.Time `json:"payment_date,omitempty"`
}

type ExpensePatchJSON struct {
	ProjectCode *string          `json:"project_code,omitempty"`
	Category    *string          `json:"category,omitempty"`
	BaseAmount  *decimal.Decimal `json:"base_amount,omitempty"`
	NetAmount   *decimal.Decimal `json:"net_amount,omitempty"`
	AccountID   *int64           `json:"account_id,omitempty"`
	Description *string          `json:"description,omitempty"`
}

type IncomePatchJSON struct {
	ProjectCode *string          `json:"project_code,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	DueDate     *time.Time       `json:"due_date,omitempty"`
	AccountID   *int64           `json:"account_id,omitempty"`
}

type CreateAccountJSON struct {
	Name           string          `json:"name"`
	AccountType    string          `json:"account_type"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	IsPrimary      bool            `json:"is_primary"`
}

// ===============================
// EXPENSES
// ===============================

func (h *FinanceRestHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var in CreateExpenseJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	e, err := h.recordUC.CreateExpense(r.Context(), usecase.CreateExpenseInput{
		ProjectCode: in.ProjectCode,
		Category:    in.Category,
		BaseAmount:  in.BaseAmount,
		NetAmount:   in.NetAmount,
		Status:      in.Status,
		AccountID:   in.AccountID,
		Description: in.Description,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, e)
}

func (h *FinanceRestHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := h.recordUC.GetExpense(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, e)
}

func (h *FinanceRestHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var in ExpensePatchJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	e, err := h.recordUC.UpdateExpense(r.Context(), id, usecase.ExpensePatch{
		ProjectCode: in.ProjectCode,
		Category:    in.Category,
		BaseAmount:  in.BaseAmount,
		NetAmount:   in.NetAmount,
		AccountID:   in.AccountID,
		Description: in.Description,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, e)
}

func (h *FinanceRestHandler) UpdateExpenseStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var in StatusUpdateJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	e, err := h.recordUC.UpdateExpenseStatus(r.Context(), id, usecase.StatusUpdateInput{
		Status:       in.Status,
		Approver:     in.Approver,
		RejectReason: in.RejectReason,
		PaymentDate:  in.PaymentDate,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, e)
}

func (h *FinanceRestHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.recordUC.DeleteExpense(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

func (h *FinanceRestHandler) ListProjectExpenses(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	list, err := h.recordUC.ListExpensesByProject(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, list)
}

// ===============================
// INCOMES
// ===============================

func (h *FinanceRestHandler) CreateIncome(w http.ResponseWriter, r *http.Request) {
	var in CreateIncomeJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input := usecase.CreateIncomeInput{
		ProjectCode: in.ProjectCode,
		Amount:      in.Amount,
		DueDate:     in.DueDate,
		Status:      in.Status,
		AccountID:   in.AccountID,
	}
	for _, att := range in.Attachments {
		input.Attachments = append(input.Attachments, usecase.AttachmentInput{
			Filename: att.Filename,
			Path:     att.Path,
			Source:   att.Source,
		})
	}
	i, err := h.recordUC.CreateIncome(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, i)
}

func (h *FinanceRestHandler) GetIncome(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	i, err := h.recordUC.GetIncome(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, i)
}

func (h *FinanceRestHandler) UpdateIncome(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var in IncomePatchJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	i, err := h.recordUC.UpdateIncome(r.Context(), id, usecase.IncomePatch{
		ProjectCode: in.ProjectCode,
		Amount:      in.Amount,
		DueDate:     in.DueDate,
		AccountID:   in.AccountID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, i)
}

func (h *FinanceRestHandler) UpdateIncomeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var in StatusUpdateJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	i, err := h.recordUC.UpdateIncomeStatus(r.Context(), id, usecase.StatusUpdateInput{
		Status: in.Status,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, i)
}

func (h *FinanceRestHandler) DeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.recordUC.DeleteIncome(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

func (h *FinanceRestHandler) AddIncomeAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var in AttachmentJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	att, err := h.recordUC.AddIncomeAttachment(r.Context(), id, usecase.AttachmentInput{
		Filename: in.Filename,
		Path:     in.Path,
		Source:   in.Source,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, att)
}

func (h *FinanceRestHandler) ListProjectIncomes(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	list, err := h.recordUC.ListIncomesByProject(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, list)
}

// ===============================
// ACCOUNTS
// ===============================

func (h *FinanceRestHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var in CreateAccountJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.accountUC.Create(r.Context(), usecase.CreateAccountInput{
		Name:           in.Name,
		AccountType:    in.AccountType,
		InitialBalance: in.InitialBalance,
		IsPrimary:      in.IsPrimary,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, a)
}

func (h *FinanceRestHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	f := &domain.AccountFilter{}
	if v := r.URL.Query().Get("type"); v != "" {
		f.AccountType = &v
	}
	if v := r.URL.Query().Get("primary"); v != "" {
		b := v == "true"
		f.IsPrimary = &b
	}
	if v := r.URL.Query().Get("active"); v != "" {
		b := v == "true"
		f.IsActive = &b
	}
	list, err := h.accountUC.List(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, list)
}

func (h *FinanceRestHandler) GetAccountBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	balance, err := h.accountUC.GetBalance(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]decimal.Decimal{"balance": balance})
}

func (h *FinanceRestHandler) SetPrimaryAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.accountUC.SetPrimary(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]int64{"primary_account_id": id})
}

func (h *FinanceRestHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.accountUC.SoftDelete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]int64{"deactivated": id})
}

// ===============================
// SUMMARIES
// ===============================

func (h *FinanceRestHandler) GetProjectTotals(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	s, err := h.summaryUC.ProjectTotals(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, s)
}

func (h *FinanceRestHandler) GetGlobalSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.summaryUC.GlobalSummary(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, s)
}

// ===============================
// PLUMBING
// ===============================

func (h *FinanceRestHandler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// writeError maps the error taxonomy to HTTP statuses. Validation errors
// are the caller's fault, reconciliation blocks are semantic conflicts,
// and anything persistence-shaped is a 500 worth logging.
func (h *FinanceRestHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, xerrors.ErrInvalidAmount), errors.Is(err, xerrors.ErrUnknownStatus):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, xerrors.ErrNotFound):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, xerrors.ErrConstraint):
		response.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, xerrors.ErrReconciliation):
		response.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *FinanceRestHandler) registerRoutes(r chi.Router) {
	r.Route("/finance", func(r chi.Router) {
		r.Route("/expenses", func(r chi.Router) {
			r.Post("/", h.CreateExpense)
			r.Get("/{id}", h.GetExpense)
			r.Patch("/{id}", h.UpdateExpense)
			r.Patch("/{id}/status", h.UpdateExpenseStatus)
			r.Delete("/{id}", h.DeleteExpense)
		})

		r.Route("/incomes", func(r chi.Router) {
			r.Post("/", h.CreateIncome)
			r.Get("/{id}", h.GetIncome)
			r.Patch("/{id}", h.UpdateIncome)
			r.Patch("/{id}/status", h.UpdateIncomeStatus)
			r.Delete("/{id}", h.DeleteIncome)
			r.Post("/{id}/attachments", h.AddIncomeAttachment)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.CreateAccount)
			r.Get("/", h.ListAccounts)
			r.Get("/{id}/balance", h.GetAccountBalance)
			r.Post("/{id}/primary", h.SetPrimaryAccount)
			r.Delete("/{id}", h.DeleteAccount)
		})

		r.Route("/projects/{code}", func(r chi.Router) {
			r.Get("/expenses", h.ListProjectExpenses)
			r.Get("/incomes", h.ListProjectIncomes)
			r.Get("/totals", h.GetProjectTotals)
		})

		r.Get("/summary", h.GetGlobalSummary)
	})
}

func (h *FinanceRestHandler) Start(addr string) {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	h.registerRoutes(r)

	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	h.logger.Info("finance REST service running", zap.String("addr", addr))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		h.logger.Fatal("failed to start server", zap.Error(err))
	}
}
