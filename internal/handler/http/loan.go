package http

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type LoanHandler interface {
	CreateLoan(w http.ResponseWriter, r *http.Request)
	GetLoan(w http.ResponseWriter, r *http.Request)
	ActivateLoan(w http.ResponseWriter, r *http.Request)
	CancelLoan(w http.ResponseWriter, r *http.Request)
	RecordPayment(w http.ResponseWriter, r *http.Request)

	CreateAdjustment(w http.ResponseWriter, r *http.Request)
	ActivateAdjustment(w http.ResponseWriter, r *http.Request)
	CancelAdjustment(w http.ResponseWriter, r *http.Request)
	EndAdjustment(w http.ResponseWriter, r *http.Request)
}

type loanHandlerImpl struct {
	loanService loan.LoanService
}

func NewLoanHandler(loanService loan.LoanService) LoanHandler {
	return &loanHandlerImpl{loanService: loanService}
}

// ========== LOANS ==========

func (h *loanHandlerImpl) CreateLoan(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var req loan.CreateLoanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = claims.CompanyID

	created, err := h.loanService.CreateLoan(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Loan created", loan.NewLoanResponse(created, nil))
}

func (h *loanHandlerImpl) GetLoan(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	l, txs, err := h.loanService.GetLoan(r.Context(), claims.CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, loan.NewLoanResponse(l, txs))
}

func (h *loanHandlerImpl) ActivateLoan(w http.ResponseWriter, r *http.Request) {
	h.loanAction(w, r, h.loanService.ActivateLoan, "Loan activated")
}

func (h *loanHandlerImpl) CancelLoan(w http.ResponseWriter, r *http.Request) {
	h.loanAction(w, r, h.loanService.CancelLoan, "Loan cancelled")
}

func (h *loanHandlerImpl) loanAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(context.Context, loan.LoanActionRequest) (loan.Loan, error),
	message string,
) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	l, err := action(r.Context(), loan.LoanActionRequest{
		CompanyID: claims.CompanyID,
		LoanID:    chi.URLParam(r, "id"),
		Actor:     claims.UserID,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, message, loan.NewLoanResponse(l, nil))
}

func (h *loanHandlerImpl) RecordPayment(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var req loan.RecordPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = claims.CompanyID
	req.LoanID = chi.URLParam(r, "id")
	req.Actor = claims.UserID
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}

	l, err := h.loanService.RecordPayment(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payment recorded", loan.NewLoanResponse(l, nil))
}

// ========== ADJUSTMENTS ==========

func (h *loanHandlerImpl) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var req loan.CreateAdjustmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = claims.CompanyID

	created, err := h.loanService.CreateAdjustment(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Adjustment created", loan.NewAdjustmentResponse(created))
}

func (h *loanHandlerImpl) ActivateAdjustment(w http.ResponseWriter, r *http.Request) {
	h.adjustmentAction(w, r, h.loanService.ActivateAdjustment, "Adjustment activated")
}

func (h *loanHandlerImpl) CancelAdjustment(w http.ResponseWriter, r *http.Request) {
	h.adjustmentAction(w, r, h.loanService.CancelAdjustment, "Adjustment cancelled")
}

func (h *loanHandlerImpl) EndAdjustment(w http.ResponseWriter, r *http.Request) {
	h.adjustmentAction(w, r, h.loanService.EndAdjustment, "Adjustment ended")
}

func (h *loanHandlerImpl) adjustmentAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(context.Context, loan.AdjustmentActionRequest) (loan.Adjustment, error),
	message string,
) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var req loan.AdjustmentActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = claims.CompanyID
	req.AdjustmentID = chi.URLParam(r, "id")
	req.Actor = claims.UserID

	a, err := action(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, message, loan.NewAdjustmentResponse(a))
}
