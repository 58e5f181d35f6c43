package http

import (
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/contribution"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
)

type ContributionHandler interface {
	UpsertVersion(w http.ResponseWriter, r *http.Request)
	Resolve(w http.ResponseWriter, r *http.Request)
}

type contributionHandlerImpl struct {
	tableService contribution.TableService
}

func NewContributionHandler(tableService contribution.TableService) ContributionHandler {
	return &contributionHandlerImpl{tableService: tableService}
}

// UpsertVersion replaces one table version of the caller's company.
func (h *contributionHandlerImpl) UpsertVersion(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var req contribution.UpsertVersionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = claims.CompanyID

	version, err := h.tableService.UpsertVersion(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Contribution table saved", contribution.NewVersionResponse(version))
}

// Resolve is diagnostic: it shows which bracket a compensation falls into.
func (h *contributionHandlerImpl) Resolve(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	req := contribution.ResolveRequest{
		CompanyID:    claims.CompanyID,
		TableType:    q.Get("table_type"),
		Compensation: q.Get("compensation"),
		AsOf:         q.Get("as_of"),
	}

	amounts, err := h.tableService.Resolve(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, contribution.NewAmountsResponse(amounts))
}
