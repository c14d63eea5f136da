package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"dompet/internal/payroll"
)

const maxChildren = 20

// salaryRequest is the shared body of the statutory calculators. Fields a
// calculator does not use are ignored.
type salaryRequest struct {
	GrossSalary   decimal.NullDecimal `json:"gross_salary"`
	Age           *int                `json:"age"`
	MaritalStatus string              `json:"marital_status"`
	ChildrenCount int                 `json:"children_count"`
	EPFDeduction  decimal.NullDecimal `json:"epf_deduction"`
}

type zakatRequest struct {
	AnnualIncome     decimal.NullDecimal `json:"annual_income"`
	GoldPricePerGram decimal.NullDecimal `json:"gold_price_per_gram"`
}

type breakdownResponse struct {
	payroll.SalaryBreakdown
	Cached bool `json:"cached"`
}

// salaryInput is a validated salaryRequest.
type salaryInput struct {
	gross   decimal.Decimal
	profile payroll.EmployeeProfile
}

func (req salaryRequest) validate() (salaryInput, error) {
	if !req.GrossSalary.Valid {
		return salaryInput{}, badRequest("gross_salary is required")
	}
	if req.GrossSalary.Decimal.IsNegative() {
		return salaryInput{}, badRequest("gross_salary must not be negative")
	}
	profile := payroll.DefaultProfile()
	if req.Age != nil {
		if *req.Age < 0 || *req.Age > 120 {
			return salaryInput{}, badRequest("age must be between 0 and 120")
		}
		profile.Age = *req.Age
	}
	if req.ChildrenCount < 0 || req.ChildrenCount > maxChildren {
		return salaryInput{}, badRequest("children_count must be between 0 and %d", maxChildren)
	}
	profile.ChildrenCount = req.ChildrenCount
	status, err := payroll.ParseMaritalStatus(req.MaritalStatus)
	if err != nil {
		return salaryInput{}, badRequest("%v", err)
	}
	profile.MaritalStatus = status
	if req.EPFDeduction.Valid && req.EPFDeduction.Decimal.IsNegative() {
		return salaryInput{}, badRequest("epf_deduction must not be negative")
	}
	return salaryInput{gross: req.GrossSalary.Decimal, profile: profile}, nil
}

func (s *Server) decodeSalary(w http.ResponseWriter, r *http.Request) (salaryRequest, salaryInput, bool) {
	var req salaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "decode_salary", err)
		return req, salaryInput{}, false
	}
	in, err := req.validate()
	if err != nil {
		writeError(w, r, "validate_salary", err)
		return req, salaryInput{}, false
	}
	return req, in, true
}

func (s *Server) handleEPF(w http.ResponseWriter, r *http.Request) {
	_, in, ok := s.decodeSalary(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(s.payroll.EPF(in.gross, in.profile.Age).Rounded()).Write(w)
}

func (s *Server) handleSOCSO(w http.ResponseWriter, r *http.Request) {
	_, in, ok := s.decodeSalary(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(s.payroll.SOCSO(in.gross, in.profile.Age).Rounded()).Write(w)
}

func (s *Server) handleEIS(w http.ResponseWriter, r *http.Request) {
	_, in, ok := s.decodeSalary(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(s.payroll.EIS(in.gross).Rounded()).Write(w)
}

// handlePCB uses the supplied EPF deduction, or the employee share for
// the given age when none is sent.
func (s *Server) handlePCB(w http.ResponseWriter, r *http.Request) {
	req, in, ok := s.decodeSalary(w, r)
	if !ok {
		return
	}
	epf := req.EPFDeduction.Decimal
	if !req.EPFDeduction.Valid {
		epf = s.payroll.EPF(in.gross, in.profile.Age).EmployeeContribution
	}
	result := s.payroll.PCB(in.gross, epf, in.profile.MaritalStatus, in.profile.ChildrenCount)
	NewJSONResponse().Body(result.Rounded()).Write(w)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	_, in, ok := s.decodeSalary(w, r)
	if !ok {
		return
	}
	b, cached := s.payroll.Breakdown(r.Context(), in.gross, in.profile)

	cacheHeader := "MISS"
	if cached {
		cacheHeader = "HIT"
	}
	NewJSONResponse().
		Header("X-Cache", cacheHeader).
		Body(breakdownResponse{SalaryBreakdown: b.Rounded(), Cached: cached}).
		Write(w)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.payroll.CacheStats()).Write(w)
}

// handleZakat falls back to the engine's configured gold price when the
// request does not carry one.
func (s *Server) handleZakat(w http.ResponseWriter, r *http.Request) {
	var req zakatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "decode_zakat", err)
		return
	}
	if !req.AnnualIncome.Valid {
		writeError(w, r, "validate_zakat", badRequest("annual_income is required"))
		return
	}
	if req.AnnualIncome.Decimal.IsNegative() {
		writeError(w, r, "validate_zakat", badRequest("annual_income must not be negative"))
		return
	}
	if req.GoldPricePerGram.Valid && !req.GoldPricePerGram.Decimal.IsPositive() {
		writeError(w, r, "validate_zakat", badRequest("gold_price_per_gram must be positive"))
		return
	}
	result := s.payroll.Zakat(req.AnnualIncome.Decimal, req.GoldPricePerGram.Decimal)
	NewJSONResponse().Body(result.Rounded()).Write(w)
}
