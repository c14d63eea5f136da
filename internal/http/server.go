package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"dompet/internal/cache"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/middleware/ratelimit"
	"dompet/internal/middleware/security"
	"dompet/internal/middleware/trace"
	"dompet/internal/payroll"
	"dompet/internal/storage"
)

// LedgerAPI is the ledger surface served over HTTP.
type LedgerAPI interface {
	CreateAccount(ctx context.Context, name string, opening core.Money) (core.Account, error)
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	RecordTransaction(ctx context.Context, t core.Transaction) (core.Transaction, core.Account, error)
	EditTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) (core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
	MonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error)
	CreateRecurring(ctx context.Context, re core.RecurringTransaction) (core.RecurringTransaction, error)
	GetRecurring(ctx context.Context, id int64) (core.RecurringTransaction, error)
	ListRecurring(ctx context.Context) ([]core.RecurringTransaction, error)
	DeleteRecurring(ctx context.Context, id int64) error
}

// PayrollAPI is the statutory calculator surface served over HTTP.
type PayrollAPI interface {
	EPF(gross decimal.Decimal, age int) payroll.EPFResult
	SOCSO(gross decimal.Decimal, age int) payroll.SOCSOResult
	EIS(gross decimal.Decimal) payroll.EISResult
	PCB(gross, epf decimal.Decimal, status payroll.MaritalStatus, children int) payroll.PCBResult
	Zakat(annualIncome, goldPrice decimal.Decimal) payroll.ZakatResult
	Breakdown(ctx context.Context, gross decimal.Decimal, profile payroll.EmployeeProfile) (payroll.SalaryBreakdown, bool)
	CacheStats() cache.Stats
}

// Options tunes the server; zero values select defaults.
type Options struct {
	RateLimitPerMinute int
	Logger             *log.Logger
	// Now is the clock used for default dates. Defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	http.Server
	ledger  LedgerAPI
	payroll PayrollAPI
	now     func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, ledger LedgerAPI, payrollAPI PayrollAPI, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	detector := security.NewDetector(logger)
	s := &Server{
		ledger:   ledger,
		payroll:  payrollAPI,
		now:      now,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, logger),
	}

	mux := http.NewServeMux()
	route := func(pattern, component string, h http.HandlerFunc) {
		mux.Handle(pattern, log.ComponentMiddleware(component)(h))
	}

	route("GET /healthz", log.ComponentHTTP, handleHealth)
	route("GET /readyz", log.ComponentHTTP, s.handleReady)

	route("POST /api/payroll/epf", log.ComponentPayroll, s.handleEPF)
	route("POST /api/payroll/socso", log.ComponentPayroll, s.handleSOCSO)
	route("POST /api/payroll/eis", log.ComponentPayroll, s.handleEIS)
	route("POST /api/payroll/pcb", log.ComponentPayroll, s.handlePCB)
	route("POST /api/payroll/breakdown", log.ComponentPayroll, s.handleBreakdown)
	route("GET /api/payroll/cache", log.ComponentCache, s.handleCacheStats)
	route("POST /api/zakat", log.ComponentPayroll, s.handleZakat)

	route("GET /api/accounts", log.ComponentLedger, s.handleListAccounts)
	route("POST /api/accounts", log.ComponentLedger, s.handleCreateAccount)
	route("GET /api/accounts/{id}", log.ComponentLedger, s.handleGetAccount)

	route("GET /api/transactions", log.ComponentLedger, s.handleListTransactions)
	route("POST /api/transactions", log.ComponentLedger, s.handleCreateTransaction)
	route("GET /api/transactions/{id}", log.ComponentLedger, s.handleGetTransaction)
	route("PUT /api/transactions/{id}", log.ComponentLedger, s.handleUpdateTransaction)
	route("DELETE /api/transactions/{id}", log.ComponentLedger, s.handleDeleteTransaction)

	route("GET /api/overview", log.ComponentLedger, s.handleOverview)

	route("GET /api/recurring", log.ComponentRecurring, s.handleListRecurring)
	route("POST /api/recurring", log.ComponentRecurring, s.handleCreateRecurring)
	route("GET /api/recurring/{id}", log.ComponentRecurring, s.handleGetRecurring)
	route("DELETE /api/recurring/{id}", log.ComponentRecurring, s.handleDeleteRecurring)

	// Wrapped inside out, so tracing runs first: every response carries a
	// request ID and security headers, rate limit rejections included.
	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP, s.onRateLimit)(handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// handleReady reports whether the ledger store answers within two seconds.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.ledger.ListAccounts(ctx); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed", log.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "storage unavailable").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
