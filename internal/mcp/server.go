package mcp

import (
	"context"
	"log/slog"

	"github.com/outreachly/costgate/internal/clock"
	"github.com/outreachly/costgate/internal/domain/admission"
	"github.com/outreachly/costgate/internal/domain/budget"
	"github.com/outreachly/costgate/internal/domain/tracking"
	"github.com/outreachly/costgate/internal/domain/usage"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `Cost governance server for the lead scoring pipeline.
Call admit_scoring_request before every model call and record_usage after it
completes. Budgets are per client; rejected requests carry a stable code and
the budget headroom that caused the rejection. Jobs and client runs are keyed
by run IDs (YYMMDD-HHMMSS, optionally client-suffixed).`

// AdmissionService defines admission operations needed by MCP.
type AdmissionService interface {
	Admit(ctx context.Context, req admission.Request) (*admission.Verdict, error)
	Summary(ctx context.Context, clientID string) (*admission.Summary, error)
}

// UsageService defines ledger operations needed by MCP.
type UsageService interface {
	Record(ctx context.Context, clientID string, inputTokens, outputTokens int64, cost *float64) error
	Snapshot(ctx context.Context, clientID string) (usage.Snapshot, error)
	Entries(ctx context.Context, clientID, dateKey string) ([]usage.Entry, error)
}

// BudgetService defines budget resolution needed by MCP.
type BudgetService interface {
	ResolveKnown(ctx context.Context, clientID string) (budget.Budget, bool, error)
}

// TrackingService defines job and client-run operations needed by MCP.
type TrackingService interface {
	CreateJob(ctx context.Context, req tracking.CreateJobRequest) (*tracking.CreateResult, error)
	UpdateJob(ctx context.Context, runID string, updates map[string]any) error
	CompleteJob(ctx context.Context, runID string, status tracking.Status, updates map[string]any) error
	GetJob(ctx context.Context, runID string) (*tracking.JobRecord, error)
	CreateClientRun(ctx context.Context, req tracking.CreateClientRunRequest) (*tracking.CreateResult, error)
	UpdateClientRun(ctx context.Context, req tracking.UpdateClientRunRequest) error
	CompleteClientRun(ctx context.Context, req tracking.UpdateClientRunRequest, status tracking.Status) error
	ListClientRuns(ctx context.Context, clientID string, limit int) ([]tracking.ClientRunRecord, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Admission AdmissionService
	Usage     UsageService
	Budgets   BudgetService
	Tracking  TrackingService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Clock         clock.Clock
	Resolver      ClientResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "costgate",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	// Stdio mode runs open: it is a local, single-operator transport.
	if cfg.TransportMode == "stdio" || !cfg.AuthEnabled {
		server.AddReceivingMiddleware(noAuthMiddleware())
	} else {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	}
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services, cfg.Clock, cfg.Logger)

	return server
}
