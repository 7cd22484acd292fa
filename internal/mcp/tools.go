package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/outreachly/costgate/internal/clock"
	"github.com/outreachly/costgate/internal/domain/admission"
	"github.com/outreachly/costgate/internal/domain/budget"
	"github.com/outreachly/costgate/internal/domain/tracking"
	"github.com/outreachly/costgate/internal/domain/usage"
	"github.com/outreachly/costgate/internal/runid"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// toolDeps bundles what tool handlers need beyond their typed input.
type toolDeps struct {
	services Services
	clk      clock.Clock
	logger   *slog.Logger
}

// clientFor reconciles the client_id argument with the authenticated client
// from the bearer token, when there is one. An authenticated caller may omit
// the argument but may not impersonate another client.
func clientFor(ctx context.Context, arg string) (string, error) {
	authed := getClientID(ctx)
	if authed == "" {
		return arg, nil
	}
	if arg == "" || arg == authed {
		return authed, nil
	}
	return "", &APIError{
		Code:    "FORBIDDEN",
		Message: fmt.Sprintf("token is bound to client %q", authed),
	}
}

type admitInput struct {
	ClientID     string          `json:"client_id" jsonschema:"Tenant identifier"`
	SystemPrompt string          `json:"system_prompt,omitempty" jsonschema:"Full system prompt to be sent to the model"`
	LeadBatch    json.RawMessage `json:"lead_batch,omitempty" jsonschema:"JSON-serialized lead batch exactly as it will be sent"`
	BatchSize    int             `json:"batch_size" jsonschema:"Number of leads in the batch"`
}

type recordUsageInput struct {
	ClientID     string   `json:"client_id" jsonschema:"Tenant identifier"`
	InputTokens  int64    `json:"input_tokens" jsonschema:"Realized prompt tokens reported by the model"`
	OutputTokens int64    `json:"output_tokens" jsonschema:"Realized completion tokens reported by the model"`
	Cost         *float64 `json:"cost,omitempty" jsonschema:"Realized cost in dollars; computed from the rate card when omitted"`
}

type recordUsageResult struct {
	Recorded bool   `json:"recorded"`
	Reason   string `json:"reason,omitempty"`
}

type clientInput struct {
	ClientID string `json:"client_id" jsonschema:"Tenant identifier"`
}

type resolveBudgetResult struct {
	ClientID string        `json:"client_id"`
	Known    bool          `json:"known"`
	Budget   budget.Budget `json:"budget"`
}

type listEntriesInput struct {
	ClientID string `json:"client_id" jsonschema:"Tenant identifier"`
	Date     string `json:"date,omitempty" jsonschema:"Ledger day (YYYY-MM-DD); defaults to today"`
}

type listEntriesResult struct {
	Entries []usage.Entry `json:"entries"`
}

type generateRunIDInput struct {
	ClientID string `json:"client_id,omitempty" jsonschema:"Optional tenant to suffix the run ID with"`
}

type generateRunIDResult struct {
	RunID     string `json:"run_id"`
	BaseRunID string `json:"base_run_id"`
}

type detectRunIDInput struct {
	RunID string `json:"run_id" jsonschema:"Run ID to classify"`
}

type createJobInput struct {
	RunID   string         `json:"run_id" jsonschema:"Base run ID for the shared pipeline run"`
	JobType string         `json:"job_type,omitempty" jsonschema:"Kind of pipeline run, e.g. lead_scoring"`
	Initial map[string]any `json:"initial,omitempty" jsonschema:"Optional initial fields, same vocabulary as update_job"`
}

type updateJobInput struct {
	RunID   string         `json:"run_id" jsonschema:"Run ID of the job to update"`
	Updates map[string]any `json:"updates" jsonschema:"Field updates; aliases like endTime or error are accepted"`
}

type completeJobInput struct {
	RunID   string         `json:"run_id" jsonschema:"Run ID of the job to complete"`
	Status  string         `json:"status,omitempty" jsonschema:"Terminal status; defaults to Completed"`
	Updates map[string]any `json:"updates,omitempty" jsonschema:"Final field updates applied with the completion"`
}

type getJobInput struct {
	RunID string `json:"run_id" jsonschema:"Run ID of the job"`
}

type ackResult struct {
	OK bool `json:"ok"`
}

type createClientRunInput struct {
	RunID    string         `json:"run_id" jsonschema:"Base or already-suffixed run ID"`
	ClientID string         `json:"client_id" jsonschema:"Tenant this slice of the run belongs to"`
	Initial  map[string]any `json:"initial,omitempty" jsonschema:"Optional initial fields"`
}

type updateClientRunInput struct {
	RunID           string         `json:"run_id" jsonschema:"Base or already-suffixed run ID"`
	ClientID        string         `json:"client_id" jsonschema:"Tenant this slice of the run belongs to"`
	Updates         map[string]any `json:"updates" jsonschema:"Field updates; counters are cumulative"`
	CreateIfMissing bool           `json:"create_if_missing,omitempty" jsonschema:"Create the record when it does not exist yet"`
}

type completeClientRunInput struct {
	RunID    string         `json:"run_id" jsonschema:"Base or already-suffixed run ID"`
	ClientID string         `json:"client_id" jsonschema:"Tenant this slice of the run belongs to"`
	Status   string         `json:"status,omitempty" jsonschema:"Terminal status; defaults to Completed"`
	Updates  map[string]any `json:"updates,omitempty" jsonschema:"Final field updates applied with the completion"`
}

type listClientRunsInput struct {
	ClientID string `json:"client_id" jsonschema:"Tenant identifier"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum records to return; defaults to 20"`
}

type listClientRunsResult struct {
	Runs []tracking.ClientRunRecord `json:"runs"`
}

// registerTools registers the governance tool surface on the SDK server.
func registerTools(server *sdkmcp.Server, services Services, clk clock.Clock, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &toolDeps{services: services, clk: clk, logger: logger}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "admit_scoring_request",
		Description: "Pre-flight check for a scoring call: verdict with estimates, or a rejection code and budget headroom",
	}, d.admitScoringRequest)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "record_usage",
		Description: "Record realized token usage and cost after a scoring call completes",
	}, d.recordUsage)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_usage_snapshot",
		Description: "Get a client's current daily and monthly usage aggregates",
	}, d.getUsageSnapshot)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_governance_summary",
		Description: "Get a client's budget, usage, remaining headroom and utilization per dimension",
	}, d.getGovernanceSummary)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "resolve_budget",
		Description: "Resolve the effective budget for a client (defaults overlaid with valid overrides)",
	}, d.resolveBudget)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_usage_entries",
		Description: "List a client's raw ledger rows for one day, for audit and reconciliation",
	}, d.listUsageEntries)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "generate_run_id",
		Description: "Generate a timestamp run ID (YYMMDD-HHMMSS), optionally suffixed with a client ID",
	}, d.generateRunID)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "detect_run_id_format",
		Description: "Classify a run ID as timestamp, timestamp-client or external",
	}, d.detectRunIDFormat)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_job",
		Description: "Create the job-tracking record for a shared pipeline run; idempotent per run ID",
	}, d.createJob)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_job",
		Description: "Update a running job's progress, notes or status",
	}, d.updateJob)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "complete_job",
		Description: "Seal a job with a terminal status and end time; repeat calls with the same status are no-ops",
	}, d.completeJob)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_job",
		Description: "Get a job-tracking record by run ID",
	}, d.getJob)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_client_run",
		Description: "Create the per-client record for a run slice; idempotent per suffixed run ID",
	}, d.createClientRun)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_client_run",
		Description: "Update a running client-run record; cumulative counters may only grow",
	}, d.updateClientRun)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "complete_client_run",
		Description: "Seal a client-run record with a terminal status and end time",
	}, d.completeClientRun)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_client_runs",
		Description: "List a client's most recent run records, newest first",
	}, d.listClientRuns)
}

func (d *toolDeps) admitScoringRequest(ctx context.Context, _ *sdkmcp.CallToolRequest, in admitInput) (*sdkmcp.CallToolResult, *admission.Verdict, error) {
	clientID, err := clientFor(ctx, in.ClientID)
	if err != nil {
		return nil, nil, err
	}
	verdict, err := d.services.Admission.Admit(ctx, admission.Request{
		ClientID:     clientID,
		SystemPrompt: in.SystemPrompt,
		LeadBatch:    in.LeadBatch,
		BatchSize:    in.BatchSize,
	})
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, verdict, nil
}

func (d *toolDeps) recordUsage(ctx context.Context, _ *sdkmcp.CallToolRequest, in recordUsageInput) (*sdkmcp.CallToolResult, *recordUsageResult, error) {
	clientID, err := clientFor(ctx, in.ClientID)
	if err != nil {
		return nil, nil, err
	}

	// Usage from a client without a settings row is dropped, loudly: the
	// ledger only accounts for configured tenants.
	_, known, err := d.services.Budgets.ResolveKnown(ctx, clientID)
	if err != nil {
		return nil, nil, MapError(err)
	}
	if !known {
		d.logger.Warn("dropping usage for unconfigured client",
			"client_id", clientID, "operation", "record_usage",
			"input_tokens", in.InputTokens, "output_tokens", in.OutputTokens)
		return nil, &recordUsageResult{Recorded: false, Reason: "client has no settings row"}, nil
	}

	if err := d.services.Usage.Record(ctx, clientID, in.InputTokens, in.OutputTokens, in.Cost); err != nil {
		return nil, nil, MapError(err)
	}
	return nil, &recordUsageResult{Recorded: true}, nil
}

func (d *toolDeps) getUsageSnapshot(ctx context.Context, _ *sdkmcp.CallToolRequest, in clientInput) (*sdkmcp.CallToolResult, *usage.Snapshot, error) {
	clientID, err := clientFor(ctx, in.ClientID)
	if err != nil {
		return nil, nil, err
	}
	snap, err := d.services.Usage.Snapshot(ctx, clientID)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, &snap, nil
}

func (d *toolDeps) getGovernanceSummary(ctx context.Context, _ *sdkmcp.CallToolRequest, in clientInput) (*sdkmcp.CallToolResult, *admission.Summary, error) {
	clientID, err := clientFor(ctx, in.ClientID)
	if err != nil {
		return nil, nil, err
	}
	summary, err := d.services.Admission.Summary(ctx, clientID)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, summary, nil
}

func (d *toolDeps) resolveBudget(ctx context.Context, _ *sdkmcp.CallToolRequest, in clientInput) (*sdkmcp.CallToolResult, *resolveBudgetResult, error) {
	clientID, err := clientFor(ctx, in.ClientID)
	if err != nil {
		return nil, nil, err
	}
	b, known, err := d.services.Budgets.ResolveKnown(ctx, clientID)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, &resolveBudgetResult{ClientID: clientID, Known: known, Budget: b}, nil
}

func (d *toolDeps) listUsageEntries(ctx context.Context, _ *sdkmcp.CallToolRequest, in listEntriesInput) (*sdkmcp.CallToolResult, *listEntriesResult, error) {
	clientID, err := clientFor(ctx, in.ClientID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := d.services.Usage.Entries(ctx, clientID, in.Date)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, &listEntriesResult{Entries: entries}, nil
}

func (d *toolDeps) generateRunID(ctx context.Context, _ *sdkmcp.CallToolRequest, in generateRunIDInput) (*sdkmcp.CallToolResult, *generateRunIDResult, error) {
	base := runid.Generate(d.clk.Now())
	out := &generateRunIDResult{RunID: base, BaseRunID: base}
	if in.ClientID != "" {
		suffixed, err := runid.AddClientSuffix(base, in.ClientID)
		if err != nil {
			return nil, nil, MapError(err)
		}
		out.RunID = suffixed
	}
	return nil, out, nil
}

func (d *toolDeps) detectRunIDFormat(_ context.Context, _ *sdkmcp.CallToolRequest, in detectRunIDInput) (*sdkmcp.CallToolResult, *runid.Info, error) {
	info := runid.DetectFormat(in.RunID)
	if info == nil {
		return nil, nil, MapError(runid.ErrEmptyRunID)
	}
	return nil, info, nil
}

func (d *toolDeps) createJob(ctx context.Context, _ *sdkmcp.CallToolRequest, in createJobInput) (*sdkmcp.CallToolResult, *tracking.CreateResult, error) {
	res, err := d.services.Tracking.CreateJob(ctx, tracking.CreateJobRequest{
		RunID:   in.RunID,
		JobType: in.JobType,
		Initial: in.Initial,
	})
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, res, nil
}

func (d *toolDeps) updateJob(ctx context.Context, _ *sdkmcp.CallToolRequest, in updateJobInput) (*sdkmcp.CallToolResult, *ackResult, error) {
	if err := d.services.Tracking.UpdateJob(ctx, in.RunID, in.Updates); err != nil {
		return nil, nil, MapError(err)
	}
	return nil, &ackResult{OK: true}, nil
}

func (d *toolDeps) completeJob(ctx context.Context, _ *sdkmcp.CallToolRequest, in completeJobInput) (*sdkmcp.CallToolResult, *ackResult, error) {
	if err := d.services.Tracking.CompleteJob(ctx, in.RunID, tracking.Status(in.Status), in.Updates); err != nil {
		return nil, nil, MapError(err)
	}
	return nil, &ackResult{OK: true}, nil
}

func (d *toolDeps) getJob(ctx context.Context, _ *sdkmcp.CallToolRequest, in getJobInput) (*sdkmcp.CallToolResult, *tracking.JobRecord, error) {
	rec, err := d.services.Tracking.GetJob(ctx, in.RunID)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, rec, nil
}

func (d *toolDeps) createClientRun(ctx context.Context, _ *sdkmcp.CallToolRequest, in createClientRunInput) (*sdkmcp.CallToolResult, *tracking.CreateResult, error) {
	clientID, err := clientFor(ctx, in.ClientID)
	if err != nil {
		return nil, nil, err
	}
	res, err := d.services.Tracking.CreateClientRun(ctx, tracking.CreateClientRunRequest{
		RunID:    in.RunID,
		ClientID: clientID,
		Initial:  in.Initial,
	})
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, res, nil
}

func (d *toolDeps) updateClientRun(ctx context.Context, _ *sdkmcp.CallToolRequest, in updateClientRunInput) (*sdkmcp.CallToolResult, *ackResult, error) {
	clientID, err := clientFor(ctx, in.ClientID)
	if err != nil {
		return nil, nil, err
	}
	err = d.services.Tracking.UpdateClientRun(ctx, tracking.UpdateClientRunRequest{
		RunID:           in.RunID,
		ClientID:        clientID,
		Updates:         in.Updates,
		CreateIfMissing: in.CreateIfMissing,
	})
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, &ackResult{OK: true}, nil
}

func (d *toolDeps) completeClientRun(ctx context.Context, _ *sdkmcp.CallToolRequest, in completeClientRunInput) (*sdkmcp.CallToolResult, *ackResult, error) {
	clientID, err := clientFor(ctx, in.ClientID)
	if err != nil {
		return nil, nil, err
	}
	err = d.services.Tracking.CompleteClientRun(ctx, tracking.UpdateClientRunRequest{
		RunID:    in.RunID,
		ClientID: clientID,
		Updates:  in.Updates,
	}, tracking.Status(in.Status))
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, &ackResult{OK: true}, nil
}

func (d *toolDeps) listClientRuns(ctx context.Context, _ *sdkmcp.CallToolRequest, in listClientRunsInput) (*sdkmcp.CallToolResult, *listClientRunsResult, error) {
	clientID, err := clientFor(ctx, in.ClientID)
	if err != nil {
		return nil, nil, err
	}
	runs, err := d.services.Tracking.ListClientRuns(ctx, clientID, in.Limit)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, &listClientRunsResult{Runs: runs}, nil
}
