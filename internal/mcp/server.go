// Package mcp implements the Model Context Protocol server for fundcrm.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ajitpratap0/fundcrm/internal/equity"
	"github.com/ajitpratap0/fundcrm/internal/insight"
	"github.com/ajitpratap0/fundcrm/internal/models"
	"github.com/ajitpratap0/fundcrm/internal/state"
)

// Server wraps an MCPServer with fundcrm dependencies.
type Server struct {
	mcp        *mcpserver.MCPServer
	dispatcher *state.Dispatcher
	briefer    insight.Briefer
	equityOpts equity.Options
	logger     *slog.Logger
}

// NewServer creates a new MCP server over d. A nil briefer falls back to
// insight.DigestBriefer.
func NewServer(d *state.Dispatcher, briefer insight.Briefer, equityOpts equity.Options, logger *slog.Logger) *Server {
	if briefer == nil {
		briefer = insight.DigestBriefer{}
	}
	s := &Server{
		dispatcher: d,
		briefer:    briefer,
		equityOpts: equityOpts,
		logger:     logger,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"fundcrm",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildStateSummaryTool(), s.handleStateSummary)
	mcpSrv.AddTool(buildAddRoundTool(), s.handleAddRound)
	mcpSrv.AddTool(buildAddVCTool(), s.handleAddVC)
	mcpSrv.AddTool(buildMoveVCTool(), s.handleMoveVC)
	mcpSrv.AddTool(buildSetVCStatusTool(), s.handleSetVCStatus)
	mcpSrv.AddTool(buildAddMeetingNoteTool(), s.handleAddMeetingNote)
	mcpSrv.AddTool(buildEquityTool(), s.handleEquity)
	mcpSrv.AddTool(buildBriefTool(), s.handleBrief)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleStateSummary is the exported handler for the "state_summary" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleStateSummary(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleStateSummary(ctx, req)
}

// HandleAddRound is the exported handler for the "add_round" tool.
func (s *Server) HandleAddRound(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleAddRound(ctx, req)
}

// HandleAddVC is the exported handler for the "add_vc" tool.
func (s *Server) HandleAddVC(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleAddVC(ctx, req)
}

// HandleMoveVC is the exported handler for the "move_vc" tool.
func (s *Server) HandleMoveVC(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleMoveVC(ctx, req)
}

// HandleSetVCStatus is the exported handler for the "set_vc_status" tool.
func (s *Server) HandleSetVCStatus(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleSetVCStatus(ctx, req)
}

// HandleAddMeetingNote is the exported handler for the "add_meeting_note" tool.
func (s *Server) HandleAddMeetingNote(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleAddMeetingNote(ctx, req)
}

// HandleEquity is the exported handler for the "equity" tool.
func (s *Server) HandleEquity(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleEquity(ctx, req)
}

// HandleBrief is the exported handler for the "vc_brief" tool.
func (s *Server) HandleBrief(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleBrief(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// dispatch applies a and reports the outcome. Rejected actions become tool
// errors; no-ops report applied=false.
func (s *Server) dispatch(a state.Action, id string) (*mcpgo.CallToolResult, error) {
	_, ev := s.dispatcher.Dispatch(a)
	if ev.Level == state.LevelError {
		return mcpgo.NewToolResultError(ev.Message), nil
	}
	result := map[string]any{
		"applied": !ev.IsZero(),
		"id":      id,
	}
	if !ev.IsZero() {
		result["message"] = ev.Message
		s.logger.Info("mcp: action applied", "kind", ev.Kind, "id", id)
	}
	return toolResultJSON(result)
}

// roundByName resolves a round by id first, then by case-insensitive name.
func roundByName(st models.State, ref string) (models.Round, bool) {
	if idx := st.RoundByID(ref); idx >= 0 {
		return st.Rounds[idx], true
	}
	for i := range st.Rounds {
		if strings.EqualFold(st.Rounds[i].Name, ref) {
			return st.Rounds[i], true
		}
	}
	return models.Round{}, false
}

// --- tool definitions ---

func buildStateSummaryTool() mcpgo.Tool {
	return mcpgo.NewTool("state_summary",
		mcpgo.WithDescription("Summarize the fundraising pipeline: rounds with their investors, unsorted investors, and totals."),
	)
}

func buildAddRoundTool() mcpgo.Tool {
	return mcpgo.NewTool("add_round",
		mcpgo.WithDescription("Create a fundraising round."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("Round name, e.g. Seed"),
		),
		mcpgo.WithNumber("valuation_cap",
			mcpgo.Description("Post-money valuation cap in base currency units"),
		),
		mcpgo.WithNumber("target_amount",
			mcpgo.Description("Amount the round aims to raise"),
		),
	)
}

func buildAddVCTool() mcpgo.Tool {
	return mcpgo.NewTool("add_vc",
		mcpgo.WithDescription("Add an investor, optionally directly into a round."),
		mcpgo.WithString("name",
			mcpgo.Required(),
			mcpgo.Description("Investor name"),
		),
		mcpgo.WithString("email",
			mcpgo.Description("Contact email"),
		),
		mcpgo.WithString("website",
			mcpgo.Description("Website"),
		),
		mcpgo.WithString("round",
			mcpgo.Description("Round id or name; omitted means unsorted"),
		),
	)
}

func buildMoveVCTool() mcpgo.Tool {
	return mcpgo.NewTool("move_vc",
		mcpgo.WithDescription("Move an investor into a round, or to unsorted when no round is given."),
		mcpgo.WithString("vc_id",
			mcpgo.Required(),
			mcpgo.Description("Investor id"),
		),
		mcpgo.WithString("round",
			mcpgo.Description("Destination round id or name; omitted means unsorted"),
		),
		mcpgo.WithNumber("index",
			mcpgo.Description("Position in the destination list (default: end)"),
		),
	)
}

func buildSetVCStatusTool() mcpgo.Tool {
	return mcpgo.NewTool("set_vc_status",
		mcpgo.WithDescription("Change an investor's pipeline status. Finalized requires a positive purchase amount."),
		mcpgo.WithString("vc_id",
			mcpgo.Required(),
			mcpgo.Description("Investor id"),
		),
		mcpgo.WithString("status",
			mcpgo.Required(),
			mcpgo.Description("One of not-contacted, contacted, close-to-buying, finalized, likely-passed, banished"),
		),
		mcpgo.WithNumber("purchase_amount",
			mcpgo.Description("Committed amount, required for finalized"),
		),
	)
}

func buildAddMeetingNoteTool() mcpgo.Tool {
	return mcpgo.NewTool("add_meeting_note",
		mcpgo.WithDescription("Record a timestamped meeting note for an investor."),
		mcpgo.WithString("vc_id",
			mcpgo.Required(),
			mcpgo.Description("Investor id"),
		),
		mcpgo.WithString("content",
			mcpgo.Required(),
			mcpgo.Description("Note text"),
		),
	)
}

func buildEquityTool() mcpgo.Tool {
	return mcpgo.NewTool("equity",
		mcpgo.WithDescription("Compute actual and target equity dilution across rounds, plus remaining founder equity."),
	)
}

func buildBriefTool() mcpgo.Tool {
	return mcpgo.NewTool("vc_brief",
		mcpgo.WithDescription("Summarize an investor's meeting notes."),
		mcpgo.WithString("vc_id",
			mcpgo.Required(),
			mcpgo.Description("Investor id"),
		),
	)
}

// --- tool handlers ---

type roundSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ValuationCap float64   `json:"valuation_cap"`
	TargetAmount float64   `json:"target_amount"`
	Investors    []vcBrief `json:"investors"`
}

type vcBrief struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Status         models.VCStatus `json:"status"`
	PurchaseAmount *float64        `json:"purchase_amount,omitempty"`
	Notes          int             `json:"notes"`
}

func briefOf(vc models.VC) vcBrief {
	return vcBrief{ID: vc.ID, Name: vc.Name, Status: vc.Status, PurchaseAmount: vc.PurchaseAmount, Notes: len(vc.MeetingNotes)}
}

// handleStateSummary lists rounds in order with their investors.
func (s *Server) handleStateSummary(_ context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	st := s.dispatcher.State()
	rounds := make([]roundSummary, 0, len(st.Rounds))
	for i := range st.Rounds {
		r := st.Rounds[i]
		rs := roundSummary{ID: r.ID, Name: r.Name, ValuationCap: r.ValuationCap, TargetAmount: r.TargetAmount, Investors: []vcBrief{}}
		for _, id := range r.VCs {
			if vc, ok := st.VCs[id]; ok {
				rs.Investors = append(rs.Investors, briefOf(vc))
			}
		}
		rounds = append(rounds, rs)
	}
	unsorted := make([]vcBrief, 0, len(st.UnsortedVCs))
	for _, id := range st.UnsortedVCs {
		if vc, ok := st.VCs[id]; ok {
			unsorted = append(unsorted, briefOf(vc))
		}
	}
	return toolResultJSON(map[string]any{
		"rounds":     rounds,
		"unsorted":   unsorted,
		"stats":      st.Summarize(),
		"scratchpad": st.Scratchpad,
	})
}

// handleAddRound appends a new round.
func (s *Server) handleAddRound(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		return mcpgo.NewToolResultError("name is required and must not be empty"), nil
	}
	valuationCap := req.GetFloat("valuation_cap", 0)
	target := req.GetFloat("target_amount", 0)
	if valuationCap < 0 || target < 0 {
		return mcpgo.NewToolResultError("valuation_cap and target_amount must not be negative"), nil
	}
	r := state.NewRound(name, valuationCap, target)
	return s.dispatch(state.AddRound{Round: r}, r.ID)
}

// handleAddVC adds an investor to a round or to unsorted.
func (s *Server) handleAddVC(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		return mcpgo.NewToolResultError("name is required and must not be empty"), nil
	}
	var roundID string
	if ref := req.GetString("round", ""); ref != "" {
		r, ok := roundByName(s.dispatcher.State(), ref)
		if !ok {
			return mcpgo.NewToolResultErrorf("round %q not found", ref), nil
		}
		roundID = r.ID
	}
	vc := state.NewVC(name, models.StatusNotContacted, nil)
	vc.Email = req.GetString("email", "")
	vc.Website = req.GetString("website", "")
	return s.dispatch(state.AddVC{VC: vc, RoundID: roundID}, vc.ID)
}

// handleMoveVC moves an investor from wherever it currently sits.
func (s *Server) handleMoveVC(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	vcID := req.GetString("vc_id", "")
	st := s.dispatcher.State()
	from, placed := st.ContainerOf(vcID)
	if !placed {
		return mcpgo.NewToolResultErrorf("vc %q not found", vcID), nil
	}
	var to string
	if ref := req.GetString("round", ""); ref != "" {
		r, ok := roundByName(st, ref)
		if !ok {
			return mcpgo.NewToolResultErrorf("round %q not found", ref), nil
		}
		to = r.ID
	}
	index := req.GetInt("index", -1)
	return s.dispatch(state.MoveVC{VCID: vcID, FromRoundID: from, ToRoundID: to, Index: index}, vcID)
}

// handleSetVCStatus changes an investor's status.
func (s *Server) handleSetVCStatus(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	vcID := req.GetString("vc_id", "")
	if _, ok := s.dispatcher.State().VCs[vcID]; !ok {
		return mcpgo.NewToolResultErrorf("vc %q not found", vcID), nil
	}
	status := models.VCStatus(req.GetString("status", ""))
	if !status.IsValid() {
		return mcpgo.NewToolResultErrorf("invalid status %q", status), nil
	}
	act := state.SetVCStatus{VCID: vcID, Status: status}
	if amt := req.GetFloat("purchase_amount", 0); amt != 0 {
		act.PurchaseAmount = models.Amount(amt)
	}
	return s.dispatch(act, vcID)
}

// handleAddMeetingNote appends a note stamped with the current time.
func (s *Server) handleAddMeetingNote(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	vcID := req.GetString("vc_id", "")
	if _, ok := s.dispatcher.State().VCs[vcID]; !ok {
		return mcpgo.NewToolResultErrorf("vc %q not found", vcID), nil
	}
	content := req.GetString("content", "")
	if strings.TrimSpace(content) == "" {
		return mcpgo.NewToolResultError("content is required and must not be empty"), nil
	}
	note := state.NewMeetingNote(content)
	return s.dispatch(state.AddMeetingNote{VCID: vcID, Note: note}, note.ID)
}

// handleEquity returns the equity series for the current state.
func (s *Server) handleEquity(_ context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	series := equity.Compute(s.dispatcher.State(), s.equityOpts)
	return toolResultJSON(map[string]any{
		"actual":         series.Actual,
		"target":         series.Target,
		"founder_equity": equity.FounderEquity(series.Actual),
	})
}

// handleBrief summarizes an investor's meeting notes.
func (s *Server) handleBrief(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	vcID := req.GetString("vc_id", "")
	st := s.dispatcher.State()
	vc, ok := st.VCs[vcID]
	if !ok {
		return mcpgo.NewToolResultErrorf("vc %q not found", vcID), nil
	}
	var round *models.Round
	if roundID, _ := st.ContainerOf(vcID); roundID != "" {
		round = &st.Rounds[st.RoundByID(roundID)]
	}
	brief, err := s.briefer.Brief(ctx, vc, round)
	if err != nil {
		if errors.Is(err, insight.ErrNoNotes) {
			return mcpgo.NewToolResultError("vc has no meeting notes"), nil
		}
		return mcpgo.NewToolResultErrorf("brief failed: %s", err.Error()), nil
	}
	return toolResultJSON(brief)
}
