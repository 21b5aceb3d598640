package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/backupwatch/core"
	"github.com/huangsam/backupwatch/core/algo"
	"github.com/huangsam/backupwatch/internal/backend"
	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

const (
	defaultSlots = 5
	maxSlots     = 1000
)

var weekdayCodes = map[string]int{"mo": 0, "tu": 1, "we": 2, "th": 3, "fr": 4, "sa": 5, "su": 6}

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg  *contract.Config
	metadata contract.MetadataSource
	logger   *zap.Logger
}

// dryRunEnv builds an environment whose sink only counts.
func (h *toolHandler) dryRunEnv(cfg *contract.Config) *core.Env {
	nop := &backend.NopSink{}
	return &core.Env{
		Logger:    h.logger,
		Metadata:  h.metadata,
		Sink:      nop,
		Watermark: nop,
		Workers:   cfg.Workers,
	}
}

// configFromRequest applies the shared limit argument to a copy of the base config.
func (h *toolHandler) configFromRequest(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	cfg.DryRun = true
	if l := request.GetInt("limit", 0); l != 0 {
		if err := contract.ValidateAlertLimit(l); err != nil {
			return nil, err
		}
		cfg.AlertLimit = l
	}
	return cfg, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(jsonData))
}

func (h *toolHandler) handleAnalyzeSchedules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.configFromRequest(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	now := time.Now()
	if s := request.GetString("start", ""); s != "" {
		if cfg.Start, err = contract.ParseTimeArg(s, now); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid start: %v", err)), nil
		}
	}
	cfg.Stop = now
	if s := request.GetString("stop", ""); s != "" {
		if cfg.Stop, err = contract.ParseTimeArg(s, now); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid stop: %v", err)), nil
		}
	}

	result, err := core.RunScheduleAnalysis(ctx, h.dryRunEnv(cfg), cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}
	return jsonResult(result), nil
}

func (h *toolHandler) handleNextSlots(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	weekdays, err := parseWeekdays(request.GetString("weekdays", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid weekdays: %v", err)), nil
	}
	sched := schema.Schedule{
		Name:     "preview",
		Base:     schema.ParseScheduleBase(request.GetString("base", "")),
		Count:    request.GetInt("count", 0),
		Anchor:   request.GetString("anchor", ""),
		Weekdays: weekdays,
	}
	rec, err := algo.NewRecurrence(sched)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid schedule: %v", err)), nil
	}

	from := time.Now()
	if s := request.GetString("from", ""); s != "" {
		if from, err = contract.ParseTimeArg(s, from); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid from: %v", err)), nil
		}
	}
	n := request.GetInt("n", defaultSlots)
	if n < 1 || n > maxSlots {
		return mcp.NewToolResultError(fmt.Sprintf("n must be between 1 and %d", maxSlots)), nil
	}

	resp := struct {
		Slots     []time.Time `json:"slots"`
		Tolerance string      `json:"tolerance"`
		Warning   string      `json:"warning,omitempty"`
	}{
		Slots:     rec.Slots(from, n),
		Tolerance: rec.Tolerance().String(),
	}
	if anchorErr := rec.AnchorErr(); anchorErr != nil {
		resp.Warning = anchorErr.Error()
	}
	return jsonResult(resp), nil
}

func (h *toolHandler) handleCheckSizes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.configFromRequest(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	result, err := core.RunSizeAnalysis(ctx, h.dryRunEnv(cfg), cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("size analysis failed: %v", err)), nil
	}
	return jsonResult(result), nil
}

func (h *toolHandler) handleCheckStorage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.configFromRequest(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	result, err := core.RunStorageAnalysis(ctx, h.dryRunEnv(cfg), cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("storage analysis failed: %v", err)), nil
	}
	return jsonResult(result), nil
}

// parseWeekdays reads a comma separated list of two letter day codes.
// An empty string enables every day.
func parseWeekdays(s string) ([7]bool, error) {
	var days [7]bool
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "all" {
		for i := range days {
			days[i] = true
		}
		return days, nil
	}
	for part := range strings.SplitSeq(s, ",") {
		code := strings.TrimSpace(part)
		if len(code) > 2 {
			code = code[:2]
		}
		idx, ok := weekdayCodes[code]
		if !ok {
			return days, fmt.Errorf("unknown weekday %q", part)
		}
		days[idx] = true
	}
	return days, nil
}
