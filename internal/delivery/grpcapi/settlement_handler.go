package grpcapi

import (
	"context"
	"log/slog"

	"github.com/LavaJover/shvark-settlement-service/internal/delivery/grpcapi/dto"
	"github.com/LavaJover/shvark-settlement-service/internal/delivery/grpcapi/mappers"
	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type TriggerEvaluator interface {
	Evaluate(ctx context.Context, tc domain.TriggerContext) domain.EvaluationResult
}

type Executor interface {
	Execute(ctx context.Context, req domain.ExecuteRequest) (*domain.ExecuteResult, error)
	ExecuteManual(ctx context.Context, req domain.ExecuteRequest) (*domain.ExecuteResult, error)
}

type QuoteProvider interface {
	GetQuote(ctx context.Context, req domain.QuoteRequest) (*domain.FXQuote, error)
	LockQuote(ctx context.Context, quoteID string) (*domain.LockedQuote, error)
}

type SettlementHandler struct {
	evaluator TriggerEvaluator
	executor  Executor
	quotes    QuoteProvider
	rules     usecase.RuleUsecase
	logger    *slog.Logger
}

func NewSettlementHandler(
	evaluator TriggerEvaluator,
	executor Executor,
	quotes QuoteProvider,
	rules usecase.RuleUsecase,
	logger *slog.Logger,
) *SettlementHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettlementHandler{
		evaluator: evaluator,
		executor:  executor,
		quotes:    quotes,
		rules:     rules,
		logger:    logger,
	}
}

func (h *SettlementHandler) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req dto.EvaluateRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.TenantID == "" {
		return nil, status.Error(codes.InvalidArgument, "tenant_id is required")
	}

	result := h.evaluator.Evaluate(ctx, mappers.ToTriggerContext(req))
	return encode(dto.EvaluateResponse{
		ShouldTrigger: result.ShouldTrigger,
		Reason:        result.Reason,
		Rules:         mappers.ToRuleResponses(result.Rules),
	})
}

// Execute answers with the execution result even when dispatch failed; only
// errors raised before a record exists become gRPC errors.
func (h *SettlementHandler) Execute(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req dto.ExecuteRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.TriggerReason == "" {
		req.TriggerReason = domain.TriggerReasonManual
	}

	result, err := h.executor.Execute(ctx, mappers.ToExecuteRequest(req))
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(mappers.ToExecuteResponse(result))
}

func (h *SettlementHandler) ExecuteManual(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req dto.ExecuteRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	result, err := h.executor.ExecuteManual(ctx, mappers.ToExecuteRequest(req))
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(mappers.ToExecuteResponse(result))
}

func (h *SettlementHandler) GetQuote(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req dto.QuoteRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	quote, err := h.quotes.GetQuote(ctx, mappers.ToQuoteRequest(req))
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(quote)
}

func (h *SettlementHandler) LockQuote(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req dto.LockQuoteRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.QuoteID == "" {
		return nil, status.Error(codes.InvalidArgument, "quote_id is required")
	}

	lock, err := h.quotes.LockQuote(ctx, req.QuoteID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(lock)
}

func (h *SettlementHandler) CreateRule(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req dto.CreateRuleRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	rule, err := mappers.ToDomainRule(req)
	if err != nil {
		return nil, toStatus(err)
	}
	created, err := h.rules.CreateRule(ctx, rule)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(mappers.ToRuleResponse(created))
}

func (h *SettlementHandler) UpdateRule(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req dto.UpdateRuleRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.TenantID == "" || req.RuleID == "" {
		return nil, status.Error(codes.InvalidArgument, "tenant_id and rule_id are required")
	}

	var currentType domain.TriggerType
	if req.TriggerType == nil && len(req.TriggerConfig) > 0 && string(req.TriggerConfig) != "null" {
		current, err := h.rules.GetRule(ctx, req.TenantID, req.RuleID)
		if err != nil {
			return nil, toStatus(err)
		}
		currentType = current.TriggerType
	}

	patch, err := mappers.ToRuleUpdate(req, currentType)
	if err != nil {
		return nil, toStatus(err)
	}
	updated, err := h.rules.UpdateRule(ctx, req.TenantID, req.RuleID, patch)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(mappers.ToRuleResponse(updated))
}

func (h *SettlementHandler) DeleteRule(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req dto.RuleRef
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	if err := h.rules.DeleteRule(ctx, req.TenantID, req.RuleID); err != nil {
		return nil, toStatus(err)
	}
	return encode(dto.DeleteRuleResponse{Deleted: true})
}

func (h *SettlementHandler) GetRule(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req dto.RuleRef
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	rule, err := h.rules.GetRule(ctx, req.TenantID, req.RuleID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(mappers.ToRuleResponse(rule))
}

func (h *SettlementHandler) ListRules(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req dto.ListRulesRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	rules, err := h.rules.ListRules(ctx, req.TenantID, domain.RuleFilter{
		Enabled:     req.Enabled,
		TriggerType: domain.TriggerType(req.TriggerType),
		WalletID:    req.WalletID,
		Limit:       req.Limit,
		Offset:      req.Offset,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(dto.ListRulesResponse{Rules: mappers.ToRuleResponses(rules)})
}

func (h *SettlementHandler) GetExecution(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req dto.ExecutionRef
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	execution, err := h.rules.GetExecution(ctx, req.TenantID, req.ExecutionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(mappers.ToExecutionResponse(execution))
}

func (h *SettlementHandler) ListExecutions(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req dto.ListExecutionsRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	executions, err := h.rules.ListExecutions(ctx, req.TenantID, domain.ExecutionFilter{
		RuleID: req.RuleID,
		Status: domain.ExecutionStatus(req.Status),
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	out := make([]dto.ExecutionResponse, 0, len(executions))
	for _, execution := range executions {
		out = append(out, mappers.ToExecutionResponse(execution))
	}
	return encode(dto.ListExecutionsResponse{Executions: out})
}
