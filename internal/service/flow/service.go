// Package flow stores bot flows and their node graphs.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"botpos-chat-backend/internal/apperror"
	"botpos-chat-backend/internal/database"
	"botpos-chat-backend/internal/flowgraph"
	"botpos-chat-backend/internal/logging"
	"botpos-chat-backend/internal/model"

	"github.com/google/uuid"
)

const maxSaveAttempts = 5

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func New(db *database.Database, logger *slog.Logger) *Service {
	return NewWithRepository(NewDynamoRepository(db), logger, time.Now)
}

func NewWithRepository(repo Repository, logger *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, logger: logging.OrDefault(logger), now: now}
}

type CreateFlowParams struct {
	Name         string
	Description  string
	Channel      string
	TriggerType  string
	TriggerValue string
	IsActive     bool
}

// UpdateFlowParams is a partial update; nil fields keep their value.
type UpdateFlowParams struct {
	Name         *string
	Description  *string
	Channel      *string
	TriggerType  *string
	TriggerValue *string
	IsActive     *bool
}

func flowNotFound(err error) error {
	return apperror.NotFound("flow not found", err)
}

func (s *Service) ListFlows(ctx context.Context) ([]model.FlowItem, error) {
	flows, err := s.repo.ListFlows(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to list flows", err)
	}
	sort.Slice(flows, func(i, j int) bool {
		if flows[i].UpdatedAt != flows[j].UpdatedAt {
			return flows[i].UpdatedAt > flows[j].UpdatedAt
		}
		return flows[i].FlowID < flows[j].FlowID
	})
	return flows, nil
}

func (s *Service) GetFlow(ctx context.Context, flowID string) (model.FlowItem, error) {
	flow, err := s.repo.GetFlow(ctx, strings.TrimSpace(flowID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.FlowItem{}, flowNotFound(err)
		}
		return model.FlowItem{}, apperror.Internal("failed to load flow", err)
	}
	return flow, nil
}

// CreateFlow stores a new flow whose graph holds a single start node.
func (s *Service) CreateFlow(ctx context.Context, p CreateFlowParams) (model.FlowItem, error) {
	at := s.now().UTC()
	flow := model.FlowItem{
		FlowID:       uuid.NewString(),
		Name:         strings.TrimSpace(p.Name),
		Description:  strings.TrimSpace(p.Description),
		Channel:      model.FlowChannel(strings.ToLower(strings.TrimSpace(p.Channel))),
		TriggerType:  model.TriggerType(strings.ToLower(strings.TrimSpace(p.TriggerType))),
		TriggerValue: strings.TrimSpace(p.TriggerValue),
		IsActive:     p.IsActive,
		CreatedAt:    at.Format(time.RFC3339),
		UpdatedAt:    at.Format(time.RFC3339),
	}
	if flow.Channel == "" {
		flow.Channel = model.FlowChannelAll
	}
	if err := validateFlow(flow); err != nil {
		return model.FlowItem{}, err
	}

	g := flowgraph.New()
	if _, err := g.AddNode(flowgraph.NodeStart); err != nil {
		return model.FlowItem{}, apperror.Internal("failed to seed flow graph", err)
	}
	flow.GraphRevision = s.nextRevision(0)
	nodes, connections, err := graphRows(flow.FlowID, flow.GraphRevision, g)
	if err != nil {
		return model.FlowItem{}, apperror.Internal("failed to encode flow graph", err)
	}
	if err := s.repo.WriteGraph(ctx, nodes, connections); err != nil {
		return model.FlowItem{}, apperror.PersistFailed("failed to store flow graph", err)
	}
	if err := s.repo.PutFlow(ctx, flow); err != nil {
		return model.FlowItem{}, apperror.PersistFailed("failed to store flow", err)
	}
	s.logger.Info("flow created", "flowId", flow.FlowID, "trigger", flow.TriggerType)
	return flow, nil
}

func validateFlow(flow model.FlowItem) error {
	if flow.Name == "" {
		return apperror.Validation("flow name is required")
	}
	if !flow.Channel.Valid() {
		return apperror.Validation("channel must be all, telegram, viber or messenger")
	}
	if !flow.TriggerType.Valid() {
		return apperror.Validation("triggerType must be keyword, command or welcome")
	}
	if flow.TriggerType != model.TriggerWelcome && flow.TriggerValue == "" {
		return apperror.Validation("triggerValue is required for keyword and command triggers")
	}
	return nil
}

func (s *Service) UpdateFlow(ctx context.Context, flowID string, p UpdateFlowParams) (model.FlowItem, error) {
	flow, err := s.GetFlow(ctx, flowID)
	if err != nil {
		return model.FlowItem{}, err
	}
	if p.Name != nil {
		flow.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		flow.Description = strings.TrimSpace(*p.Description)
	}
	if p.Channel != nil {
		flow.Channel = model.FlowChannel(strings.ToLower(strings.TrimSpace(*p.Channel)))
	}
	if p.TriggerType != nil {
		flow.TriggerType = model.TriggerType(strings.ToLower(strings.TrimSpace(*p.TriggerType)))
	}
	if p.TriggerValue != nil {
		flow.TriggerValue = strings.TrimSpace(*p.TriggerValue)
	}
	if p.IsActive != nil {
		flow.IsActive = *p.IsActive
	}
	if err := validateFlow(flow); err != nil {
		return model.FlowItem{}, err
	}

	// Re-read the revision so a concurrent graph save is not rolled back.
	if current, err := s.repo.GetFlow(ctx, flow.FlowID); err == nil {
		flow.GraphRevision = current.GraphRevision
	}
	flow.UpdatedAt = s.now().UTC().Format(time.RFC3339)
	if err := s.repo.PutFlow(ctx, flow); err != nil {
		return model.FlowItem{}, apperror.PersistFailed("failed to update flow", err)
	}
	return flow, nil
}

// DeleteFlow removes the flow and the nodes and connections of every
// revision it ever saved.
func (s *Service) DeleteFlow(ctx context.Context, flowID string) error {
	flow, err := s.GetFlow(ctx, flowID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteFlow(ctx, flow.FlowID); err != nil {
		return apperror.PersistFailed("failed to delete flow", err)
	}
	if err := s.repo.DeleteGraphRows(ctx, flow.FlowID); err != nil {
		return apperror.PersistFailed("flow deleted but its graph rows remain", err)
	}
	return nil
}

// nextRevision picks a revision number that no other save of the same flow
// will choose.
func (s *Service) nextRevision(prev int64) int64 {
	next := s.now().UnixNano()
	if next <= prev {
		next = prev + 1
	}
	return next
}
