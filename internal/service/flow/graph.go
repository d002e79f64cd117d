package flow

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"botpos-chat-backend/internal/apperror"
	"botpos-chat-backend/internal/flowgraph"
	"botpos-chat-backend/internal/model"
)

// Snapshot is one stored revision of a flow graph.
type Snapshot struct {
	FlowID   string
	Revision int64
	Graph    *flowgraph.Graph
	Warnings []string
}

// LoadGraph returns the graph of the flow's live revision.
func (s *Service) LoadGraph(ctx context.Context, flowID string) (*flowgraph.Graph, error) {
	snap, err := s.Graph(ctx, flowID)
	if err != nil {
		return nil, err
	}
	return snap.Graph, nil
}

// Graph reads the live revision. A save that lands while the rows are being
// listed moves the revision and drops the old rows, so the flow is read again
// afterwards and the load retried until the revision holds still.
func (s *Service) Graph(ctx context.Context, flowID string) (Snapshot, error) {
	flow, err := s.GetFlow(ctx, flowID)
	if err != nil {
		return Snapshot{}, err
	}
	for attempt := 1; ; attempt++ {
		g, err := s.readRevision(ctx, flow.FlowID, flow.GraphRevision)
		if err != nil {
			return Snapshot{}, err
		}
		current, err := s.GetFlow(ctx, flow.FlowID)
		if err != nil {
			return Snapshot{}, err
		}
		if current.GraphRevision == flow.GraphRevision {
			return Snapshot{FlowID: flow.FlowID, Revision: flow.GraphRevision, Graph: g, Warnings: g.Lint()}, nil
		}
		if attempt == maxSaveAttempts {
			return Snapshot{}, apperror.Conflict("flow graph is being saved, try again", ErrRevisionMoved)
		}
		s.logger.Debug("flow revision moved during load", "flowId", flow.FlowID, "from", flow.GraphRevision, "to", current.GraphRevision)
		flow = current
	}
}

func (s *Service) readRevision(ctx context.Context, flowID string, revision int64) (*flowgraph.Graph, error) {
	if revision == 0 {
		return flowgraph.New(), nil
	}
	nodes, connections, err := s.repo.ListGraph(ctx, model.GraphKey(flowID, revision))
	if err != nil {
		return nil, apperror.Internal("failed to load flow graph", err)
	}
	g, err := graphFromRows(nodes, connections)
	if err != nil {
		return nil, apperror.Internal("stored flow graph is unreadable", err)
	}
	return g, nil
}

// SaveGraph replaces the flow's graph. Rows go under a fresh revision and
// the flow is then pointed at it, so readers see the old graph or the new
// one and never a mix. When two saves race the later one wins.
func (s *Service) SaveGraph(ctx context.Context, flowID string, g *flowgraph.Graph) error {
	_, err := s.save(ctx, flowID, g)
	return err
}

// SaveDocument stores a graph sent by the dashboard editor.
func (s *Service) SaveDocument(ctx context.Context, flowID string, doc flowgraph.Document) (Snapshot, error) {
	g, err := flowgraph.FromDocument(doc)
	if err != nil {
		return Snapshot{}, apperror.Validation(err.Error())
	}
	rev, err := s.save(ctx, flowID, g)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{FlowID: flowID, Revision: rev, Graph: g, Warnings: g.Lint()}, nil
}

func (s *Service) save(ctx context.Context, flowID string, g *flowgraph.Graph) (int64, error) {
	if err := graphError(g.Validate()); err != nil {
		return 0, err
	}
	flow, err := s.GetFlow(ctx, flowID)
	if err != nil {
		return 0, err
	}

	revision := s.nextRevision(flow.GraphRevision)
	nodes, connections, err := graphRows(flow.FlowID, revision, g)
	if err != nil {
		return 0, apperror.Internal("failed to encode flow graph", err)
	}
	if err := s.repo.WriteGraph(ctx, nodes, connections); err != nil {
		s.discard(ctx, flow.FlowID, revision)
		return 0, apperror.PersistFailed("failed to store flow graph", err)
	}

	prev := flow.GraphRevision
	at := s.now().UTC().Format(time.RFC3339)
	for attempt := 1; ; attempt++ {
		err := s.repo.SetGraphRevision(ctx, flow.FlowID, prev, revision, at)
		if err == nil {
			break
		}
		if errors.Is(err, ErrNotFound) {
			s.discard(ctx, flow.FlowID, revision)
			return 0, flowNotFound(err)
		}
		if !errors.Is(err, ErrRevisionMoved) || attempt == maxSaveAttempts {
			s.discard(ctx, flow.FlowID, revision)
			return 0, apperror.PersistFailed("failed to store flow graph", err)
		}
		current, getErr := s.repo.GetFlow(ctx, flow.FlowID)
		if getErr != nil {
			s.discard(ctx, flow.FlowID, revision)
			return 0, apperror.PersistFailed("failed to store flow graph", getErr)
		}
		prev = current.GraphRevision
	}

	if prev != 0 {
		s.discard(ctx, flow.FlowID, prev)
	}
	return revision, nil
}

// discard removes rows of a revision nobody points at. Leftovers are
// harmless, so failures are only logged.
func (s *Service) discard(ctx context.Context, flowID string, revision int64) {
	if err := s.repo.DeleteGraphRows(context.WithoutCancel(ctx), flowID, revision); err != nil {
		s.logger.Warn("failed to remove unused flow revision", "flowId", flowID, "revision", revision, "error", err)
	}
}

// graphError maps graph validation problems onto service errors. Missing
// connection endpoints are a conflict with the stored nodes; anything else
// is invalid input.
func graphError(err error) error {
	if err == nil {
		return nil
	}
	var verr *flowgraph.ValidationError
	if errors.As(err, &verr) && verr.Has(flowgraph.ProblemDangling) {
		return apperror.Conflict(verr.Error(), verr)
	}
	return apperror.New(apperror.CodeValidation, err.Error(), err)
}

func graphRows(flowID string, revision int64, g *flowgraph.Graph) ([]model.FlowNodeItem, []model.FlowConnectionItem, error) {
	doc, err := g.Document()
	if err != nil {
		return nil, nil, err
	}
	key := model.GraphKey(flowID, revision)

	nodes := make([]model.FlowNodeItem, 0, len(doc.Nodes))
	for i, n := range doc.Nodes {
		nodes = append(nodes, model.FlowNodeItem{
			PK:        model.FlowNodePK(flowID, revision, n.ID),
			GraphKey:  key,
			FlowID:    flowID,
			Revision:  revision,
			NodeID:    n.ID,
			Type:      string(n.Type),
			PositionX: n.Position.X,
			PositionY: n.Position.Y,
			Data:      string(n.Data),
			Ordinal:   i,
		})
	}

	connections := make([]model.FlowConnectionItem, 0, len(doc.Connections))
	for i, c := range doc.Connections {
		connections = append(connections, model.FlowConnectionItem{
			PK:             model.FlowConnectionPK(flowID, revision, c.ID),
			GraphKey:       key,
			FlowID:         flowID,
			Revision:       revision,
			ConnectionID:   c.ID,
			SourceNodeID:   c.Source,
			TargetNodeID:   c.Target,
			SourceHandle:   c.SourceHandle,
			Label:          c.Label,
			ConditionType:  string(c.Data.ConditionType),
			ConditionValue: c.Data.ConditionValue,
			Ordinal:        i,
		})
	}
	return nodes, connections, nil
}

func graphFromRows(nodes []model.FlowNodeItem, connections []model.FlowConnectionItem) (*flowgraph.Graph, error) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Ordinal < nodes[j].Ordinal })
	sort.Slice(connections, func(i, j int) bool { return connections[i].Ordinal < connections[j].Ordinal })

	doc := flowgraph.Document{
		Nodes:       make([]flowgraph.NodeDocument, 0, len(nodes)),
		Connections: make([]flowgraph.ConnectionDocument, 0, len(connections)),
	}
	for _, n := range nodes {
		data := json.RawMessage(n.Data)
		if len(data) == 0 {
			data = json.RawMessage("{}")
		}
		doc.Nodes = append(doc.Nodes, flowgraph.NodeDocument{
			ID:       n.NodeID,
			Type:     flowgraph.NodeType(n.Type),
			Position: flowgraph.Position{X: n.PositionX, Y: n.PositionY},
			Data:     data,
		})
	}
	for _, c := range connections {
		doc.Connections = append(doc.Connections, flowgraph.ConnectionDocument{
			ID:           c.ConnectionID,
			Source:       c.SourceNodeID,
			Target:       c.TargetNodeID,
			SourceHandle: c.SourceHandle,
			Label:        c.Label,
			Data: flowgraph.ConnectionData{
				ConditionType:  flowgraph.ConditionType(c.ConditionType),
				ConditionValue: c.ConditionValue,
			},
		})
	}
	return flowgraph.FromDocument(doc)
}
