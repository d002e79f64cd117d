package flow

import (
	"context"
	"errors"
	"strings"

	"botpos-chat-backend/internal/apperror"
	"botpos-chat-backend/internal/flowgraph"
)

type AddNodeParams struct {
	Type     string
	Position *flowgraph.Position
	// Data is a JSON object merged over the type's default config.
	Data []byte
}

type UpdateNodeParams struct {
	Position *flowgraph.Position
	Data     []byte
}

type ConnectParams struct {
	Source string
	Target string
	Port   string
	Value  string
}

// edit opens an editor on the live graph, applies fn and saves. Nothing is
// written when fn fails.
func (s *Service) edit(ctx context.Context, flowID string, fn func(ed *flowgraph.Editor) error) (int64, error) {
	ed, err := flowgraph.Open(ctx, s, flowID)
	if err != nil {
		return 0, err
	}
	if err := fn(ed); err != nil {
		return 0, editError(err)
	}
	if err := ed.Save(ctx); err != nil {
		return 0, editError(err)
	}
	flow, err := s.GetFlow(ctx, flowID)
	if err != nil {
		return 0, err
	}
	return flow.GraphRevision, nil
}

func editError(err error) error {
	if _, ok := apperror.As(err); ok {
		return err
	}
	var verr *flowgraph.ValidationError
	switch {
	case errors.As(err, &verr):
		return graphError(err)
	case errors.Is(err, flowgraph.ErrNodeNotFound):
		return apperror.NotFound("node not found", err)
	case errors.Is(err, flowgraph.ErrConnectionNotFound):
		return apperror.NotFound("connection not found", err)
	case errors.Is(err, flowgraph.ErrPortInUse), errors.Is(err, flowgraph.ErrDuplicateStart):
		return apperror.Conflict(err.Error(), err)
	}
	return apperror.New(apperror.CodeValidation, err.Error(), err)
}

func (s *Service) AddNode(ctx context.Context, flowID string, p AddNodeParams) (flowgraph.Node, int64, error) {
	t := flowgraph.NodeType(strings.ToLower(strings.TrimSpace(p.Type)))
	if !t.Valid() {
		return flowgraph.Node{}, 0, apperror.Validation("node type must be start, message, question, action or condition")
	}

	var node flowgraph.Node
	rev, err := s.edit(ctx, flowID, func(ed *flowgraph.Editor) error {
		n, err := ed.AddNode(t)
		if err != nil {
			return err
		}
		if len(p.Data) > 0 {
			if n, err = ed.UpdateNodeConfig(n.ID, p.Data); err != nil {
				return err
			}
		}
		if p.Position != nil {
			if n, err = ed.MoveNode(n.ID, *p.Position); err != nil {
				return err
			}
		}
		node = n
		return nil
	})
	return node, rev, err
}

func (s *Service) UpdateNode(ctx context.Context, flowID, nodeID string, p UpdateNodeParams) (flowgraph.Node, int64, error) {
	var node flowgraph.Node
	rev, err := s.edit(ctx, flowID, func(ed *flowgraph.Editor) error {
		n, ok := ed.Graph().Node(nodeID)
		if !ok {
			return flowgraph.ErrNodeNotFound
		}
		var err error
		if len(p.Data) > 0 {
			if n, err = ed.UpdateNodeConfig(nodeID, p.Data); err != nil {
				return err
			}
		}
		if p.Position != nil {
			if n, err = ed.MoveNode(nodeID, *p.Position); err != nil {
				return err
			}
		}
		node = n
		return nil
	})
	return node, rev, err
}

func (s *Service) DeleteNode(ctx context.Context, flowID, nodeID string) (int64, error) {
	return s.edit(ctx, flowID, func(ed *flowgraph.Editor) error {
		return ed.DeleteNode(nodeID)
	})
}

// Connect joins two nodes. Port picks a condition branch; Value makes the
// connection match a captured answer.
func (s *Service) Connect(ctx context.Context, flowID string, p ConnectParams) (flowgraph.Connection, int64, error) {
	port := flowgraph.ConditionType(strings.ToLower(strings.TrimSpace(p.Port)))
	if port != "" && p.Value != "" {
		return flowgraph.Connection{}, 0, apperror.Validation("port and value cannot be combined")
	}

	var conn flowgraph.Connection
	rev, err := s.edit(ctx, flowID, func(ed *flowgraph.Editor) (err error) {
		switch {
		case port != "":
			conn, err = ed.ConnectPort(p.Source, p.Target, port)
		case p.Value != "":
			conn, err = ed.ConnectWhen(p.Source, p.Target, p.Value)
		default:
			conn, err = ed.Connect(p.Source, p.Target)
		}
		return err
	})
	return conn, rev, err
}

func (s *Service) DeleteConnection(ctx context.Context, flowID, connectionID string) (int64, error) {
	return s.edit(ctx, flowID, func(ed *flowgraph.Editor) error {
		return ed.DeleteConnection(connectionID)
	})
}
