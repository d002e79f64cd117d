package flow

import (
	"context"
	"sync"

	"botpos-chat-backend/internal/model"
)

type MemoryRepository struct {
	mu          sync.Mutex
	flows       map[string]model.FlowItem
	nodes       map[string]model.FlowNodeItem
	connections map[string]model.FlowConnectionItem
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		flows:       make(map[string]model.FlowItem),
		nodes:       make(map[string]model.FlowNodeItem),
		connections: make(map[string]model.FlowConnectionItem),
	}
}

func (m *MemoryRepository) ListFlows(ctx context.Context) ([]model.FlowItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.FlowItem, 0, len(m.flows))
	for _, f := range m.flows {
		out = append(out, f)
	}
	return out, nil
}

func (m *MemoryRepository) GetFlow(ctx context.Context, flowID string) (model.FlowItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.flows[flowID]
	if !ok {
		return model.FlowItem{}, ErrNotFound
	}
	return f, nil
}

func (m *MemoryRepository) PutFlow(ctx context.Context, flow model.FlowItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flows[flow.FlowID] = flow
	return nil
}

func (m *MemoryRepository) DeleteFlow(ctx context.Context, flowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flows, flowID)
	return nil
}

func (m *MemoryRepository) WriteGraph(ctx context.Context, nodes []model.FlowNodeItem, connections []model.FlowConnectionItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range nodes {
		m.nodes[n.PK] = n
	}
	for _, c := range connections {
		m.connections[c.PK] = c
	}
	return nil
}

func (m *MemoryRepository) ListGraph(ctx context.Context, graphKey string) ([]model.FlowNodeItem, []model.FlowConnectionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var nodes []model.FlowNodeItem
	for _, n := range m.nodes {
		if n.GraphKey == graphKey {
			nodes = append(nodes, n)
		}
	}
	var connections []model.FlowConnectionItem
	for _, c := range m.connections {
		if c.GraphKey == graphKey {
			connections = append(connections, c)
		}
	}
	return nodes, connections, nil
}

func (m *MemoryRepository) SetGraphRevision(ctx context.Context, flowID string, prev, next int64, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.flows[flowID]
	if !ok {
		return ErrNotFound
	}
	if f.GraphRevision != prev {
		return ErrRevisionMoved
	}
	f.GraphRevision = next
	f.UpdatedAt = at
	m.flows[flowID] = f
	return nil
}

func (m *MemoryRepository) DeleteGraphRows(ctx context.Context, flowID string, revisions ...int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	match := func(id string, rev int64) bool {
		if id != flowID {
			return false
		}
		if len(revisions) == 0 {
			return true
		}
		for _, r := range revisions {
			if r == rev {
				return true
			}
		}
		return false
	}
	for pk, n := range m.nodes {
		if match(n.FlowID, n.Revision) {
			delete(m.nodes, pk)
		}
	}
	for pk, c := range m.connections {
		if match(c.FlowID, c.Revision) {
			delete(m.connections, pk)
		}
	}
	return nil
}
