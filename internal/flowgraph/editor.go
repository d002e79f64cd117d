package flowgraph

import (
	"context"
	"fmt"
	"sync"
)

type State string

const (
	StateLoading   State = "loading"
	StateClean     State = "clean"
	StateDirty     State = "dirty"
	StateSaving    State = "saving"
	StateSaveError State = "save_error"
)

// Store loads and persists whole graphs for a flow.
type Store interface {
	LoadGraph(ctx context.Context, flowID string) (*Graph, error)
	SaveGraph(ctx context.Context, flowID string, g *Graph) error
}

// Editor holds one flow's graph in memory while it is being edited.
// Mutations mark it dirty; Save writes a snapshot and only a successful
// write returns it to clean. A failed save leaves the edits in place and
// the editor in StateSaveError until the next edit or save.
type Editor struct {
	mu      sync.Mutex
	flowID  string
	store   Store
	graph   *Graph
	state   State
	lastErr error
}

func Open(ctx context.Context, store Store, flowID string) (*Editor, error) {
	e := &Editor{flowID: flowID, store: store, state: StateLoading}
	g, err := store.LoadGraph(ctx, flowID)
	if err != nil {
		return nil, fmt.Errorf("load flow %s: %w", flowID, err)
	}
	if g == nil {
		g = New()
	}
	e.graph = g
	e.state = StateClean
	return e, nil
}

func (e *Editor) FlowID() string {
	return e.flowID
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastError is the error from the most recent failed save, cleared by a
// successful one.
func (e *Editor) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Graph returns a copy of the current graph.
func (e *Editor) Graph() *Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Clone()
}

func (e *Editor) mutate(fn func(g *Graph) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(e.graph); err != nil {
		return err
	}
	e.state = StateDirty
	return nil
}

func (e *Editor) AddNode(t NodeType) (Node, error) {
	var n Node
	err := e.mutate(func(g *Graph) (err error) {
		n, err = g.AddNode(t)
		return err
	})
	return n, err
}

func (e *Editor) Connect(source, target string) (Connection, error) {
	var c Connection
	err := e.mutate(func(g *Graph) (err error) {
		c, err = g.Connect(source, target)
		return err
	})
	return c, err
}

func (e *Editor) ConnectPort(source, target string, port ConditionType) (Connection, error) {
	var c Connection
	err := e.mutate(func(g *Graph) (err error) {
		c, err = g.ConnectPort(source, target, port)
		return err
	})
	return c, err
}

func (e *Editor) ConnectWhen(source, target, value string) (Connection, error) {
	var c Connection
	err := e.mutate(func(g *Graph) (err error) {
		c, err = g.ConnectWhen(source, target, value)
		return err
	})
	return c, err
}

func (e *Editor) UpdateNodeConfig(id string, partial []byte) (Node, error) {
	var n Node
	err := e.mutate(func(g *Graph) (err error) {
		n, err = g.UpdateNodeConfig(id, partial)
		return err
	})
	return n, err
}

func (e *Editor) MoveNode(id string, pos Position) (Node, error) {
	var n Node
	err := e.mutate(func(g *Graph) (err error) {
		n, err = g.MoveNode(id, pos)
		return err
	})
	return n, err
}

func (e *Editor) DeleteNode(id string) error {
	return e.mutate(func(g *Graph) error { return g.DeleteNode(id) })
}

func (e *Editor) DeleteConnection(id string) error {
	return e.mutate(func(g *Graph) error { return g.DeleteConnection(id) })
}

// Replace swaps in a whole graph, as when the dashboard posts its canvas.
func (e *Editor) Replace(g *Graph) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.graph = g.Clone()
	e.state = StateDirty
}

// Save writes the current graph. The editor is locked for the duration so
// the snapshot written is the graph the caller sees afterwards.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.graph.Validate(); err != nil {
		return err
	}

	e.state = StateSaving
	if err := e.store.SaveGraph(ctx, e.flowID, e.graph.Clone()); err != nil {
		e.state = StateSaveError
		e.lastErr = err
		return fmt.Errorf("save flow %s: %w", e.flowID, err)
	}
	e.state = StateClean
	e.lastErr = nil
	return nil
}
