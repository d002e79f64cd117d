package flowgraph

import (
	"encoding/json"
	"fmt"
)

// Document is the wire shape of a graph as the dashboard editor sends and
// receives it.
type Document struct {
	Nodes       []NodeDocument       `json:"nodes"`
	Connections []ConnectionDocument `json:"connections"`
}

type NodeDocument struct {
	ID       string          `json:"id"`
	Type     NodeType        `json:"type"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data"`
}

type ConnectionDocument struct {
	ID           string         `json:"id,omitempty"`
	Source       string         `json:"source"`
	Target       string         `json:"target"`
	SourceHandle string         `json:"sourceHandle,omitempty"`
	Label        string         `json:"label"`
	Data         ConnectionData `json:"data"`
}

type ConnectionData struct {
	ConditionType  ConditionType `json:"condition_type"`
	ConditionValue string        `json:"condition_value"`
}

func (g *Graph) Document() (Document, error) {
	doc := Document{
		Nodes:       make([]NodeDocument, 0, len(g.nodes)),
		Connections: make([]ConnectionDocument, 0, len(g.connections)),
	}
	for _, n := range g.nodes {
		nd, err := n.Document()
		if err != nil {
			return Document{}, err
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	for _, c := range g.connections {
		doc.Connections = append(doc.Connections, c.Document())
	}
	return doc, nil
}

func (n Node) Document() (NodeDocument, error) {
	data, err := json.Marshal(n.Config)
	if err != nil {
		return NodeDocument{}, fmt.Errorf("encode node %s: %w", n.ID, err)
	}
	return NodeDocument{ID: n.ID, Type: n.Type, Position: n.Position, Data: data}, nil
}

func (c Connection) Document() ConnectionDocument {
	return ConnectionDocument{
		ID:           c.ID,
		Source:       c.Source,
		Target:       c.Target,
		SourceHandle: c.SourceHandle,
		Label:        c.Label,
		Data: ConnectionData{
			ConditionType:  c.Condition,
			ConditionValue: c.ConditionValue,
		},
	}
}

// FromDocument rebuilds a graph. Node and connection ids must be unique and
// types known; connections are kept even when their endpoints are missing so
// Validate can report them. Connections without an id get a fresh one.
func FromDocument(doc Document) (*Graph, error) {
	g := New()
	for _, nd := range doc.Nodes {
		if !nd.Type.Valid() {
			return nil, fmt.Errorf("node %s: %w: %q", nd.ID, ErrUnknownNodeType, nd.Type)
		}
		cfg, err := decodeConfig(nd.Type, nd.Data)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", nd.ID, err)
		}
		if err := g.InsertNode(Node{ID: nd.ID, Type: nd.Type, Position: nd.Position, Config: cfg}); err != nil {
			return nil, err
		}
	}
	seen := make(map[string]struct{}, len(doc.Connections))
	for _, cd := range doc.Connections {
		if cd.ID != "" {
			if _, dup := seen[cd.ID]; dup {
				return nil, fmt.Errorf("connection %s: %w", cd.ID, ErrDuplicateConn)
			}
			seen[cd.ID] = struct{}{}
		}
		cond := cd.Data.ConditionType
		if cond == "" {
			cond = ConditionAlways
		}
		if !cond.Valid() {
			return nil, fmt.Errorf("connection %s->%s: unknown condition type %q", cd.Source, cd.Target, cond)
		}
		handle := cd.SourceHandle
		if handle == "" && (cond == ConditionTrue || cond == ConditionFalse) {
			handle = string(cond)
		}
		g.AppendConnection(Connection{
			ID:             cd.ID,
			Source:         cd.Source,
			Target:         cd.Target,
			SourceHandle:   handle,
			Label:          cd.Label,
			Condition:      cond,
			ConditionValue: cd.Data.ConditionValue,
		})
	}
	return g, nil
}

func (g *Graph) MarshalJSON() ([]byte, error) {
	doc, err := g.Document()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func (g *Graph) UnmarshalJSON(data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	parsed, err := FromDocument(doc)
	if err != nil {
		return err
	}
	*g = *parsed
	return nil
}
