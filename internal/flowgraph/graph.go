// Package flowgraph is the editable model of a bot flow: a directed
// multigraph of typed nodes joined by optionally conditional connections.
// Cycles, self-loops and parallel connections are all valid shapes.
package flowgraph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNodeNotFound       = errors.New("node not found")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrUnknownNodeType    = errors.New("unknown node type")
	ErrDuplicateNode      = errors.New("duplicate node id")
	ErrDuplicateConn      = errors.New("duplicate connection id")
	ErrDuplicateStart     = errors.New("flow already has a start node")
	ErrInvalidPort        = errors.New("invalid condition port")
	ErrPortInUse          = errors.New("condition port already connected")
)

type ConditionType string

const (
	ConditionAlways ConditionType = "always"
	ConditionTrue   ConditionType = "true"
	ConditionFalse  ConditionType = "false"
	ConditionEquals ConditionType = "equals"
)

func (c ConditionType) Valid() bool {
	switch c {
	case ConditionAlways, ConditionTrue, ConditionFalse, ConditionEquals:
		return true
	}
	return false
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Node struct {
	ID       string
	Type     NodeType
	Position Position
	Config   NodeConfig
}

type Connection struct {
	ID             string
	Source         string
	Target         string
	SourceHandle   string
	Label          string
	Condition      ConditionType
	ConditionValue string
}

// Graph keeps nodes in insertion order with an id index. Connections refer
// to nodes by id only.
type Graph struct {
	nodes       []Node
	index       map[string]int
	connections []Connection
}

func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns a copy of the nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Connections returns a copy of the connections in insertion order.
func (g *Graph) Connections() []Connection {
	out := make([]Connection, len(g.connections))
	copy(out, g.connections)
	return out
}

func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Outgoing returns the connections whose source is id.
func (g *Graph) Outgoing(id string) []Connection {
	var out []Connection
	for _, c := range g.connections {
		if c.Source == id {
			out = append(out, c)
		}
	}
	return out
}

func (g *Graph) countType(t NodeType) int {
	n := 0
	for _, node := range g.nodes {
		if node.Type == t {
			n++
		}
	}
	return n
}

func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes:       make([]Node, len(g.nodes)),
		index:       make(map[string]int, len(g.index)),
		connections: make([]Connection, len(g.connections)),
	}
	copy(c.nodes, g.nodes)
	copy(c.connections, g.connections)
	for k, v := range g.index {
		c.index[k] = v
	}
	// Configs hold slices and maps; rebuild them so the clone owns its data.
	for i, n := range c.nodes {
		if cfg, err := mergeConfig(n.Config, nil); err == nil {
			c.nodes[i].Config = cfg
		}
	}
	return c
}

// AddNode appends a node of type t with a generated id, a position below the
// previous node and the default config for its type.
func (g *Graph) AddNode(t NodeType) (Node, error) {
	cfg, err := DefaultConfig(t)
	if err != nil {
		return Node{}, err
	}
	if t == NodeStart && g.countType(NodeStart) > 0 {
		return Node{}, ErrDuplicateStart
	}

	node := Node{
		ID:       g.newNodeID(t),
		Type:     t,
		Position: g.nextPosition(),
		Config:   cfg,
	}
	g.insert(node)
	return node, nil
}

// InsertNode adds a fully specified node, as when rebuilding a stored graph.
func (g *Graph) InsertNode(n Node) error {
	if strings.TrimSpace(n.ID) == "" {
		return fmt.Errorf("node id is required")
	}
	if !n.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownNodeType, n.Type)
	}
	if _, exists := g.index[n.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}
	if n.Config == nil {
		cfg, _ := DefaultConfig(n.Type)
		n.Config = cfg
	}
	if n.Config.NodeType() != n.Type {
		return fmt.Errorf("node %s: config for %s on %s node", n.ID, n.Config.NodeType(), n.Type)
	}
	g.insert(n)
	return nil
}

func (g *Graph) insert(n Node) {
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

func (g *Graph) newNodeID(t NodeType) string {
	for {
		id := fmt.Sprintf("%s-%s", t, uuid.NewString()[:8])
		if _, taken := g.index[id]; !taken {
			return id
		}
	}
}

func (g *Graph) newConnectionID() string {
	for {
		id := "conn-" + uuid.NewString()[:8]
		taken := false
		for _, c := range g.connections {
			if c.ID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
	}
}

func (g *Graph) nextPosition() Position {
	if len(g.nodes) == 0 {
		return Position{X: 250, Y: 50}
	}
	last := g.nodes[len(g.nodes)-1].Position
	return Position{X: last.X, Y: last.Y + 120}
}

// Connect joins source to target. From a condition node the first free
// branch port is used, true before false; from any other node the
// connection is unconditional.
func (g *Graph) Connect(source, target string) (Connection, error) {
	src, ok := g.Node(source)
	if !ok {
		return Connection{}, fmt.Errorf("%w: %s", ErrNodeNotFound, source)
	}
	if src.Type != NodeCondition {
		return g.connect(source, target, ConditionAlways, "", "")
	}
	for _, port := range []ConditionType{ConditionTrue, ConditionFalse} {
		if !g.portUsed(source, port) {
			return g.ConnectPort(source, target, port)
		}
	}
	return Connection{}, fmt.Errorf("%w: node %s has both branches connected", ErrPortInUse, source)
}

// ConnectPort joins a condition node's true or false output to target.
func (g *Graph) ConnectPort(source, target string, port ConditionType) (Connection, error) {
	src, ok := g.Node(source)
	if !ok {
		return Connection{}, fmt.Errorf("%w: %s", ErrNodeNotFound, source)
	}
	if src.Type != NodeCondition {
		return Connection{}, fmt.Errorf("%w: %s is a %s node", ErrInvalidPort, source, src.Type)
	}
	if port != ConditionTrue && port != ConditionFalse {
		return Connection{}, fmt.Errorf("%w: %q", ErrInvalidPort, port)
	}
	if g.portUsed(source, port) {
		return Connection{}, fmt.Errorf("%w: %s/%s", ErrPortInUse, source, port)
	}
	return g.connect(source, target, port, "", string(port))
}

// ConnectWhen joins source to target, taken when the captured input equals
// value. Question buttons are wired this way.
func (g *Graph) ConnectWhen(source, target, value string) (Connection, error) {
	src, ok := g.Node(source)
	if !ok {
		return Connection{}, fmt.Errorf("%w: %s", ErrNodeNotFound, source)
	}
	if src.Type == NodeCondition {
		return Connection{}, fmt.Errorf("%w: condition nodes branch on true/false", ErrInvalidPort)
	}
	return g.connect(source, target, ConditionEquals, value, value)
}

func (g *Graph) connect(source, target string, cond ConditionType, value, label string) (Connection, error) {
	if !g.HasNode(target) {
		return Connection{}, fmt.Errorf("%w: %s", ErrNodeNotFound, target)
	}
	c := Connection{
		ID:             g.newConnectionID(),
		Source:         source,
		Target:         target,
		Label:          label,
		Condition:      cond,
		ConditionValue: value,
	}
	if cond == ConditionTrue || cond == ConditionFalse {
		c.SourceHandle = string(cond)
	}
	g.connections = append(g.connections, c)
	return c, nil
}

// AppendConnection adds a stored connection as-is. Endpoints are not
// checked; Validate reports dangling ones.
func (g *Graph) AppendConnection(c Connection) {
	if c.ID == "" {
		c.ID = g.newConnectionID()
	}
	if c.Condition == "" {
		c.Condition = ConditionAlways
	}
	g.connections = append(g.connections, c)
}

func (g *Graph) portUsed(source string, port ConditionType) bool {
	for _, c := range g.connections {
		if c.Source == source && c.Condition == port {
			return true
		}
	}
	return false
}

// UpdateNodeConfig merges the JSON object partial into the node's config.
// Cross-field consistency is not checked here.
func (g *Graph) UpdateNodeConfig(id string, partial []byte) (Node, error) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	cfg, err := mergeConfig(g.nodes[i].Config, partial)
	if err != nil {
		return Node{}, err
	}
	g.nodes[i].Config = cfg
	return g.nodes[i], nil
}

func (g *Graph) MoveNode(id string, pos Position) (Node, error) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	g.nodes[i].Position = pos
	return g.nodes[i], nil
}

// DeleteNode removes the node and every connection that touches it.
func (g *Graph) DeleteNode(id string) error {
	i, ok := g.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
	delete(g.index, id)
	for j := i; j < len(g.nodes); j++ {
		g.index[g.nodes[j].ID] = j
	}

	kept := g.connections[:0]
	for _, c := range g.connections {
		if c.Source != id && c.Target != id {
			kept = append(kept, c)
		}
	}
	g.connections = kept
	return nil
}

func (g *Graph) DeleteConnection(id string) error {
	for i, c := range g.connections {
		if c.ID == id {
			g.connections = append(g.connections[:i], g.connections[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
}
