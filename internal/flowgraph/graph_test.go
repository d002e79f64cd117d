package flowgraph

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNodeGeneratesTypedIDsAndDefaults(t *testing.T) {
	g := New()

	start, err := g.AddNode(NodeStart)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(start.ID, "start-"))
	assert.Len(t, start.ID, len("start-")+8)
	assert.Equal(t, Position{X: 250, Y: 50}, start.Position)

	q, err := g.AddNode(NodeQuestion)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 250, Y: 170}, q.Position)
	assert.Equal(t, DefaultVariable, q.Config.(QuestionConfig).VariableName)

	_, err = g.AddNode("carousel")
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestAddNodeRejectsSecondStart(t *testing.T) {
	g := New()
	_, err := g.AddNode(NodeStart)
	require.NoError(t, err)

	_, err = g.AddNode(NodeStart)
	assert.ErrorIs(t, err, ErrDuplicateStart)
	assert.Equal(t, 1, g.Len())
}

func TestCyclesAndSelfLoopsAreAllowed(t *testing.T) {
	g := New()
	start, _ := g.AddNode(NodeStart)
	msg, _ := g.AddNode(NodeMessage)

	_, err := g.Connect(start.ID, msg.ID)
	require.NoError(t, err)
	_, err = g.Connect(msg.ID, start.ID)
	require.NoError(t, err)
	_, err = g.Connect(msg.ID, msg.ID)
	require.NoError(t, err)

	assert.NoError(t, g.Validate())
	assert.Len(t, g.Connections(), 3)
}

func TestConnectFromConditionUsesPortsInOrder(t *testing.T) {
	g := New()
	cond, _ := g.AddNode(NodeCondition)
	yes, _ := g.AddNode(NodeMessage)
	no, _ := g.AddNode(NodeMessage)
	extra, _ := g.AddNode(NodeMessage)

	c1, err := g.Connect(cond.ID, yes.ID)
	require.NoError(t, err)
	c2, err := g.Connect(cond.ID, no.ID)
	require.NoError(t, err)

	assert.Equal(t, ConditionTrue, c1.Condition)
	assert.Equal(t, "true", c1.SourceHandle)
	assert.Equal(t, ConditionFalse, c2.Condition)

	_, err = g.Connect(cond.ID, extra.ID)
	assert.ErrorIs(t, err, ErrPortInUse)
}

func TestConnectPortValidation(t *testing.T) {
	g := New()
	cond, _ := g.AddNode(NodeCondition)
	msg, _ := g.AddNode(NodeMessage)

	_, err := g.ConnectPort(msg.ID, cond.ID, ConditionTrue)
	assert.ErrorIs(t, err, ErrInvalidPort)

	_, err = g.ConnectPort(cond.ID, msg.ID, ConditionAlways)
	assert.ErrorIs(t, err, ErrInvalidPort)

	_, err = g.ConnectPort(cond.ID, msg.ID, ConditionFalse)
	require.NoError(t, err)
	_, err = g.ConnectPort(cond.ID, msg.ID, ConditionFalse)
	assert.ErrorIs(t, err, ErrPortInUse)

	_, err = g.ConnectPort(cond.ID, "missing", ConditionTrue)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestConnectWhenLabelsButtons(t *testing.T) {
	g := New()
	q, _ := g.AddNode(NodeQuestion)
	a, _ := g.AddNode(NodeMessage)

	c, err := g.ConnectWhen(q.ID, a.ID, "Order status")
	require.NoError(t, err)
	assert.Equal(t, ConditionEquals, c.Condition)
	assert.Equal(t, "Order status", c.ConditionValue)
	assert.Equal(t, "Order status", c.Label)
}

func TestDeleteNodeCascadesConnections(t *testing.T) {
	g := New()
	start, _ := g.AddNode(NodeStart)
	a, _ := g.AddNode(NodeMessage)
	b, _ := g.AddNode(NodeMessage)
	_, _ = g.Connect(start.ID, a.ID)
	_, _ = g.Connect(a.ID, b.ID)
	keep, _ := g.Connect(start.ID, b.ID)

	require.NoError(t, g.DeleteNode(a.ID))

	assert.False(t, g.HasNode(a.ID))
	conns := g.Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, keep.ID, conns[0].ID)

	// index must still resolve nodes after the removed one
	got, ok := g.Node(b.ID)
	require.True(t, ok)
	assert.Equal(t, b.ID, got.ID)

	assert.ErrorIs(t, g.DeleteNode(a.ID), ErrNodeNotFound)
}

func TestUpdateNodeConfigMergesFields(t *testing.T) {
	g := New()
	q, _ := g.AddNode(NodeQuestion)

	updated, err := g.UpdateNodeConfig(q.ID, []byte(`{"message":"What is your order number?","buttons":["Skip"]}`))
	require.NoError(t, err)

	cfg := updated.Config.(QuestionConfig)
	assert.Equal(t, "What is your order number?", cfg.Message)
	assert.Equal(t, DefaultVariable, cfg.VariableName)
	assert.Equal(t, []string{"Skip"}, cfg.Buttons)

	_, err = g.UpdateNodeConfig(q.ID, []byte(`{"message":`))
	assert.Error(t, err)

	_, err = g.UpdateNodeConfig("nope", []byte(`{}`))
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestCloneDoesNotShareConfigData(t *testing.T) {
	g := New()
	a, _ := g.AddNode(NodeAction)
	_, err := g.UpdateNodeConfig(a.ID, []byte(`{"action":"lookup_order","params":{"source":"pos"}}`))
	require.NoError(t, err)

	c := g.Clone()
	n, _ := c.Node(a.ID)
	n.Config.(ActionConfig).Params["source"] = "changed"

	orig, _ := g.Node(a.ID)
	assert.Equal(t, "pos", orig.Config.(ActionConfig).Params["source"])
}

func TestValidateReportsProblems(t *testing.T) {
	g := New()
	cond, _ := g.AddNode(NodeCondition)
	msg, _ := g.AddNode(NodeMessage)
	g.AppendConnection(Connection{Source: msg.ID, Target: "ghost"})
	g.AppendConnection(Connection{Source: cond.ID, Target: msg.ID, Condition: ConditionAlways})

	err := g.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has(ProblemDangling))
	assert.True(t, verr.Has(ProblemStartCount))
	assert.True(t, verr.Has(ProblemBranch))
}

func TestLintFlagsFanOut(t *testing.T) {
	g := New()
	start, _ := g.AddNode(NodeStart)
	a, _ := g.AddNode(NodeMessage)
	b, _ := g.AddNode(NodeMessage)
	_, _ = g.Connect(start.ID, a.ID)
	_, _ = g.Connect(start.ID, b.ID)

	require.NoError(t, g.Validate())
	warnings := g.Lint()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], start.ID)
}

func TestDocumentRoundTripKeepsShape(t *testing.T) {
	g := New()
	start, _ := g.AddNode(NodeStart)
	cond, _ := g.AddNode(NodeCondition)
	yes, _ := g.AddNode(NodeMessage)
	no, _ := g.AddNode(NodeMessage)
	_, _ = g.Connect(start.ID, cond.ID)
	_, _ = g.ConnectPort(cond.ID, yes.ID, ConditionTrue)
	_, _ = g.ConnectPort(cond.ID, no.ID, ConditionFalse)

	raw, err := json.Marshal(g)
	require.NoError(t, err)

	var wire map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	require.Len(t, wire["nodes"], 4)
	require.Len(t, wire["connections"], 3)
	assert.Equal(t, "condition", wire["nodes"][1]["type"])
	data := wire["connections"][1]["data"].(map[string]any)
	assert.Equal(t, "true", data["condition_type"])

	var back Graph
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, g.Nodes(), back.Nodes())
	assert.Equal(t, g.Connections(), back.Connections())
}

func TestFromDocumentAcceptsEditorPayload(t *testing.T) {
	payload := `{
		"nodes": [
			{"id":"start-1","type":"start","position":{"x":250,"y":50},"data":{"label":"Start"}},
			{"id":"message-1","type":"message","position":{"x":250,"y":170},"data":{"message":"Mingalabar!"}}
		],
		"connections": [
			{"source":"start-1","target":"message-1","label":"","data":{"condition_type":"always","condition_value":""}}
		]
	}`

	var g Graph
	require.NoError(t, json.Unmarshal([]byte(payload), &g))
	require.NoError(t, g.Validate())

	n, ok := g.Node("message-1")
	require.True(t, ok)
	assert.Equal(t, "Mingalabar!", n.Config.(MessageConfig).Message)
	conns := g.Connections()
	require.Len(t, conns, 1)
	assert.NotEmpty(t, conns[0].ID)
}

func TestFromDocumentRejectsBadNodes(t *testing.T) {
	_, err := FromDocument(Document{Nodes: []NodeDocument{{ID: "x", Type: "video"}}})
	assert.ErrorIs(t, err, ErrUnknownNodeType)

	_, err = FromDocument(Document{Nodes: []NodeDocument{
		{ID: "a", Type: NodeMessage},
		{ID: "a", Type: NodeMessage},
	}})
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestFromDocumentRejectsRepeatedConnectionIDs(t *testing.T) {
	nodes := []NodeDocument{
		{ID: "s", Type: NodeStart},
		{ID: "a", Type: NodeMessage},
	}
	_, err := FromDocument(Document{Nodes: nodes, Connections: []ConnectionDocument{
		{ID: "e1", Source: "s", Target: "a"},
		{ID: "e1", Source: "a", Target: "s"},
	}})
	assert.ErrorIs(t, err, ErrDuplicateConn)

	g, err := FromDocument(Document{Nodes: nodes, Connections: []ConnectionDocument{
		{Source: "s", Target: "a"},
		{Source: "a", Target: "s"},
	}})
	require.NoError(t, err)
	conns := g.Connections()
	require.Len(t, conns, 2)
	assert.NotEqual(t, conns[0].ID, conns[1].ID)
}
