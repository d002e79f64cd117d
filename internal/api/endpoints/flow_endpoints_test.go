package endpoints

import (
	"encoding/json"
	"net/http"
	"testing"

	"botpos-chat-backend/internal/dto"
	"botpos-chat-backend/internal/flowgraph"
)

func createFlow(t *testing.T, env *testEnv) dto.FlowResponse {
	t.Helper()
	return doJSONRequest[dto.FlowResponse](t, env.handler, http.MethodPost, testPrefix+"/flows",
		dto.CreateFlowRequest{Name: "Welcome", TriggerType: "welcome"}, env.auth(), http.StatusCreated)
}

func TestFlowEditorEndpoints(t *testing.T) {
	env := newTestEnv(t)
	flow := createFlow(t, env)
	if flow.Channel != "all" || flow.Revision == 0 {
		t.Fatalf("unexpected flow %#v", flow)
	}
	base := testPrefix + "/flows/" + flow.FlowID

	graph := doJSONRequest[dto.GraphResponse](t, env.handler, http.MethodGet, base+"/graph", nil, env.auth(), http.StatusOK)
	if len(graph.Graph.Nodes) != 1 || graph.Graph.Nodes[0].Type != flowgraph.NodeStart {
		t.Fatalf("expected seeded start node, got %#v", graph.Graph)
	}
	startID := graph.Graph.Nodes[0].ID

	added := doJSONRequest[dto.NodeResponse](t, env.handler, http.MethodPost, base+"/nodes",
		dto.AddNodeRequest{Type: "message", Data: json.RawMessage(`{"message":"Mingalaba!"}`)}, env.auth(), http.StatusCreated)
	if added.Node.Type != flowgraph.NodeMessage || added.Revision <= graph.Revision {
		t.Fatalf("unexpected added node %#v", added)
	}

	conn := doJSONRequest[dto.ConnectionResponse](t, env.handler, http.MethodPost, base+"/connections",
		dto.ConnectRequest{Source: startID, Target: added.Node.ID}, env.auth(), http.StatusCreated)
	if conn.Connection.Data.ConditionType != flowgraph.ConditionAlways {
		t.Fatalf("expected always connection, got %#v", conn.Connection)
	}

	updated := doJSONRequest[dto.NodeResponse](t, env.handler, http.MethodPatch, base+"/nodes/"+added.Node.ID,
		dto.UpdateNodeRequest{Data: json.RawMessage(`{"message":"Welcome back"}`)}, env.auth(), http.StatusOK)
	var cfg map[string]any
	if err := json.Unmarshal(updated.Node.Data, &cfg); err != nil || cfg["message"] != "Welcome back" {
		t.Fatalf("unexpected node data %s (%v)", updated.Node.Data, err)
	}

	graph = doJSONRequest[dto.GraphResponse](t, env.handler, http.MethodGet, base+"/graph", nil, env.auth(), http.StatusOK)
	if len(graph.Graph.Nodes) != 2 || len(graph.Graph.Connections) != 1 {
		t.Fatalf("unexpected graph %#v", graph.Graph)
	}

	doJSONRequest[map[string]int64](t, env.handler, http.MethodDelete, base+"/nodes/"+added.Node.ID, nil, env.auth(), http.StatusOK)
	graph = doJSONRequest[dto.GraphResponse](t, env.handler, http.MethodGet, base+"/graph", nil, env.auth(), http.StatusOK)
	if len(graph.Graph.Nodes) != 1 || len(graph.Graph.Connections) != 0 {
		t.Fatalf("delete should cascade connections, got %#v", graph.Graph)
	}

	doJSONRequest[map[string]any](t, env.handler, http.MethodDelete, base+"/nodes/ghost", nil, env.auth(), http.StatusNotFound)
	doJSONRequest[map[string]any](t, env.handler, http.MethodPost, base+"/nodes",
		dto.AddNodeRequest{Type: "start"}, env.auth(), http.StatusConflict)
}

func TestSaveGraphDocument(t *testing.T) {
	env := newTestEnv(t)
	flow := createFlow(t, env)
	base := testPrefix + "/flows/" + flow.FlowID

	doc := flowgraph.Document{
		Nodes: []flowgraph.NodeDocument{
			{ID: "start-1", Type: flowgraph.NodeStart, Position: flowgraph.Position{X: 250, Y: 50}, Data: json.RawMessage(`{}`)},
			{ID: "cond-1", Type: flowgraph.NodeCondition, Position: flowgraph.Position{X: 250, Y: 200},
				Data: json.RawMessage(`{"variable_name":"user_input","operator":"contains","value":"price"}`)},
			{ID: "yes", Type: flowgraph.NodeMessage, Data: json.RawMessage(`{"message":"Prices are on our page"}`)},
			{ID: "no", Type: flowgraph.NodeMessage, Data: json.RawMessage(`{"message":"An admin will reply soon"}`)},
		},
		Connections: []flowgraph.ConnectionDocument{
			{Source: "start-1", Target: "cond-1", Data: flowgraph.ConnectionData{ConditionType: flowgraph.ConditionAlways}},
			{Source: "cond-1", Target: "yes", SourceHandle: "true", Data: flowgraph.ConnectionData{ConditionType: flowgraph.ConditionTrue}},
			{Source: "cond-1", Target: "no", SourceHandle: "false", Data: flowgraph.ConnectionData{ConditionType: flowgraph.ConditionFalse}},
		},
	}

	saved := doJSONRequest[dto.GraphResponse](t, env.handler, http.MethodPut, base+"/graph", doc, env.auth(), http.StatusOK)
	if saved.Revision <= flow.Revision {
		t.Fatalf("save should advance the revision: %d -> %d", flow.Revision, saved.Revision)
	}

	loaded := doJSONRequest[dto.GraphResponse](t, env.handler, http.MethodGet, base+"/graph", nil, env.auth(), http.StatusOK)
	if len(loaded.Graph.Nodes) != 4 || len(loaded.Graph.Connections) != 3 {
		t.Fatalf("unexpected loaded graph %#v", loaded.Graph)
	}
	ports := map[string]flowgraph.ConditionType{}
	for _, c := range loaded.Graph.Connections {
		if c.Source == "cond-1" {
			ports[c.Target] = c.Data.ConditionType
		}
	}
	if ports["yes"] != flowgraph.ConditionTrue || ports["no"] != flowgraph.ConditionFalse {
		t.Fatalf("condition ports lost: %#v", ports)
	}

	dangling := doc
	dangling.Connections = append([]flowgraph.ConnectionDocument{}, doc.Connections...)
	dangling.Connections = append(dangling.Connections, flowgraph.ConnectionDocument{Source: "yes", Target: "missing"})
	doJSONRequest[map[string]any](t, env.handler, http.MethodPut, base+"/graph", dangling, env.auth(), http.StatusConflict)

	after := doJSONRequest[dto.GraphResponse](t, env.handler, http.MethodGet, base+"/graph", nil, env.auth(), http.StatusOK)
	if after.Revision != saved.Revision {
		t.Fatalf("rejected save must keep revision %d, got %d", saved.Revision, after.Revision)
	}
}

func TestFlowCRUD(t *testing.T) {
	env := newTestEnv(t)
	flow := createFlow(t, env)
	base := testPrefix + "/flows/" + flow.FlowID

	doJSONRequest[map[string]any](t, env.handler, http.MethodPost, testPrefix+"/flows",
		dto.CreateFlowRequest{Name: "Keyword", TriggerType: "keyword"}, env.auth(), http.StatusBadRequest)

	name := "Greeting"
	active := true
	updated := doJSONRequest[dto.FlowResponse](t, env.handler, http.MethodPatch, base,
		dto.UpdateFlowRequest{Name: &name, IsActive: &active}, env.auth(), http.StatusOK)
	if updated.Name != "Greeting" || !updated.IsActive || updated.TriggerType != "welcome" {
		t.Fatalf("unexpected update %#v", updated)
	}

	list := doJSONRequest[[]dto.FlowResponse](t, env.handler, http.MethodGet, testPrefix+"/flows", nil, env.auth(), http.StatusOK)
	if len(list) != 1 {
		t.Fatalf("expected one flow, got %#v", list)
	}

	doJSONRequest[ApiMessageResponse](t, env.handler, http.MethodDelete, base, nil, env.auth(), http.StatusOK)
	doJSONRequest[map[string]any](t, env.handler, http.MethodGet, base, nil, env.auth(), http.StatusNotFound)
	doJSONRequest[map[string]any](t, env.handler, http.MethodGet, base+"/graph", nil, env.auth(), http.StatusNotFound)
}
