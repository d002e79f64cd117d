package endpoints

import (
	"fmt"
	"net/http"

	"botpos-chat-backend/internal/dto"
	"botpos-chat-backend/internal/flowgraph"
	flowsvc "botpos-chat-backend/internal/service/flow"
)

type FlowEndpoints interface {
	Flows(http.ResponseWriter, *http.Request) error
	Flow(http.ResponseWriter, *http.Request) error
	Graph(http.ResponseWriter, *http.Request) error
	Nodes(http.ResponseWriter, *http.Request) error
	Node(http.ResponseWriter, *http.Request) error
	Connections(http.ResponseWriter, *http.Request) error
	Connection(http.ResponseWriter, *http.Request) error
}

type flowEndpoints struct {
	service *flowsvc.Service
}

func NewFlowEndpoints(service *flowsvc.Service) FlowEndpoints {
	return &flowEndpoints{service: service}
}

func (h *flowEndpoints) Flows(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleListFlows,
		http.MethodPost: h.handleCreateFlow,
	})
}

func (h *flowEndpoints) Flow(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:    h.handleGetFlow,
		http.MethodPatch:  h.handleUpdateFlow,
		http.MethodDelete: h.handleDeleteFlow,
	})
}

func (h *flowEndpoints) Graph(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleGetGraph,
		http.MethodPut: h.handleSaveGraph,
	})
}

func (h *flowEndpoints) Nodes(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleAddNode,
	})
}

func (h *flowEndpoints) Node(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPatch:  h.handleUpdateNode,
		http.MethodDelete: h.handleDeleteNode,
	})
}

func (h *flowEndpoints) Connections(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleConnect,
	})
}

func (h *flowEndpoints) Connection(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodDelete: h.handleDeleteConnection,
	})
}

func (h *flowEndpoints) handleListFlows(w http.ResponseWriter, r *http.Request) error {
	flows, err := h.service.ListFlows(r.Context())
	if err != nil {
		return serviceError(err)
	}

	resp := make([]dto.FlowResponse, 0, len(flows))
	for _, f := range flows {
		resp = append(resp, dto.NewFlowResponse(f))
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func (h *flowEndpoints) handleCreateFlow(w http.ResponseWriter, r *http.Request) error {
	var req dto.CreateFlowRequest
	if err := decodeJSON(r, &req, "create flow"); err != nil {
		return err
	}

	flow, err := h.service.CreateFlow(r.Context(), flowsvc.CreateFlowParams{
		Name:         req.Name,
		Description:  req.Description,
		Channel:      req.Channel,
		TriggerType:  req.TriggerType,
		TriggerValue: req.TriggerValue,
		IsActive:     req.IsActive,
	})
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusCreated, dto.NewFlowResponse(flow))
}

func (h *flowEndpoints) handleGetFlow(w http.ResponseWriter, r *http.Request) error {
	id, err := pathValue(r, "flowId")
	if err != nil {
		return err
	}

	flow, err := h.service.GetFlow(r.Context(), id)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, dto.NewFlowResponse(flow))
}

func (h *flowEndpoints) handleUpdateFlow(w http.ResponseWriter, r *http.Request) error {
	id, err := pathValue(r, "flowId")
	if err != nil {
		return err
	}

	var req dto.UpdateFlowRequest
	if err := decodeJSON(r, &req, "update flow"); err != nil {
		return err
	}

	flow, err := h.service.UpdateFlow(r.Context(), id, flowsvc.UpdateFlowParams{
		Name:         req.Name,
		Description:  req.Description,
		Channel:      req.Channel,
		TriggerType:  req.TriggerType,
		TriggerValue: req.TriggerValue,
		IsActive:     req.IsActive,
	})
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, dto.NewFlowResponse(flow))
}

func (h *flowEndpoints) handleDeleteFlow(w http.ResponseWriter, r *http.Request) error {
	id, err := pathValue(r, "flowId")
	if err != nil {
		return err
	}
	if err := h.service.DeleteFlow(r.Context(), id); err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Flow deleted"})
}

func (h *flowEndpoints) handleGetGraph(w http.ResponseWriter, r *http.Request) error {
	id, err := pathValue(r, "flowId")
	if err != nil {
		return err
	}

	snap, err := h.service.Graph(r.Context(), id)
	if err != nil {
		return serviceError(err)
	}
	return writeSnapshot(w, http.StatusOK, snap)
}

func (h *flowEndpoints) handleSaveGraph(w http.ResponseWriter, r *http.Request) error {
	id, err := pathValue(r, "flowId")
	if err != nil {
		return err
	}

	var doc flowgraph.Document
	if err := decodeJSON(r, &doc, "save graph"); err != nil {
		return err
	}

	snap, err := h.service.SaveDocument(r.Context(), id, doc)
	if err != nil {
		return serviceError(err)
	}
	return writeSnapshot(w, http.StatusOK, snap)
}

func writeSnapshot(w http.ResponseWriter, status int, snap flowsvc.Snapshot) error {
	doc, err := snap.Graph.Document()
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("encode flow %s graph: %w", snap.FlowID, err),
		}
	}
	return WriteJSON(w, status, dto.GraphResponse{
		FlowID:   snap.FlowID,
		Revision: snap.Revision,
		Graph:    doc,
		Warnings: snap.Warnings,
	})
}

func (h *flowEndpoints) handleAddNode(w http.ResponseWriter, r *http.Request) error {
	id, err := pathValue(r, "flowId")
	if err != nil {
		return err
	}

	var req dto.AddNodeRequest
	if err := decodeJSON(r, &req, "add node"); err != nil {
		return err
	}

	node, rev, err := h.service.AddNode(r.Context(), id, flowsvc.AddNodeParams{
		Type:     req.Type,
		Position: req.Position,
		Data:     req.Data,
	})
	if err != nil {
		return serviceError(err)
	}
	return writeNode(w, http.StatusCreated, node, rev)
}

func (h *flowEndpoints) handleUpdateNode(w http.ResponseWriter, r *http.Request) error {
	id, err := pathValue(r, "flowId")
	if err != nil {
		return err
	}
	nodeID, err := pathValue(r, "nodeId")
	if err != nil {
		return err
	}

	var req dto.UpdateNodeRequest
	if err := decodeJSON(r, &req, "update node"); err != nil {
		return err
	}

	node, rev, err := h.service.UpdateNode(r.Context(), id, nodeID, flowsvc.UpdateNodeParams{
		Position: req.Position,
		Data:     req.Data,
	})
	if err != nil {
		return serviceError(err)
	}
	return writeNode(w, http.StatusOK, node, rev)
}

func writeNode(w http.ResponseWriter, status int, node flowgraph.Node, rev int64) error {
	doc, err := node.Document()
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("encode node %s: %w", node.ID, err),
		}
	}
	return WriteJSON(w, status, dto.NodeResponse{Node: doc, Revision: rev})
}

func (h *flowEndpoints) handleDeleteNode(w http.ResponseWriter, r *http.Request) error {
	id, err := pathValue(r, "flowId")
	if err != nil {
		return err
	}
	nodeID, err := pathValue(r, "nodeId")
	if err != nil {
		return err
	}

	rev, err := h.service.DeleteNode(r.Context(), id, nodeID)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, map[string]int64{"revision": rev})
}

func (h *flowEndpoints) handleConnect(w http.ResponseWriter, r *http.Request) error {
	id, err := pathValue(r, "flowId")
	if err != nil {
		return err
	}

	var req dto.ConnectRequest
	if err := decodeJSON(r, &req, "connect"); err != nil {
		return err
	}

	conn, rev, err := h.service.Connect(r.Context(), id, flowsvc.ConnectParams{
		Source: req.Source,
		Target: req.Target,
		Port:   req.Port,
		Value:  req.Value,
	})
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusCreated, dto.ConnectionResponse{Connection: conn.Document(), Revision: rev})
}

func (h *flowEndpoints) handleDeleteConnection(w http.ResponseWriter, r *http.Request) error {
	id, err := pathValue(r, "flowId")
	if err != nil {
		return err
	}
	connID, err := pathValue(r, "connectionId")
	if err != nil {
		return err
	}

	rev, err := h.service.DeleteConnection(r.Context(), id, connID)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, map[string]int64{"revision": rev})
}
