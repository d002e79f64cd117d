package dto

import (
	"encoding/json"

	"botpos-chat-backend/internal/flowgraph"
)

type FlowResponse struct {
	FlowID       string `json:"flowId"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Channel      string `json:"channel"`
	TriggerType  string `json:"triggerType"`
	TriggerValue string `json:"triggerValue"`
	IsActive     bool   `json:"isActive"`
	Revision     int64  `json:"revision"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

type CreateFlowRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Channel      string `json:"channel"`
	TriggerType  string `json:"triggerType"`
	TriggerValue string `json:"triggerValue"`
	IsActive     bool   `json:"isActive"`
}

// UpdateFlowRequest is a partial update; nil fields are left alone.
type UpdateFlowRequest struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	Channel      *string `json:"channel,omitempty"`
	TriggerType  *string `json:"triggerType,omitempty"`
	TriggerValue *string `json:"triggerValue,omitempty"`
	IsActive     *bool   `json:"isActive,omitempty"`
}

type GraphResponse struct {
	FlowID   string             `json:"flowId"`
	Revision int64              `json:"revision"`
	Graph    flowgraph.Document `json:"graph"`
	Warnings []string           `json:"warnings,omitempty"`
}

type AddNodeRequest struct {
	Type     string              `json:"type"`
	Position *flowgraph.Position `json:"position,omitempty"`
	Data     json.RawMessage     `json:"data,omitempty"`
}

type UpdateNodeRequest struct {
	Position *flowgraph.Position `json:"position,omitempty"`
	Data     json.RawMessage     `json:"data,omitempty"`
}

type ConnectRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
	// Port is "true" or "false" for condition sources.
	Port string `json:"port,omitempty"`
	// Value creates an equals connection, as used by question buttons.
	Value string `json:"value,omitempty"`
}

type NodeResponse struct {
	Node     flowgraph.NodeDocument `json:"node"`
	Revision int64                  `json:"revision"`
}

type ConnectionResponse struct {
	Connection flowgraph.ConnectionDocument `json:"connection"`
	Revision   int64                        `json:"revision"`
}
