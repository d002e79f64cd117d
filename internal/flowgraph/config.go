package flowgraph

import (
	"encoding/json"
	"fmt"
)

type NodeType string

const (
	NodeStart     NodeType = "start"
	NodeMessage   NodeType = "message"
	NodeQuestion  NodeType = "question"
	NodeAction    NodeType = "action"
	NodeCondition NodeType = "condition"
)

func (t NodeType) Valid() bool {
	switch t {
	case NodeStart, NodeMessage, NodeQuestion, NodeAction, NodeCondition:
		return true
	}
	return false
}

// DefaultVariable is where question nodes capture the reply unless told otherwise.
const DefaultVariable = "user_input"

// NodeConfig is the type-specific payload of a node. Each node type has
// exactly one config type.
type NodeConfig interface {
	NodeType() NodeType
}

type StartConfig struct {
	Label string `json:"label,omitempty"`
}

type MessageConfig struct {
	Message string   `json:"message"`
	Buttons []string `json:"buttons,omitempty"`
}

type QuestionConfig struct {
	Message      string   `json:"message"`
	VariableName string   `json:"variable_name"`
	Buttons      []string `json:"buttons,omitempty"`
}

type ActionConfig struct {
	Action string            `json:"action"`
	Params map[string]string `json:"params,omitempty"`
}

type ConditionConfig struct {
	VariableName string `json:"variable_name"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

func (StartConfig) NodeType() NodeType     { return NodeStart }
func (MessageConfig) NodeType() NodeType   { return NodeMessage }
func (QuestionConfig) NodeType() NodeType  { return NodeQuestion }
func (ActionConfig) NodeType() NodeType    { return NodeAction }
func (ConditionConfig) NodeType() NodeType { return NodeCondition }

// DefaultConfig returns the config a freshly added node of type t starts with.
func DefaultConfig(t NodeType) (NodeConfig, error) {
	switch t {
	case NodeStart:
		return StartConfig{Label: "Start"}, nil
	case NodeMessage:
		return MessageConfig{}, nil
	case NodeQuestion:
		return QuestionConfig{VariableName: DefaultVariable}, nil
	case NodeAction:
		return ActionConfig{}, nil
	case NodeCondition:
		return ConditionConfig{Operator: "equals"}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
}

// decodeConfig starts from the default config for t and applies each JSON
// layer in order. Fields absent from a layer keep their previous value.
func decodeConfig(t NodeType, layers ...[]byte) (NodeConfig, error) {
	base, err := DefaultConfig(t)
	if err != nil {
		return nil, err
	}

	apply := func(dst any) error {
		for _, layer := range layers {
			if len(layer) == 0 || string(layer) == "null" {
				continue
			}
			if err := json.Unmarshal(layer, dst); err != nil {
				return fmt.Errorf("decode %s config: %w", t, err)
			}
		}
		return nil
	}

	switch c := base.(type) {
	case StartConfig:
		err = apply(&c)
		return c, err
	case MessageConfig:
		err = apply(&c)
		return c, err
	case QuestionConfig:
		err = apply(&c)
		return c, err
	case ActionConfig:
		err = apply(&c)
		return c, err
	case ConditionConfig:
		err = apply(&c)
		return c, err
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
}

// mergeConfig overlays partial onto current without aliasing current's
// slices or maps.
func mergeConfig(current NodeConfig, partial []byte) (NodeConfig, error) {
	raw, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("encode %s config: %w", current.NodeType(), err)
	}
	return decodeConfig(current.NodeType(), raw, partial)
}
