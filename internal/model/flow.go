package model

import "strconv"

type FlowChannel string

const (
	FlowChannelAll       FlowChannel = "all"
	FlowChannelTelegram  FlowChannel = "telegram"
	FlowChannelViber     FlowChannel = "viber"
	FlowChannelMessenger FlowChannel = "messenger"
)

func (c FlowChannel) Valid() bool {
	switch c {
	case FlowChannelAll, FlowChannelTelegram, FlowChannelViber, FlowChannelMessenger:
		return true
	}
	return false
}

type TriggerType string

const (
	TriggerKeyword TriggerType = "keyword"
	TriggerCommand TriggerType = "command"
	TriggerWelcome TriggerType = "welcome"
)

func (t TriggerType) Valid() bool {
	switch t {
	case TriggerKeyword, TriggerCommand, TriggerWelcome:
		return true
	}
	return false
}

type FlowItem struct {
	FlowID        string      `dynamodbav:"flowId"`
	Name          string      `dynamodbav:"name"`
	Description   string      `dynamodbav:"description,omitempty"`
	Channel       FlowChannel `dynamodbav:"channel"`
	TriggerType   TriggerType `dynamodbav:"triggerType"`
	TriggerValue  string      `dynamodbav:"triggerValue,omitempty"`
	IsActive      bool        `dynamodbav:"isActive"`
	GraphRevision int64       `dynamodbav:"graphRevision"`
	CreatedAt     string      `dynamodbav:"createdAt"`
	UpdatedAt     string      `dynamodbav:"updatedAt"`
}

// GraphKey identifies every row of one saved revision of a flow graph.
func GraphKey(flowID string, revision int64) string {
	return compositeKey(flowID, strconv.FormatInt(revision, 10))
}

func FlowNodePK(flowID string, revision int64, nodeID string) string {
	return compositeKey(GraphKey(flowID, revision), nodeID)
}

func FlowConnectionPK(flowID string, revision int64, connectionID string) string {
	return compositeKey(GraphKey(flowID, revision), connectionID)
}

type FlowNodeItem struct {
	PK        string  `dynamodbav:"pk"`
	GraphKey  string  `dynamodbav:"graphKey"`
	FlowID    string  `dynamodbav:"flowId"`
	Revision  int64   `dynamodbav:"revision"`
	NodeID    string  `dynamodbav:"nodeId"`
	Type      string  `dynamodbav:"type"`
	PositionX float64 `dynamodbav:"positionX"`
	PositionY float64 `dynamodbav:"positionY"`
	Data      string  `dynamodbav:"data"`
	Ordinal   int     `dynamodbav:"ordinal"`
}

type FlowConnectionItem struct {
	PK             string `dynamodbav:"pk"`
	GraphKey       string `dynamodbav:"graphKey"`
	FlowID         string `dynamodbav:"flowId"`
	Revision       int64  `dynamodbav:"revision"`
	ConnectionID   string `dynamodbav:"connectionId"`
	SourceNodeID   string `dynamodbav:"sourceNodeId"`
	TargetNodeID   string `dynamodbav:"targetNodeId"`
	SourceHandle   string `dynamodbav:"sourceHandle,omitempty"`
	Label          string `dynamodbav:"label,omitempty"`
	ConditionType  string `dynamodbav:"conditionType"`
	ConditionValue string `dynamodbav:"conditionValue,omitempty"`
	Ordinal        int    `dynamodbav:"ordinal"`
}
