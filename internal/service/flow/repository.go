package flow

import (
	"context"
	"errors"

	"botpos-chat-backend/internal/database"
	"botpos-chat-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	ErrNotFound = errors.New("flow repository: not found")
	// ErrRevisionMoved means another save moved the flow to a new graph
	// revision first.
	ErrRevisionMoved = errors.New("flow repository: graph revision changed")
)

type Repository interface {
	ListFlows(ctx context.Context) ([]model.FlowItem, error)
	GetFlow(ctx context.Context, flowID string) (model.FlowItem, error)
	PutFlow(ctx context.Context, flow model.FlowItem) error
	DeleteFlow(ctx context.Context, flowID string) error

	// WriteGraph stores the rows of one revision. Rows of a revision are
	// never rewritten once its revision is live.
	WriteGraph(ctx context.Context, nodes []model.FlowNodeItem, connections []model.FlowConnectionItem) error
	ListGraph(ctx context.Context, graphKey string) ([]model.FlowNodeItem, []model.FlowConnectionItem, error)
	// SetGraphRevision points the flow at next when it still points at prev.
	SetGraphRevision(ctx context.Context, flowID string, prev, next int64, at string) error
	// DeleteGraphRows drops rows of the given revisions, or of every
	// revision when revisions is empty.
	DeleteGraphRows(ctx context.Context, flowID string, revisions ...int64) error
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) ListFlows(ctx context.Context) ([]model.FlowItem, error) {
	items, err := r.db.Client.ScanAll(ctx, model.FlowsTable)
	if err != nil {
		return nil, err
	}
	return database.UnmarshalAll[model.FlowItem](items)
}

func (r *DynamoRepository) GetFlow(ctx context.Context, flowID string) (model.FlowItem, error) {
	var flow model.FlowItem
	err := r.db.Client.GetItem(ctx, model.FlowsTable, database.StringKey("flowId", flowID), &flow)
	if err != nil {
		if database.IsNotFound(err) {
			return model.FlowItem{}, ErrNotFound
		}
		return model.FlowItem{}, err
	}
	return flow, nil
}

func (r *DynamoRepository) PutFlow(ctx context.Context, flow model.FlowItem) error {
	return r.db.Client.PutItem(ctx, model.FlowsTable, flow)
}

func (r *DynamoRepository) DeleteFlow(ctx context.Context, flowID string) error {
	return r.db.Client.DeleteItem(ctx, model.FlowsTable, database.StringKey("flowId", flowID))
}

func (r *DynamoRepository) WriteGraph(ctx context.Context, nodes []model.FlowNodeItem, connections []model.FlowConnectionItem) error {
	nodePuts := make([]interface{}, 0, len(nodes))
	for _, n := range nodes {
		nodePuts = append(nodePuts, n)
	}
	if err := r.db.Client.BatchWriteItem(ctx, model.FlowNodesTable, nodePuts, nil); err != nil {
		return err
	}

	connPuts := make([]interface{}, 0, len(connections))
	for _, c := range connections {
		connPuts = append(connPuts, c)
	}
	return r.db.Client.BatchWriteItem(ctx, model.FlowConnectionsTable, connPuts, nil)
}

func (r *DynamoRepository) ListGraph(ctx context.Context, graphKey string) ([]model.FlowNodeItem, []model.FlowConnectionItem, error) {
	nodeRows, err := r.db.Client.QueryIndexOrScan(ctx, model.FlowNodesTable, model.FlowGraphIndex, "graphKey", graphKey)
	if err != nil {
		return nil, nil, err
	}
	nodes, err := database.UnmarshalAll[model.FlowNodeItem](nodeRows)
	if err != nil {
		return nil, nil, err
	}

	connRows, err := r.db.Client.QueryIndexOrScan(ctx, model.FlowConnectionsTable, model.FlowGraphIndex, "graphKey", graphKey)
	if err != nil {
		return nil, nil, err
	}
	connections, err := database.UnmarshalAll[model.FlowConnectionItem](connRows)
	if err != nil {
		return nil, nil, err
	}
	return nodes, connections, nil
}

func (r *DynamoRepository) SetGraphRevision(ctx context.Context, flowID string, prev, next int64, at string) error {
	err := r.db.Client.UpdateItemConditional(
		ctx,
		model.FlowsTable,
		database.StringKey("flowId", flowID),
		"SET #graphRevision = :next, #updatedAt = :at",
		"attribute_exists(flowId) AND #graphRevision = :prev",
		map[string]types.AttributeValue{
			":next": database.AttrNumber(next),
			":prev": database.AttrNumber(prev),
			":at":   database.AttrString(at),
		},
		map[string]string{
			"#graphRevision": "graphRevision",
			"#updatedAt":     "updatedAt",
		},
		nil,
	)
	if !errors.Is(err, database.ErrConditionFailed) {
		return err
	}
	if _, getErr := r.GetFlow(ctx, flowID); errors.Is(getErr, ErrNotFound) {
		return ErrNotFound
	}
	return ErrRevisionMoved
}

func (r *DynamoRepository) DeleteGraphRows(ctx context.Context, flowID string, revisions ...int64) error {
	wanted := make(map[int64]bool, len(revisions))
	for _, rev := range revisions {
		wanted[rev] = true
	}
	keep := func(rev int64) bool { return len(wanted) == 0 || wanted[rev] }

	filter := "#flowId = :flowId"
	values := map[string]types.AttributeValue{":flowId": database.AttrString(flowID)}
	names := map[string]string{"#flowId": "flowId"}

	nodeRows, err := r.db.Client.ScanAllWithFilter(ctx, model.FlowNodesTable, filter, values, names)
	if err != nil {
		return err
	}
	nodes, err := database.UnmarshalAll[model.FlowNodeItem](nodeRows)
	if err != nil {
		return err
	}
	var nodeKeys []map[string]types.AttributeValue
	for _, n := range nodes {
		if keep(n.Revision) {
			nodeKeys = append(nodeKeys, database.StringKey("pk", n.PK))
		}
	}
	if err := r.db.Client.BatchDeleteItems(ctx, model.FlowNodesTable, nodeKeys); err != nil {
		return err
	}

	connRows, err := r.db.Client.ScanAllWithFilter(ctx, model.FlowConnectionsTable, filter, values, names)
	if err != nil {
		return err
	}
	connections, err := database.UnmarshalAll[model.FlowConnectionItem](connRows)
	if err != nil {
		return err
	}
	var connKeys []map[string]types.AttributeValue
	for _, c := range connections {
		if keep(c.Revision) {
			connKeys = append(connKeys, database.StringKey("pk", c.PK))
		}
	}
	return r.db.Client.BatchDeleteItems(ctx, model.FlowConnectionsTable, connKeys)
}
