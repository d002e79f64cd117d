package model

import "fmt"

const (
	CustomersTable         = "Customers"
	ChannelIdentitiesTable = "ChannelIdentities"
	SessionsTable          = "ChatSessions"
	MessagesTable          = "ChatMessages"
	TemplatesTable         = "MessageTemplates"
	NotesTable             = "CustomerNotes"
	TagsTable              = "ConversationTags"
	SessionTagsTable       = "SessionTags"
	FlowsTable             = "BotFlows"
	FlowNodesTable         = "FlowNodes"
	FlowConnectionsTable   = "FlowConnections"
	AdminsTable            = "Admins"
)

// Secondary indexes. Repositories fall back to a filtered scan when an index
// is missing, so local tables work without them.
const (
	MessagesBySessionIndex = "bySession"
	NotesByCustomerIndex   = "byCustomer"
	SessionTagsBySession   = "bySession"
	FlowGraphIndex         = "byGraph"
	AdminsByEmailIndex     = "byEmail"
	SessionsByCustomer     = "byCustomer"
)

func compositeKey(parts ...string) string {
	key := parts[0]
	for _, p := range parts[1:] {
		key = fmt.Sprintf("%s#%s", key, p)
	}
	return key
}
