package queries

import "github.com/matheus3301/beazap/internal/query"

// MutationKind names a server-side change made from the client.
type MutationKind string

const (
	SendMessage         MutationKind = "send_message"
	ResolveConversation MutationKind = "resolve_conversation"
	AssignConversation  MutationKind = "assign_conversation"
	AnalyzeConversation MutationKind = "analyze_conversation"
	AddNote             MutationKind = "add_note"
	DeleteNote          MutationKind = "delete_note"

	CreateAttendant MutationKind = "create_attendant"
	UpdateAttendant MutationKind = "update_attendant"
	DeleteAttendant MutationKind = "delete_attendant"
	CreateTeam      MutationKind = "create_team"
	DeleteTeam      MutationKind = "delete_team"
)

// scope says whether an invalidated family is narrowed to the conversation id.
type scope int

const (
	byFamily scope = iota
	byConversation
)

type target struct {
	family string
	scope  scope
}

var mutationInvalidations = map[MutationKind][]target{
	SendMessage: {
		{Messages, byConversation},
		{Conversation, byConversation},
	},
	ResolveConversation: {
		{Conversation, byConversation},
		{Conversations, byFamily},
		{Overview, byFamily},
		{SLAAlerts, byFamily},
	},
	AssignConversation: {
		{Conversation, byConversation},
		{Conversations, byFamily},
		{SLAAlerts, byFamily},
	},
	AnalyzeConversation: {
		{Conversation, byConversation},
	},
	AddNote: {
		{Notes, byConversation},
		{Conversation, byConversation},
	},
	DeleteNote: {
		{Notes, byConversation},
		{Conversation, byConversation},
	},
	CreateAttendant: attendantTargets,
	UpdateAttendant: attendantTargets,
	DeleteAttendant: attendantTargets,
	CreateTeam:      teamTargets,
	DeleteTeam:      teamTargets,
}

var (
	attendantTargets = []target{{AttendantsList, byFamily}, {AttendantsMetrics, byFamily}}
	teamTargets      = []target{{TeamsList, byFamily}, {TeamMetrics, byFamily}}
)

// Invalidations returns the key prefixes a successful mutation of kind
// invalidates. conversationID narrows conversation-scoped targets; roster
// kinds ignore it. Unknown kinds invalidate nothing.
func Invalidations(kind MutationKind, conversationID int64) []query.Key {
	targets := mutationInvalidations[kind]
	keys := make([]query.Key, 0, len(targets))
	for _, t := range targets {
		if t.scope == byConversation {
			keys = append(keys, query.NewKey(t.family, conversationID))
		} else {
			keys = append(keys, query.NewKey(t.family))
		}
	}
	return keys
}

// Kinds lists every declared mutation.
func Kinds() []MutationKind {
	return []MutationKind{
		SendMessage, ResolveConversation, AssignConversation, AnalyzeConversation, AddNote, DeleteNote,
		CreateAttendant, UpdateAttendant, DeleteAttendant, CreateTeam, DeleteTeam,
	}
}
