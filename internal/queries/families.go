// Package queries names every cached server query, binds each to its backend
// call, and declares which queries each mutation invalidates.
package queries

import "time"

// Query families. A key is a family followed by its parameters.
const (
	Instances           = "instances"
	AttendantsList      = "attendants-list"
	TeamsList           = "teams-list"
	Overview            = "overview"
	OverviewComparison  = "overview-comparison"
	ExtendedMetrics     = "extended-metrics"
	AttendantsMetrics   = "attendants-metrics"
	TeamMetrics         = "team-metrics"
	Conversations       = "conversations"
	ConversationsRecent = "conversations-recent"
	Conversation        = "conversation"
	Messages            = "messages"
	Notes               = "notes"
	SLAAlerts           = "sla-alerts"
	Groups              = "groups"
	GroupsOverview      = "groups-overview"
	GroupMessages       = "group-messages"
	Calls               = "calls"
)

// Poll intervals used by the screens that mount these queries. Open
// conversation messages follow backend.PolicyFor instead.
const (
	GroupMessagesInterval = 10 * time.Second
	MetricsInterval       = 30 * time.Second
	SLAAlertsInterval     = 60 * time.Second
)

// RecentConversationsLimit is the size of the dashboard's recent list.
const RecentConversationsLimit = 8
