package backend

// Direction of a message relative to the business.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Instance is one connected WhatsApp number.
type Instance struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	InstanceName string  `json:"instance_name"`
	APIURL       string  `json:"api_url"`
	PhoneNumber  *string `json:"phone_number"`
	Active       bool    `json:"active"`
	CreatedAt    Time    `json:"created_at"`
}

// Attendant is a human agent or manager.
type Attendant struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	Email      *string `json:"email"`
	Role       string  `json:"role"`
	InstanceID int64   `json:"instance_id"`
	TeamID     *int64  `json:"team_id"`
	Active     bool    `json:"active"`
	CreatedAt  Time    `json:"created_at"`
}

// Conversation is the backend's ConversationDetail.
type Conversation struct {
	ID                       int64    `json:"id"`
	ContactPhone             string   `json:"contact_phone"`
	ContactName              *string  `json:"contact_name"`
	ContactAvatarURL         *string  `json:"contact_avatar_url,omitempty"`
	AttendantName            *string  `json:"attendant_name"`
	Status                   Status   `json:"status"`
	OpenedAt                 Time     `json:"opened_at"`
	ResolvedAt               Time     `json:"resolved_at"`
	FirstResponseTimeSeconds *float64 `json:"first_response_time_seconds"`
	InboundCount             int      `json:"inbound_count"`
	OutboundCount            int      `json:"outbound_count"`
	TeamID                   *int64   `json:"team_id,omitempty"`
	TeamName                 *string  `json:"team_name,omitempty"`
	AnalysisCategory         *string  `json:"analysis_category,omitempty"`
	AnalysisSentiment        *string  `json:"analysis_sentiment,omitempty"`
	AnalysisSatisfaction     *float64 `json:"analysis_satisfaction,omitempty"`
	AnalysisSummary          *string  `json:"analysis_summary,omitempty"`
	AnalysisAnalyzedAt       Time     `json:"analysis_analyzed_at"`
	ResponsibleID            *int64   `json:"responsible_id,omitempty"`
	ResponsibleName          *string  `json:"responsible_name,omitempty"`
	ManagerID                *int64   `json:"manager_id,omitempty"`
	ManagerName              *string  `json:"manager_name,omitempty"`
	GroupTags                []string `json:"group_tags,omitempty"`
}

// DisplayName is the contact name, falling back to the phone number.
func (c *Conversation) DisplayName() string {
	if c.ContactName != nil && *c.ContactName != "" {
		return *c.ContactName
	}
	return c.ContactPhone
}

// Message is one entry of a conversation. Content is nil for media-only messages.
type Message struct {
	ID          int64     `json:"id"`
	Direction   Direction `json:"direction"`
	MsgType     string    `json:"msg_type"`
	Content     *string   `json:"content"`
	Timestamp   Time      `json:"timestamp"`
	SenderPhone *string   `json:"sender_phone,omitempty"`
	SenderName  *string   `json:"sender_name,omitempty"`
}

// Text returns the content, or a bracketed type marker for media-only messages.
func (m *Message) Text() string {
	if m.Content != nil {
		return *m.Content
	}
	return "[" + m.MsgType + "]"
}

// Note is an internal annotation on a conversation.
type Note struct {
	ID         int64  `json:"id"`
	AuthorName string `json:"author_name"`
	Content    string `json:"content"`
	CreatedAt  Time   `json:"created_at"`
}

// SLAAlert is one conversation waiting longer than the threshold.
type SLAAlert struct {
	ID            int64   `json:"id"`
	ContactName   *string `json:"contact_name"`
	ContactPhone  string  `json:"contact_phone"`
	AttendantName *string `json:"attendant_name"`
	OpenedAt      Time    `json:"opened_at"`
	WaitSeconds   float64 `json:"wait_seconds"`
}

// SLAAlerts is the sla-alerts response.
type SLAAlerts struct {
	Alerts           []SLAAlert `json:"alerts"`
	Count            int        `json:"count"`
	ThresholdMinutes int        `json:"threshold_minutes"`
}

// Overview is the headline metrics block.
type Overview struct {
	TotalConversations      int      `json:"total_conversations"`
	OpenConversations       int      `json:"open_conversations"`
	ResolvedConversations   int      `json:"resolved_conversations"`
	AbandonedConversations  int      `json:"abandoned_conversations"`
	WaitingConversations    int      `json:"waiting_conversations"`
	InProgressConversations int      `json:"in_progress_conversations"`
	AvgFirstResponseSeconds *float64 `json:"avg_first_response_seconds"`
	ResolutionRate          float64  `json:"resolution_rate"`
	TotalMessagesToday      int      `json:"total_messages_today"`
	TotalConversationsToday int      `json:"total_conversations_today"`
}

// OverviewComparison is Overview plus day-over-day deltas.
type OverviewComparison struct {
	Overview                 Overview `json:"overview"`
	ChangeConversationsToday float64  `json:"change_conversations_today"`
	ChangeMessagesToday      float64  `json:"change_messages_today"`
	ChangeResolutionRate     float64  `json:"change_resolution_rate"`
}

// ExtendedMetrics are the SLA and abandonment rates.
type ExtendedMetrics struct {
	AvgResolutionTimeSeconds  *float64 `json:"avg_resolution_time_seconds"`
	AbandonmentRate           float64  `json:"abandonment_rate"`
	SLA5MinRate               float64  `json:"sla_5min_rate"`
	SLA15MinRate              float64  `json:"sla_15min_rate"`
	SLA30MinRate              float64  `json:"sla_30min_rate"`
	ConversationsNoResponse1h int      `json:"conversations_no_response_1h"`
	ConversationsNoResponse4h int      `json:"conversations_no_response_4h"`
}

// AttendantMetrics is one row of the per-attendant table.
type AttendantMetrics struct {
	AttendantID             int64    `json:"attendant_id"`
	AttendantName           string   `json:"attendant_name"`
	Role                    string   `json:"role"`
	TotalConversations      int      `json:"total_conversations"`
	OpenConversations       int      `json:"open_conversations"`
	ResolvedConversations   int      `json:"resolved_conversations"`
	AbandonedConversations  int      `json:"abandoned_conversations"`
	AvgFirstResponseSeconds *float64 `json:"avg_first_response_seconds"`
	TotalMessagesSent       int      `json:"total_messages_sent"`
	TotalMessagesReceived   int      `json:"total_messages_received"`
	ResolutionRate          float64  `json:"resolution_rate"`
}

// GroupOverview summarizes WhatsApp groups.
type GroupOverview struct {
	TotalGroups              int `json:"total_groups"`
	GroupsWithResponsible    int `json:"groups_with_responsible"`
	GroupsWithoutResponsible int `json:"groups_without_responsible"`
	GroupsActiveToday        int `json:"groups_active_today"`
	MessagesInGroupsToday    int `json:"messages_in_groups_today"`
}

// Call is one entry of the call log.
type Call struct {
	ID               int64     `json:"id"`
	ConversationID   int64     `json:"conversation_id"`
	ContactPhone     string    `json:"contact_phone"`
	ContactName      *string   `json:"contact_name"`
	Direction        Direction `json:"direction"`
	Content          *string   `json:"content"`
	Timestamp        Time      `json:"timestamp"`
	CallOutcome      *string   `json:"call_outcome"`
	CallDurationSecs *int      `json:"call_duration_secs"`
	IsVideoCall      *bool     `json:"is_video_call"`
}

// ConversationFilter narrows the conversations list.
type ConversationFilter struct {
	Limit       int
	InstanceID  *int64
	Status      Status
	AttendantID *int64
}

// Team groups attendants. The backend routes new conversations to a team by
// matching its keywords.
type Team struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Keywords    *string `json:"keywords"`
	InstanceID  int64   `json:"instance_id"`
	Active      bool    `json:"active"`
	CreatedAt   Time    `json:"created_at"`
}

type TeamMetrics struct {
	TeamID                  int64    `json:"team_id"`
	TeamName                string   `json:"team_name"`
	InstanceID              int64    `json:"instance_id"`
	TotalConversations      int      `json:"total_conversations"`
	OpenConversations       int      `json:"open_conversations"`
	ResolvedConversations   int      `json:"resolved_conversations"`
	AbandonedConversations  int      `json:"abandoned_conversations"`
	WaitingForResponse      int      `json:"waiting_for_response"`
	ConversationsToday      int      `json:"conversations_today"`
	AvgFirstResponseSeconds *float64 `json:"avg_first_response_seconds"`
	ResolutionRate          float64  `json:"resolution_rate"`
	TotalMessagesReceived   int      `json:"total_messages_received"`
}

// AttendantInput registers an attendant. Role is "agent" or "manager".
type AttendantInput struct {
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	Email      *string `json:"email,omitempty"`
	Role       string  `json:"role"`
	InstanceID int64   `json:"instance_id"`
}

// AttendantUpdate changes only the fields that are set.
type AttendantUpdate struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}

type TeamInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Keywords    *string `json:"keywords,omitempty"`
	InstanceID  int64   `json:"instance_id"`
}
