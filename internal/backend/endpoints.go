package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Instances lists the configured instances.
func (c *Client) Instances(ctx context.Context) ([]Instance, error) {
	var out []Instance
	if err := c.get(ctx, "/api/instances", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Attendants lists attendants, optionally for one instance.
func (c *Client) Attendants(ctx context.Context, instanceID *int64) ([]Attendant, error) {
	var out []Attendant
	if err := c.get(ctx, "/api/attendants", instanceQuery(instanceID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Overview(ctx context.Context, instanceID *int64) (*Overview, error) {
	var out Overview
	if err := c.get(ctx, "/api/metrics/overview", instanceQuery(instanceID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) OverviewComparison(ctx context.Context, instanceID *int64) (*OverviewComparison, error) {
	var out OverviewComparison
	if err := c.get(ctx, "/api/metrics/overview-comparison", instanceQuery(instanceID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ExtendedMetrics(ctx context.Context, instanceID *int64) (*ExtendedMetrics, error) {
	var out ExtendedMetrics
	if err := c.get(ctx, "/api/metrics/extended", instanceQuery(instanceID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AttendantMetrics(ctx context.Context, instanceID *int64) ([]AttendantMetrics, error) {
	var out []AttendantMetrics
	if err := c.get(ctx, "/api/metrics/attendants", instanceQuery(instanceID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Conversations lists conversations matching f.
func (c *Client) Conversations(ctx context.Context, f ConversationFilter) ([]Conversation, error) {
	q := url.Values{}
	setInt(q, "limit", f.Limit)
	setID(q, "instance_id", f.InstanceID)
	setStr(q, "status", string(f.Status))
	setID(q, "attendant_id", f.AttendantID)
	var out []Conversation
	if err := c.get(ctx, "/api/metrics/conversations", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func conversationPath(id int64, suffix string) string {
	return fmt.Sprintf("/api/metrics/conversations/%d%s", id, suffix)
}

func (c *Client) Conversation(ctx context.Context, id int64) (*Conversation, error) {
	var out Conversation
	if err := c.get(ctx, conversationPath(id, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Messages returns a conversation's messages in server order.
func (c *Client) Messages(ctx context.Context, conversationID int64) ([]Message, error) {
	var out []Message
	if err := c.get(ctx, conversationPath(conversationID, "/messages"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage sends text to the contact of an open conversation.
func (c *Client) SendMessage(ctx context.Context, conversationID int64, text string) error {
	body := map[string]string{"text": text}
	return c.do(ctx, http.MethodPost, conversationPath(conversationID, "/send"), nil, body, nil)
}

func (c *Client) Resolve(ctx context.Context, conversationID int64) error {
	return c.do(ctx, http.MethodPost, conversationPath(conversationID, "/resolve"), nil, nil, nil)
}

// Analyze requests an LLM analysis; results land on the conversation later.
func (c *Client) Analyze(ctx context.Context, conversationID int64) error {
	return c.do(ctx, http.MethodPost, conversationPath(conversationID, "/analyze"), nil, nil, nil)
}

// Assign sets or, with a nil attendantID, clears the conversation's attendant.
func (c *Client) Assign(ctx context.Context, conversationID int64, attendantID *int64) error {
	body := map[string]*int64{"attendant_id": attendantID}
	return c.do(ctx, http.MethodPatch, conversationPath(conversationID, "/assign"), nil, body, nil)
}

func (c *Client) Notes(ctx context.Context, conversationID int64) ([]Note, error) {
	var out []Note
	if err := c.get(ctx, conversationPath(conversationID, "/notes"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddNote(ctx context.Context, conversationID int64, content, author string) (*Note, error) {
	body := map[string]string{"content": content, "author_name": author}
	var out Note
	if err := c.do(ctx, http.MethodPost, conversationPath(conversationID, "/notes"), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteNote(ctx context.Context, conversationID, noteID int64) error {
	path := conversationPath(conversationID, fmt.Sprintf("/notes/%d", noteID))
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Groups lists group conversations.
func (c *Client) Groups(ctx context.Context, instanceID *int64, limit int) ([]Conversation, error) {
	q := instanceQuery(instanceID)
	setInt(q, "limit", limit)
	var out []Conversation
	if err := c.get(ctx, "/api/metrics/groups", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GroupOverview(ctx context.Context, instanceID *int64) (*GroupOverview, error) {
	var out GroupOverview
	if err := c.get(ctx, "/api/metrics/groups/overview", instanceQuery(instanceID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GroupMessages(ctx context.Context, groupID int64) ([]Message, error) {
	var out []Message
	if err := c.get(ctx, fmt.Sprintf("/api/metrics/groups/%d/messages", groupID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SLAAlerts lists open conversations waiting longer than thresholdMinutes.
func (c *Client) SLAAlerts(ctx context.Context, instanceID *int64, thresholdMinutes int) (*SLAAlerts, error) {
	q := instanceQuery(instanceID)
	setInt(q, "threshold_minutes", thresholdMinutes)
	var out SLAAlerts
	if err := c.get(ctx, "/api/metrics/sla-alerts", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Calls lists the call log; direction is "", "inbound" or "outbound".
func (c *Client) Calls(ctx context.Context, instanceID *int64, direction Direction) ([]Call, error) {
	q := instanceQuery(instanceID)
	setStr(q, "direction", string(direction))
	var out []Call
	if err := c.get(ctx, "/api/metrics/calls", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}
