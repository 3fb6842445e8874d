package backend

import (
	"context"
	"fmt"
	"net/http"
)

func (c *Client) CreateAttendant(ctx context.Context, in AttendantInput) (*Attendant, error) {
	var out Attendant
	if err := c.do(ctx, http.MethodPost, "/api/attendants", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateAttendant(ctx context.Context, id int64, in AttendantUpdate) (*Attendant, error) {
	var out Attendant
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/attendants/%d", id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAttendant deactivates an attendant; history keeps the name.
func (c *Client) DeleteAttendant(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/attendants/%d", id), nil, nil, nil)
}

// Teams lists active teams, optionally for one instance.
func (c *Client) Teams(ctx context.Context, instanceID *int64) ([]Team, error) {
	var out []Team
	if err := c.get(ctx, "/api/teams", instanceQuery(instanceID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTeam(ctx context.Context, in TeamInput) (*Team, error) {
	var out Team
	if err := c.do(ctx, http.MethodPost, "/api/teams", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTeam deactivates a team.
func (c *Client) DeleteTeam(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/teams/%d", id), nil, nil, nil)
}

func (c *Client) TeamMetrics(ctx context.Context, instanceID *int64) ([]TeamMetrics, error) {
	var out []TeamMetrics
	if err := c.get(ctx, "/api/metrics/teams", instanceQuery(instanceID), &out); err != nil {
		return nil, err
	}
	return out, nil
}
