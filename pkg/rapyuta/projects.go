package rapyuta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// projectList accepts both the bare array the core API returns and the
// {"data": [...]} envelope used by its paginated endpoints.
type projectList []Project

func (l *projectList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var projects []Project
		if err := json.Unmarshal(trimmed, &projects); err != nil {
			return err
		}
		*l = projects
		return nil
	}

	var envelope struct {
		Data *[]Project `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return err
	}
	if envelope.Data == nil {
		return fmt.Errorf("project list: missing data field")
	}
	*l = *envelope.Data
	return nil
}

// ListProjects returns every project visible to the client's auth token.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects projectList
	err := c.do(ctx, request{
		op:       "list projects",
		method:   http.MethodGet,
		endpoint: c.coreURL + "/api/project/list",
	}, &projects)
	if err != nil {
		return nil, err
	}
	return projects, nil
}
