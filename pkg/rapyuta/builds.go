package rapyuta

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CreateBuild creates a build in the given project. An existing build of the
// same name yields an error matching ErrConflict.
func (c *Client) CreateBuild(ctx context.Context, projectID string, req CreateBuildRequest) (Build, error) {
	var out Build
	err := c.do(ctx, request{
		op:       "create build",
		method:   http.MethodPost,
		endpoint: c.catalogURL + "/build",
		project:  projectID,
		body:     req,
	}, &out)
	if err != nil {
		return Build{}, err
	}
	return out, nil
}

// ListBuilds returns the builds of a project.
func (c *Client) ListBuilds(ctx context.Context, projectID string) ([]Build, error) {
	var out []Build
	err := c.do(ctx, request{
		op:       "list builds",
		method:   http.MethodGet,
		endpoint: c.catalogURL + "/build",
		project:  projectID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetBuild fetches a single build including its current status.
func (c *Client) GetBuild(ctx context.Context, projectID, guid string) (Build, error) {
	var out Build
	err := c.do(ctx, request{
		op:       "get build",
		method:   http.MethodGet,
		endpoint: c.catalogURL + "/build/" + url.PathEscape(guid),
		project:  projectID,
	}, &out)
	if err != nil {
		return Build{}, err
	}
	return out, nil
}

// TriggerBuild starts a new generation of an existing build and returns the
// generation number the catalog assigned to it.
func (c *Client) TriggerBuild(ctx context.Context, projectID, guid string) (int, error) {
	var out TriggerResponse
	err := c.do(ctx, request{
		op:       "trigger build",
		method:   http.MethodPut,
		endpoint: c.catalogURL + "/build/operation/trigger",
		project:  projectID,
		body: TriggerRequest{BuildOperationInfo: []BuildOperation{
			{BuildGUID: guid},
		}},
	}, &out)
	if err != nil {
		return 0, err
	}

	for _, result := range out.BuildOperationResponse {
		if result.BuildGUID != guid {
			continue
		}
		if !result.Success {
			return 0, fmt.Errorf("trigger build %s: %s", guid, result.Error)
		}
		return result.BuildGenerationNumber, nil
	}
	return 0, fmt.Errorf("trigger build %s: no result in response", guid)
}
