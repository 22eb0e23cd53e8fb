package rapyuta

import "github.com/vyvo/iobuilds/pkg/manifest"

// Project is a rapyuta.io project record.
type Project struct {
	Name string `json:"name"`
	GUID string `json:"guid"`
}

// BuildStatus is the lifecycle state reported by the catalog API.
type BuildStatus string

const (
	StatusInProgress BuildStatus = "BuildInProgress"
	StatusComplete   BuildStatus = "Complete"
	StatusFailed     BuildStatus = "BuildFailed"
)

// Terminal reports whether no further progress will happen for this generation.
func (s BuildStatus) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// BuildInfo holds the source and strategy of a build.
type BuildInfo struct {
	Repository        string                      `json:"repository"`
	StrategyType      string                      `json:"strategyType"`
	Architecture      string                      `json:"architecture"`
	IsRos             bool                        `json:"isRos"`
	RosDistro         string                      `json:"rosDistro,omitempty"`
	ContextDir        string                      `json:"contextDir,omitempty"`
	DockerFilePath    string                      `json:"dockerFilePath,omitempty"`
	SimulationOptions *manifest.SimulationOptions `json:"simulationOptions,omitempty"`
	BuildOptions      *manifest.BuildOptions      `json:"buildOptions,omitempty"`
}

// Build is a build record returned by the catalog API.
type Build struct {
	GUID              string      `json:"guid"`
	BuildName         string      `json:"buildName"`
	Status            BuildStatus `json:"status"`
	BuildGeneration   int         `json:"buildGeneration"`
	Secret            string      `json:"secret,omitempty"`
	DockerPullSecrets []string    `json:"dockerPullSecrets,omitempty"`
	BuildInfo         BuildInfo   `json:"buildInfo"`
	ProjectID         string      `json:"ownerProject,omitempty"`
	CreatedAt         string      `json:"CreatedAt,omitempty"`
}

// CreateBuildRequest is the payload of a create-build call.
type CreateBuildRequest struct {
	BuildName         string    `json:"buildName"`
	Secret            string    `json:"secret,omitempty"`
	DockerPullSecrets []string  `json:"dockerPullSecrets,omitempty"`
	BuildInfo         BuildInfo `json:"buildInfo"`
}

// NewCreateBuildRequest converts a manifest entry into the wire payload.
func NewCreateBuildRequest(b manifest.BuildRequest) CreateBuildRequest {
	req := CreateBuildRequest{
		BuildName: b.BuildName,
		Secret:    b.Secret,
		BuildInfo: BuildInfo{
			Repository:        b.Repository,
			StrategyType:      b.StrategyType,
			Architecture:      b.Architecture,
			IsRos:             b.IsRos,
			RosDistro:         b.RosDistro,
			ContextDir:        b.ContextDir,
			DockerFilePath:    b.DockerFilePath,
			SimulationOptions: b.SimulationOptions,
			BuildOptions:      b.BuildOptions,
		},
	}
	if b.DockerPullSecret != "" {
		req.DockerPullSecrets = []string{b.DockerPullSecret}
	}
	return req
}

// TriggerRequest is the payload of a trigger call.
type TriggerRequest struct {
	BuildOperationInfo []BuildOperation `json:"buildOperationInfo"`
}

// BuildOperation names one build to act on.
type BuildOperation struct {
	BuildGUID string `json:"buildGuid"`
}

// TriggerResponse reports per-build results of a trigger call.
type TriggerResponse struct {
	BuildOperationResponse []BuildOperationResult `json:"buildOperationResponse"`
}

// BuildOperationResult is one entry of a TriggerResponse.
type BuildOperationResult struct {
	BuildGUID             string `json:"buildGuid"`
	BuildGenerationNumber int    `json:"buildGenerationNumber"`
	Success               bool   `json:"success"`
	Error                 string `json:"error,omitempty"`
}
