package manifest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SchemaError reports a manifest that cannot be turned into build requests.
type SchemaError struct {
	Path   string
	Index  int
	Key    string
	Reason string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid %s schema", e.Path)
	if e.Index >= 0 {
		fmt.Fprintf(&b, ": builds[%d]", e.Index)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, ": %s key not found", e.Key)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}

// document mirrors the manifest layout. Pointer fields distinguish an absent
// key from a zero value.
type document struct {
	Builds *[]rawBuild `yaml:"builds"`
}

type rawBuild struct {
	ProjectName       *string        `yaml:"projectName"`
	BuildName         *string        `yaml:"buildName"`
	StrategyType      *string        `yaml:"strategyType"`
	Architecture      *string        `yaml:"architecture"`
	Repository        string         `yaml:"repository"`
	IsRos             bool           `yaml:"isRos"`
	RosDistro         string         `yaml:"rosDistro"`
	ContextDir        string         `yaml:"contextDir"`
	DockerFilePath    string         `yaml:"dockerFilePath"`
	Secret            string         `yaml:"secret"`
	DockerPullSecret  string         `yaml:"dockerPullSecret"`
	SimulationOptions *rawSimulation `yaml:"simulationOptions"`
	BuildOptions      *rawBuildOpts  `yaml:"buildOptions"`
}

type rawSimulation struct {
	Simulation *bool `yaml:"simulation"`
}

type rawBuildOpts struct {
	CatkinOptions *[]CatkinOption `yaml:"catkinOptions"`
}

// Load reads the manifest at path. Entries without a repository use
// defaultRepository.
func Load(path, defaultRepository string) ([]BuildRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	return parse(path, data, defaultRepository)
}

// Parse decodes manifest bytes. Entries without a repository use
// defaultRepository.
func Parse(data []byte, defaultRepository string) ([]BuildRequest, error) {
	return parse("manifest", data, defaultRepository)
}

func parse(name string, data []byte, defaultRepository string) ([]BuildRequest, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &SchemaError{Path: name, Index: -1, Reason: err.Error()}
	}
	if doc.Builds == nil {
		return nil, &SchemaError{Path: name, Index: -1, Key: "builds"}
	}

	builds := make([]BuildRequest, 0, len(*doc.Builds))
	for i, raw := range *doc.Builds {
		build, err := raw.request(defaultRepository)
		if err != nil {
			err.Path = name
			err.Index = i
			return nil, err
		}
		builds = append(builds, build)
	}
	return builds, nil
}

func (r rawBuild) request(defaultRepository string) (BuildRequest, *SchemaError) {
	required := []struct {
		key   string
		value *string
	}{
		{"buildName", r.BuildName},
		{"strategyType", r.StrategyType},
		{"architecture", r.Architecture},
		{"projectName", r.ProjectName},
	}
	for _, field := range required {
		if field.value == nil {
			return BuildRequest{}, &SchemaError{Key: field.key}
		}
	}

	build := BuildRequest{
		ProjectName:      *r.ProjectName,
		BuildName:        *r.BuildName,
		StrategyType:     *r.StrategyType,
		Repository:       r.Repository,
		Architecture:     *r.Architecture,
		IsRos:            r.IsRos,
		RosDistro:        r.RosDistro,
		ContextDir:       r.ContextDir,
		DockerFilePath:   r.DockerFilePath,
		Secret:           r.Secret,
		DockerPullSecret: r.DockerPullSecret,
	}
	if build.Repository == "" {
		build.Repository = defaultRepository
	}

	if r.SimulationOptions != nil {
		if r.SimulationOptions.Simulation == nil {
			return BuildRequest{}, &SchemaError{Key: "simulationOptions.simulation"}
		}
		build.SimulationOptions = &SimulationOptions{Simulation: *r.SimulationOptions.Simulation}
	}

	if r.BuildOptions != nil {
		if r.BuildOptions.CatkinOptions == nil {
			return BuildRequest{}, &SchemaError{Key: "buildOptions.catkinOptions"}
		}
		build.BuildOptions = &BuildOptions{
			CatkinOptions: append([]CatkinOption{}, *r.BuildOptions.CatkinOptions...),
		}
	}

	return build, nil
}
