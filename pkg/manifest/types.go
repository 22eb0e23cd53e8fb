package manifest

// BuildRequest describes one build the manifest asks for. Values are fixed
// once parsed.
type BuildRequest struct {
	ProjectName       string             `yaml:"projectName" json:"projectName"`
	BuildName         string             `yaml:"buildName" json:"buildName"`
	StrategyType      string             `yaml:"strategyType" json:"strategyType"`
	Repository        string             `yaml:"repository" json:"repository"`
	Architecture      string             `yaml:"architecture" json:"architecture"`
	IsRos             bool               `yaml:"isRos" json:"isRos"`
	RosDistro         string             `yaml:"rosDistro" json:"rosDistro,omitempty"`
	ContextDir        string             `yaml:"contextDir" json:"contextDir,omitempty"`
	DockerFilePath    string             `yaml:"dockerFilePath" json:"dockerFilePath,omitempty"`
	Secret            string             `yaml:"secret" json:"secret,omitempty"`
	DockerPullSecret  string             `yaml:"dockerPullSecret" json:"dockerPullSecret,omitempty"`
	SimulationOptions *SimulationOptions `yaml:"simulationOptions" json:"simulationOptions,omitempty"`
	BuildOptions      *BuildOptions      `yaml:"buildOptions" json:"buildOptions,omitempty"`
}

// SimulationOptions toggles simulation support in the built image.
type SimulationOptions struct {
	Simulation bool `yaml:"simulation" json:"simulation"`
}

// BuildOptions carries strategy specific options.
type BuildOptions struct {
	CatkinOptions []CatkinOption `yaml:"catkinOptions" json:"catkinOptions"`
}

// CatkinOption configures one catkin workspace build of a ROS build.
type CatkinOption struct {
	RosPkgs        string `yaml:"rosPkgs" json:"rosPkgs,omitempty"`
	CmakeArgs      string `yaml:"cmakeArgs" json:"cmakeArgs,omitempty"`
	MakeArgs       string `yaml:"makeArgs" json:"makeArgs,omitempty"`
	Blacklist      string `yaml:"blacklist" json:"blacklist,omitempty"`
	CatkinMakeArgs string `yaml:"catkinMakeArgs" json:"catkinMakeArgs,omitempty"`
}

// ProjectNames returns the distinct project names in first-seen order.
func ProjectNames(builds []BuildRequest) []string {
	seen := make(map[string]struct{}, len(builds))
	names := make([]string, 0, len(builds))
	for _, b := range builds {
		if _, ok := seen[b.ProjectName]; ok {
			continue
		}
		seen[b.ProjectName] = struct{}{}
		names = append(names, b.ProjectName)
	}
	return names
}
