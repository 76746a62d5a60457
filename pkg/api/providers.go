package api

// ProviderResource contains the configuration details for an evaluation
// provider.
type ProviderResource struct {
	ID          string              `mapstructure:"id" yaml:"id" json:"id"`
	Name        string              `mapstructure:"name" yaml:"name" json:"name"`
	Description string              `mapstructure:"description" yaml:"description" json:"description"`
	Type        string              `mapstructure:"type" yaml:"type" json:"type"`
	Benchmarks  []BenchmarkResource `mapstructure:"benchmarks" yaml:"benchmarks" json:"benchmarks"`
	Runtime     *Runtime            `mapstructure:"runtime" yaml:"runtime" json:"-"`
}

// Runtime selects how a provider's adapter is launched. Exactly one of the
// fields is expected to be set.
type Runtime struct {
	K8s   *K8sRuntime   `mapstructure:"k8s" yaml:"k8s" json:"k8s,omitempty"`
	Local *LocalRuntime `mapstructure:"local" yaml:"local" json:"local,omitempty"`
}

// K8sRuntime contains runtime configuration for Kubernetes jobs.
//
// Example YAML for provider configs:
//
//	runtime:
//	  k8s:
//	    image: "quay.io/evalhub/adapter:latest"
//	    entrypoint:
//	      - "/path/to/program"
//	    cpu_request: "250m"
//	    memory_request: "512Mi"
//	    cpu_limit: "1"
//	    memory_limit: "2Gi"
//	    env:
//	      - name: FOO
//	        value: "bar"
type K8sRuntime struct {
	Image         string   `mapstructure:"image" yaml:"image"`
	Entrypoint    []string `mapstructure:"entrypoint" yaml:"entrypoint"`
	CPURequest    string   `mapstructure:"cpu_request" yaml:"cpu_request"`
	MemoryRequest string   `mapstructure:"memory_request" yaml:"memory_request"`
	CPULimit      string   `mapstructure:"cpu_limit" yaml:"cpu_limit"`
	MemoryLimit   string   `mapstructure:"memory_limit" yaml:"memory_limit"`
	Env           []EnvVar `mapstructure:"env" yaml:"env"`
}

// LocalRuntime contains runtime configuration for adapters launched as
// local child processes.
type LocalRuntime struct {
	Command string   `mapstructure:"command" yaml:"command"`
	Args    []string `mapstructure:"args" yaml:"args"`
	WorkDir string   `mapstructure:"work_dir" yaml:"work_dir"`
}

// EnvVar is a name/value pair injected into an adapter's environment.
type EnvVar struct {
	Name  string `mapstructure:"name" yaml:"name" json:"name"`
	Value string `mapstructure:"value" yaml:"value" json:"value"`
}

// ProviderResourceList represents response for listing providers
type ProviderResourceList struct {
	TotalCount int                `json:"total_count"`
	Items      []ProviderResource `json:"items,omitempty"`
}
