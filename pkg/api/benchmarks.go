package api

// BenchmarkResource represents benchmark specification
type BenchmarkResource struct {
	ID          string   `mapstructure:"id" yaml:"id" json:"id"`
	Label       string   `mapstructure:"label" yaml:"label" json:"label"`
	Description string   `mapstructure:"description" yaml:"description" json:"description,omitempty"`
	Category    string   `mapstructure:"category" yaml:"category" json:"category,omitempty"`
	ProviderID  string   `mapstructure:"provider_id" yaml:"provider_id" json:"provider_id"`
	Tags        []string `mapstructure:"tags" yaml:"tags" json:"tags,omitempty"`
}

// BenchmarkResourceList represents list of benchmarks
type BenchmarkResourceList struct {
	TotalCount int                 `json:"total_count"`
	Items      []BenchmarkResource `json:"items"`
}
