package config

// A Project is the project a configuration belongs to. Every configuration
// must declare exactly one project block:
//
//   project "example" {}
//
// The project name partitions resource state, allowing multiple projects to
// share a state store.
type Project struct {
	// Name is the name of the project.
	Name string `hcl:"name,label"`
}
