// Package config resolves the runtime configuration of the jobmesh service.
//
// Values resolve in three layers, each overriding the previous one:
//
//  1. Built-in defaults from [Default].
//  2. An optional YAML file.
//  3. Environment variables prefixed with JOBMESH, named after the struct
//     sections, e.g. JOBMESH_SERVER_ADDR or JOBMESH_AUTH_SECRET.
//
// Example:
//
//	cfg, err := config.Load(func(o *config.Options) {
//		o.Path = "jobmesh.yaml"
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
package config
