// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation,
// so secrets such as server.api_key can stay out of the file:
//
//	server:
//	  base_url: http://localhost:8000
//	  api_key: ${CAMSYNC_API_KEY}
//	connection:
//	  max_attempts: 5
//	poller:
//	  interval: 2s
package config
