// Package config loads crumbs configuration and rule set documents.
//
// Documents are validated against their JSON schema, decoded, and then
// validated in Go. Errors are annotated with the document source.
package config
