// Package mcp exposes doclens over the Model Context Protocol so that
// assistants can search indexed documents, group results into themes and
// upload new files.
package mcp

import (
	"errors"

	"github.com/custodia-labs/doclens/internal/core/ports/driving"
)

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")

// Ports aggregates the driving ports used by the MCP server.
// Tools and resources backed by a nil optional port are not registered.
type Ports struct {
	// Query retrieves passages. Required.
	Query driving.QueryService

	// Themes groups passages into themes. Optional.
	Themes driving.ThemeService

	// Ingestion uploads documents and reports their status. Optional.
	Ingestion driving.IngestionService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
