// Package cmd implements the command-line interface for calbridge.
//
// This package provides the following commands:
//   - serve: Start the MCP calendar server (the default command)
//   - version: Display version information
package cmd
