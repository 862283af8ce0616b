// Package files provides file system discovery and directory management for
// the export tool.
//
// This package contains two main components:
//
// Discovery: Finds patient folders under a challenge data root. A patient
// folder is an immediate subdirectory that holds a "<name>.txt" patient
// metadata file; folders are returned sorted by name.
//
// Manager: Creates directories and checks for files relative to a base path.
// The exporter uses it to create the export root and per-patient folders.
//
// Example usage:
//
//	discovery := files.NewDiscovery("")
//	ids, err := discovery.FindDataFolders("data/training")
//
//	manager := files.NewManager("data/export", logger)
//	created, err := manager.EnsureDirectory("0284")
package files
