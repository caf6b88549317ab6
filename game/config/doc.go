// Package config provides level and server configuration management.
//
// The config package handles:
//   - Loading levels from JSON or YAML files and from the Postgres store
//   - Caching loaded levels and choosing a default
//   - Listing levels across sources
//   - Reading the server settings file with environment overrides
//
// Level Sources:
//
// A Manager searches its sources in order. DirSource reads a directory of
// level files named after the level ("crossroads.json", "ring.yaml"); the
// store package provides a Postgres source. Saving always writes to the
// first source.
//
// Usage:
//
//	manager, err := config.NewDirManager("levels")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load specific level
//	level, err := manager.LoadLevel(ctx, "ring")
//
//	// Get default level
//	name, level := manager.GetDefault()
//
//	// List available levels
//	levels, err := manager.ListLevels(ctx)
package config
