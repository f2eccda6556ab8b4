// Package core defines the shared language of the LeapStream system.
//
// This package contains:
//   - Collaborator contracts (Cursor, Connection, Command, AsyncCommand, TableFiller)
//   - Result containers (Table, DataSet, Target)
//   - Error taxonomy (ConfigurationError, FetchError)
//   - Adapter configuration (AdapterConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
