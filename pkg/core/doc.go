// Package core defines the shared language of the leapingest system.
//
// This package contains:
//   - Domain entities (Mode, RunContext, Schema, FileRecord, Run)
//   - Service interfaces (Adapter, Store)
//   - Configuration types (TargetConfig, DialectConfig)
//   - The error taxonomy shared by every pipeline stage
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
