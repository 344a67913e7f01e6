// Package perms provides centralized file and directory permission constants
// for the ledgers, storage roots and archives managed by triage.
package perms

import "os"

// File permission constants.
const (
	// RegularFile permissions for ledgers, configuration, archived artifacts and metrics files.
	// Mode 0644: owner read/write, group read, others read.
	RegularFile os.FileMode = 0o644
)

// Directory permission constants.
const (
	// RegularDir permissions for storage roots and archive roots (approved, manual_check, <date>/codeql).
	// Mode 0755: owner read/write/execute, group read/execute, others read/execute.
	RegularDir os.FileMode = 0o755

	// WorkDir permissions for the directory holding in-flight working areas.
	// Freshly cloned, not yet analyzed code is only visible to the owner.
	// Mode 0700: owner read/write/execute only, no group or other access.
	WorkDir os.FileMode = 0o700
)
