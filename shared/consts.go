package shared

// File modes for dataset files and the directories holding them.
const (
	OwnerReadWrite     = 0o600
	OwnerReadWriteExec = 0o700
)
