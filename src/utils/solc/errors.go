package solc

import "errors"

var (
	// Requested compiler version isn't in the binary cache. Binaries are
	// fetched ahead of time with download-solc, never during indexing.
	ErrMissingBinary = errors.New("solc binary not cached")

	// Version string is a range or otherwise not an exact pinned version
	ErrAmbiguousVersion = errors.New("ambiguous solc version")

	// Subprocess exceeded its wall-clock budget and was killed
	ErrCompileTimeout = errors.New("solc invocation timed out")

	// Compiler ran to completion but reported errors. Deterministic, never
	// retried.
	ErrCompileDiagnostics = errors.New("solc reported errors")

	// Subprocess terminated abnormally, retried once
	ErrProcessCrash = errors.New("solc process crashed")
)
