package model

const (
	TableContract = "contract"
)

// Lifecycle of a contract row. Rows are never deleted, only the status flag
// changes during indexing.
type Status string

const (
	StatusPending Status = "pending"
	StatusIndexed Status = "indexed"
	StatusFailed  Status = "failed"

	// Recorded but not indexable, e.g. Vyper sources. Not an error
	StatusSkipped Status = "skipped"
)

// Shape of the raw record the contract was normalized from
type SourceType string

const (
	SourceTypeSingleSolidity SourceType = "single_sol"
	SourceTypeMultiSolidity  SourceType = "multi_sol"
	SourceTypeVyper          SourceType = "vyper"
	SourceTypeJson           SourceType = "json"
)

// A single source file, path relative to the contract root
type SourceFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type Optimizer struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

// Compilation settings passed through to solc
type Settings struct {
	Optimizer  Optimizer `json:"optimizer"`
	EvmVersion string    `json:"evmVersion,omitempty"`
	Remappings []string  `json:"remappings,omitempty"`
}

// Canonical in-memory contract representation. Both raw input variants are
// resolved into this shape by the normalizer, downstream code never branches
// on the input format.
type Contract struct {
	// Content-derived identifier, stable across re-ingestion
	Id string

	// Optional chain identity
	Address string

	// Name of the primary contract
	Name string

	// Exact semantic version required for compilation, e.g. "0.8.19"
	CompilerVersion string

	// ABI-encoded constructor arguments, hex
	ConstructorArgs string

	// Ordered source files, multiple entries for non-flattened imports
	Sources []SourceFile

	Settings   Settings
	SourceType SourceType
	Status     Status
}
