package model

const (
	TableFunction = "function"
)

type Mutability string

const (
	MutabilityPure       Mutability = "pure"
	MutabilityView       Mutability = "view"
	MutabilityNonpayable Mutability = "nonpayable"
	MutabilityPayable    Mutability = "payable"
)

// Internal and private functions have no selector and are never recorded
type Visibility string

const (
	VisibilityExternal Visibility = "external"
	VisibilityPublic   Visibility = "public"
)

// One externally visible function of an indexed contract.
// (contract_id, selector) is unique, re-indexing replaces prior rows.
type Function struct {
	ContractId   string
	ContractName string
	Name         string

	// Canonical signature, e.g. "transfer(address,uint256)"
	Signature string

	// First 4 bytes of keccak256(signature), hex without 0x prefix
	Selector string

	Mutability Mutability
	Visibility Visibility
}
