package solc

import (
	"github.com/cassc/smart-contract-database-builder/src/utils/model"
)

// Standard-JSON document fed to solc on stdin
type Input struct {
	Language string                   `json:"language"`
	Sources  map[string]SourceContent `json:"sources"`
	Settings InputSettings            `json:"settings"`
}

type SourceContent struct {
	Content string `json:"content"`
}

type InputSettings struct {
	Optimizer       model.Optimizer                `json:"optimizer"`
	EvmVersion      string                         `json:"evmVersion,omitempty"`
	Remappings      []string                       `json:"remappings,omitempty"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
}

// NewInput builds the compiler input for one contract. Only the outputs the
// extractor consumes are requested: the ABI and reported selectors per
// contract, plus the source-unit AST for the visibility lookup.
func NewInput(contract *model.Contract) (self *Input) {
	self = new(Input)
	self.Language = "Solidity"

	self.Sources = make(map[string]SourceContent, len(contract.Sources))
	for _, source := range contract.Sources {
		self.Sources[source.Name] = SourceContent{Content: source.Content}
	}

	self.Settings = InputSettings{
		Optimizer:  contract.Settings.Optimizer,
		EvmVersion: contract.Settings.EvmVersion,
		Remappings: contract.Settings.Remappings,
		OutputSelection: map[string]map[string][]string{
			"*": {
				"*": {"abi", "evm.methodIdentifiers"},
				"":  {"ast"},
			},
		},
	}
	return
}
