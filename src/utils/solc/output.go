package solc

import (
	"encoding/json"
	"strings"
)

// Parsed standard-JSON compiler output. Ephemeral, owned by the worker that
// compiled the contract.
type Output struct {
	Errors    []Diagnostic                         `json:"errors"`
	Contracts map[string]map[string]ContractOutput `json:"contracts"`
	Sources   map[string]SourceOutput              `json:"sources"`
}

type Diagnostic struct {
	Severity         string `json:"severity"`
	Type             string `json:"type"`
	Message          string `json:"message"`
	FormattedMessage string `json:"formattedMessage"`
}

type ContractOutput struct {
	Abi json.RawMessage `json:"abi"`
	Evm EvmOutput       `json:"evm"`
}

type EvmOutput struct {
	// Canonical signature to selector, as reported by the compiler
	MethodIdentifiers map[string]string `json:"methodIdentifiers"`
}

type SourceOutput struct {
	Id  int             `json:"id"`
	Ast json.RawMessage `json:"ast"`
}

// HasErrors reports whether any diagnostic is an actual error.
// Warnings don't fail a compilation.
func (self *Output) HasErrors() bool {
	for _, diagnostic := range self.Errors {
		if diagnostic.Severity == "error" {
			return true
		}
	}
	return false
}

// ErrorMessages joins all error-severity diagnostics for logging
func (self *Output) ErrorMessages() string {
	messages := make([]string, 0, len(self.Errors))
	for _, diagnostic := range self.Errors {
		if diagnostic.Severity != "error" {
			continue
		}
		message := diagnostic.FormattedMessage
		if message == "" {
			message = diagnostic.Message
		}
		messages = append(messages, message)
	}
	return strings.Join(messages, "\n")
}

// FindContract locates a contract by name across all compiled source units
func (self *Output) FindContract(name string) (contract *ContractOutput, ok bool) {
	for _, contracts := range self.Contracts {
		if found, present := contracts[name]; present {
			return &found, true
		}
	}
	return nil, false
}
