package index

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cassc/smart-contract-database-builder/src/utils/logger"
	"github.com/cassc/smart-contract-database-builder/src/utils/model"
	"github.com/cassc/smart-contract-database-builder/src/utils/solc"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

var (
	// Computed selector disagrees with the one the compiler reported
	ErrSelectorMismatch = errors.New("selector mismatch")

	// Compiler output has no contract matching the primary name
	ErrPrimaryNotFound = errors.New("primary contract not found in compiler output")
)

// Extractor walks the ABI the compiler reported for the primary contract and
// emits one record per externally visible function. Inheritance is already
// flattened by the compiler, the extractor doesn't re-derive it.
type Extractor struct {
	log *logrus.Entry
}

func NewExtractor() (self *Extractor) {
	self = new(Extractor)
	self.log = logger.NewSublogger("extractor")
	return
}

func (self *Extractor) Extract(contract *model.Contract, output *solc.Output) (functions []*model.Function, err error) {
	compiled, ok := output.FindContract(contract.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPrimaryNotFound, contract.Name)
	}

	parsed, err := abi.JSON(bytes.NewReader(compiled.Abi))
	if err != nil {
		return nil, fmt.Errorf("parse abi of %s: %w", contract.Id, err)
	}

	visibilities := visibilityFromAst(output, contract.Name)

	for _, method := range parsed.Methods {
		signature := method.Sig

		// Standard 4-byte truncation of the keccak256 hash of the canonical
		// signature
		selector := hex.EncodeToString(crypto.Keccak256([]byte(signature))[:4])

		// The compiler's reported selector is a consistency check, never
		// silently trusted in either direction
		if reported, present := compiled.Evm.MethodIdentifiers[signature]; present {
			if !strings.EqualFold(reported, selector) {
				return nil, fmt.Errorf("%w: %s computed %s, compiler reported %s",
					ErrSelectorMismatch, signature, selector, reported)
			}
		}

		// Overloads are disambiguated by the AST's own selector, older
		// compilers without it fall back to the bare name
		visibility, present := visibilities[selector]
		if !present {
			visibility, present = visibilities[method.RawName]
		}
		if !present {
			// Compiler-generated getters only exist in the ABI and are
			// always external
			visibility = model.VisibilityExternal
		}

		functions = append(functions, &model.Function{
			ContractId:   contract.Id,
			ContractName: contract.Name,
			Name:         method.RawName,
			Signature:    signature,
			Selector:     selector,
			Mutability:   model.Mutability(method.StateMutability),
			Visibility:   visibility,
		})
	}

	// Map iteration is random, keep re-extraction byte-identical
	sort.Slice(functions, func(i, j int) bool {
		return functions[i].Selector < functions[j].Selector
	})
	return
}

type astNode struct {
	NodeType         string    `json:"nodeType"`
	Name             string    `json:"name"`
	Visibility       string    `json:"visibility"`
	FunctionSelector string    `json:"functionSelector"`
	Nodes            []astNode `json:"nodes"`
}

// visibilityFromAst collects the declared visibility of the primary
// contract's function definitions. The ABI alone can't distinguish public
// from external. Only definitions inside the primary ContractDefinition
// count: an interface or helper contract declaring the same function must
// not override the primary's visibility. Source units are visited in sorted
// path order so the result never depends on map iteration.
func visibilityFromAst(output *solc.Output, primary string) map[string]model.Visibility {
	paths := make([]string, 0, len(output.Sources))
	for path := range output.Sources {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	visibilities := make(map[string]model.Visibility)
	for _, path := range paths {
		source := output.Sources[path]
		if len(source.Ast) == 0 {
			continue
		}
		root := new(astNode)
		if err := json.Unmarshal(source.Ast, root); err != nil {
			continue
		}
		collectVisibility(root, primary, false, visibilities)
	}
	return visibilities
}

func collectVisibility(node *astNode, primary string, inPrimary bool, visibilities map[string]model.Visibility) {
	if node.NodeType == "ContractDefinition" {
		inPrimary = node.Name == primary
	}
	if inPrimary && node.NodeType == "FunctionDefinition" && node.Name != "" {
		key := node.FunctionSelector
		if key == "" {
			key = node.Name
		}
		switch node.Visibility {
		case "public":
			visibilities[key] = model.VisibilityPublic
		case "external":
			visibilities[key] = model.VisibilityExternal
		}
	}
	for i := range node.Nodes {
		collectVisibility(&node.Nodes[i], primary, inPrimary, visibilities)
	}
}
