package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cassc/smart-contract-database-builder/src/utils/model"
	"github.com/cassc/smart-contract-database-builder/src/utils/solc"
)

// Record couldn't be parsed into the canonical contract shape
var ErrMalformedRecord = errors.New("malformed contract record")

// Metadata of a raw contract record, stored as metadata.json next to the
// sources in both supported corpus layouts.
type Metadata struct {
	ContractName         string `json:"ContractName"`
	CompilerVersion      string `json:"CompilerVersion"`
	Runs                 int    `json:"Runs"`
	OptimizationUsed     bool   `json:"OptimizationUsed"`
	BytecodeHash         string `json:"BytecodeHash"`
	Address              string `json:"Address"`
	ConstructorArguments string `json:"ConstructorArguments"`
}

// Etherscan standard-JSON bundle
type etherscanJson struct {
	Language string                    `json:"language"`
	Name     string                    `json:"name"`
	Sources  map[string]etherscanEntry `json:"sources"`
	Settings *etherscanSettings        `json:"settings"`
}

type etherscanEntry struct {
	Content string `json:"content"`
}

type etherscanSettings struct {
	Optimizer  *model.Optimizer `json:"optimizer"`
	EvmVersion string           `json:"evmVersion"`
	Remappings []string         `json:"remappings"`
}

// NormalizeFolder parses one raw record stored as a folder with a
// metadata.json. Four layouts are accepted:
//  1. contract.json - an Etherscan standard-JSON bundle
//  2. main.sol      - a single flattened Solidity file
//  3. main.vy       - a single Vyper file
//  4. anything else - a multi-file Solidity contract, every *.sol in the folder
func NormalizeFolder(path string) (contract *model.Contract, err error) {
	meta, err := readMetadata(path)
	if err != nil {
		return
	}

	if raw, jsonErr := os.ReadFile(filepath.Join(path, "contract.json")); jsonErr == nil {
		return NormalizeEtherscanJson(meta, raw)
	}

	if content, solErr := os.ReadFile(filepath.Join(path, "main.sol")); solErr == nil {
		sources := []model.SourceFile{{Name: "main.sol", Content: string(content)}}
		return newContract(meta, sources, model.SourceTypeSingleSolidity)
	}

	if content, vyErr := os.ReadFile(filepath.Join(path, "main.vy")); vyErr == nil {
		sources := []model.SourceFile{{Name: "main.vy", Content: string(content)}}
		return newContract(meta, sources, model.SourceTypeVyper)
	}

	sources, err := readSolidityFiles(path)
	if err != nil {
		return
	}
	return newContract(meta, sources, model.SourceTypeMultiSolidity)
}

// NormalizeEtherscanFolder parses one per-contract Etherscan bundle: a folder
// with metadata.json and contract.json, other layouts are rejected.
func NormalizeEtherscanFolder(path string) (contract *model.Contract, err error) {
	meta, err := readMetadata(path)
	if err != nil {
		return
	}

	raw, err := os.ReadFile(filepath.Join(path, "contract.json"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: missing contract.json", ErrMalformedRecord, path)
	}
	return NormalizeEtherscanJson(meta, raw)
}

// NormalizeEtherscanJson resolves an Etherscan standard-JSON bundle into the
// canonical contract shape. The bundle's settings override the optimizer
// values from the metadata. The content id is derived from the raw bundle so
// it stays stable regardless of map ordering.
func NormalizeEtherscanJson(meta *Metadata, raw []byte) (contract *model.Contract, err error) {
	bundle := new(etherscanJson)
	err = json.Unmarshal(raw, bundle)
	if err != nil {
		return nil, fmt.Errorf("%w: decode etherscan json: %s", ErrMalformedRecord, err)
	}
	if len(bundle.Sources) == 0 {
		return nil, fmt.Errorf("%w: etherscan json without sources", ErrMalformedRecord)
	}

	// Deterministic source order
	paths := make([]string, 0, len(bundle.Sources))
	for path := range bundle.Sources {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	sources := make([]model.SourceFile, 0, len(paths))
	for _, path := range paths {
		sources = append(sources, model.SourceFile{Name: path, Content: bundle.Sources[path].Content})
	}

	contract, err = newContract(meta, sources, model.SourceTypeJson)
	if err != nil {
		return
	}
	contract.Id = SimpleHash(string(raw))

	if bundle.Name != "" && meta.ContractName == "" {
		contract.Name = bundle.Name
	}
	if bundle.Settings != nil {
		if bundle.Settings.Optimizer != nil {
			contract.Settings.Optimizer = *bundle.Settings.Optimizer
		}
		contract.Settings.EvmVersion = bundle.Settings.EvmVersion
		contract.Settings.Remappings = bundle.Settings.Remappings
	}
	return
}

func readMetadata(path string) (meta *Metadata, err error) {
	raw, err := os.ReadFile(filepath.Join(path, "metadata.json"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrMalformedRecord, path, err)
	}

	meta = new(Metadata)
	err = json.Unmarshal(raw, meta)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: decode metadata: %s", ErrMalformedRecord, path, err)
	}
	return
}

func readSolidityFiles(path string) (sources []model.SourceFile, err error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrMalformedRecord, path, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sol") {
			continue
		}
		var content []byte
		content, err = os.ReadFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %s", ErrMalformedRecord, path, err)
		}
		sources = append(sources, model.SourceFile{Name: entry.Name(), Content: string(content)})
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: %s: no contract sources found", ErrMalformedRecord, path)
	}
	return
}

func newContract(meta *Metadata, sources []model.SourceFile, sourceType model.SourceType) (contract *model.Contract, err error) {
	version := meta.CompilerVersion
	// Pin the version early when it is already exact, range markers are left
	// for the resolver to reject
	if exact, versionErr := solc.ParseVersion(version); versionErr == nil {
		version = exact
	}

	contract = &model.Contract{
		Id:              HashSources(sources),
		Address:         meta.Address,
		Name:            PrimaryContractName(meta.ContractName, sources),
		CompilerVersion: version,
		ConstructorArgs: meta.ConstructorArguments,
		Sources:         sources,
		Settings: model.Settings{
			Optimizer: model.Optimizer{
				Enabled: meta.OptimizationUsed,
				Runs:    meta.Runs,
			},
		},
		SourceType: sourceType,
		Status:     model.StatusPending,
	}
	return
}
