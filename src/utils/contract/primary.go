package contract

import (
	"regexp"

	"github.com/cassc/smart-contract-database-builder/src/utils/model"
)

var contractDeclRe = regexp.MustCompile(`(?m)^\s*(?:abstract\s+)?(?:contract|library|interface)\s+([A-Za-z_$][A-Za-z0-9_$]*)`)

// PrimaryContractName picks the contract the function rows are attributed to.
// The declared name from the record metadata wins when present. Without it
// the last contract declared in the source unit is used, files visited in
// stored order. Verified sources conventionally place the deployed contract
// after its imports and helpers.
func PrimaryContractName(declared string, sources []model.SourceFile) string {
	if declared != "" {
		return declared
	}

	var last string
	for _, source := range sources {
		for _, match := range contractDeclRe.FindAllStringSubmatch(source.Content, -1) {
			last = match[1]
		}
	}
	return last
}
