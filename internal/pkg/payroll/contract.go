package payroll

import (
	"fmt"
	"strings"
)

// ContractType selects the deduction formula branch. Parsing happens at the
// boundary so the engine itself only switches over known values.
type ContractType string

const (
	ContractFullTime   ContractType = "FULL_TIME"
	ContractPartTime   ContractType = "PART_TIME"
	ContractContractor ContractType = "CONTRACTOR"
	ContractTemporary  ContractType = "TEMPORARY"
)

// ParseContractType normalizes and validates a contract type string.
func ParseContractType(s string) (ContractType, error) {
	switch ContractType(strings.ToUpper(strings.TrimSpace(s))) {
	case ContractFullTime:
		return ContractFullTime, nil
	case ContractPartTime:
		return ContractPartTime, nil
	case ContractContractor:
		return ContractContractor, nil
	case ContractTemporary:
		return ContractTemporary, nil
	default:
		return "", fmt.Errorf("unknown contract type %q", s)
	}
}
