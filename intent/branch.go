package intent

import "strings"

// AllBranchesLabel names the unscoped review population.
const AllBranchesLabel = "전체 지점"

// BranchAlias maps a question token to a branch_name literal.
type BranchAlias struct {
	Token  string `yaml:"token" json:"token"`
	Branch string `yaml:"branch" json:"branch"`
}

// DefaultBranches is the built-in allow-list, checked in order.
func DefaultBranches() []BranchAlias {
	return []BranchAlias{
		{Token: "강남", Branch: "강남점"},
		{Token: "건대", Branch: "건대점"},
		{Token: "종각", Branch: "종각점"},
		{Token: "한양대", Branch: "한양대점"},
	}
}

// Branch is a resolved scope. Name is empty for all branches.
type Branch struct {
	Name  string
	Label string
}

// All reports whether the scope covers every branch.
func (b Branch) All() bool { return b.Name == "" }

// Includes reports whether a row's branch_name falls in the scope.
func (b Branch) Includes(branch string) bool {
	return b.All() || branch == b.Name
}

// ResolveBranch finds the first allow-listed token in the question.
// Only allow-list literals are ever returned.
func ResolveBranch(question string, allow []BranchAlias) Branch {
	for _, a := range allow {
		if a.Token != "" && a.Branch != "" && strings.Contains(question, a.Token) {
			return Branch{Name: a.Branch, Label: a.Branch}
		}
	}
	return Branch{Label: AllBranchesLabel}
}
