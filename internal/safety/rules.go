package safety

import "strings"

// Category identifies why a command matched the rule table.
type Category string

const (
	CategoryDestructiveFilesystem Category = "destructive-filesystem"
	CategoryFilesystemFormat      Category = "filesystem-format"
	CategoryRawDiskWrite          Category = "raw-disk-write"
	CategoryForkBomb              Category = "fork-bomb"
	CategoryRemoteCodeExecution   Category = "remote-code-execution"
	CategoryPrivilegeEscalation   Category = "privilege-escalation"
	CategorySystemShutdown        Category = "system-shutdown"
	CategoryCommandSubstitution   Category = "command-substitution"
	CategoryUnparseable           Category = "unparseable"
)

// Severity decides how a matched rule is surfaced: Block is never executable,
// Warn is shown with its reason but may still be confirmed.
type Severity int

const (
	SeverityWarn Severity = iota
	SeverityBlock
)

// Rule is one entry of the static, process-wide rule table.
type Rule struct {
	Category Category
	Severity Severity
	Reason   string

	match func(seg segment) bool
}

// The table is deliberately not exhaustive: a destructive command outside it
// is allowed. The contract is catching the canonical dangerous shapes and
// their whitespace/quoting variants, not semantic understanding.
var ruleTable = []Rule{
	{
		Category: CategoryDestructiveFilesystem,
		Severity: SeverityBlock,
		Reason:   "recursive force delete of a root or home path",
		match:    matchDestructiveDelete,
	},
	{
		Category: CategoryFilesystemFormat,
		Severity: SeverityBlock,
		Reason:   "formats a filesystem (mkfs)",
		match:    matchFilesystemFormat,
	},
	{
		Category: CategoryRawDiskWrite,
		Severity: SeverityBlock,
		Reason:   "writes directly to a block device",
		match:    matchRawDiskWrite,
	},
	{
		Category: CategorySystemShutdown,
		Severity: SeverityWarn,
		Reason:   "shuts down the system or kills processes by name",
		match:    matchSystemShutdown,
	},
}

var unparseableRule = Rule{
	Category: CategoryUnparseable,
	Severity: SeverityBlock,
	Reason:   "command text is empty or could not be parsed",
}

var forkBombRule = Rule{
	Category: CategoryForkBomb,
	Severity: SeverityBlock,
	Reason:   "fork bomb",
}

var pipeToShellRule = Rule{
	Category: CategoryRemoteCodeExecution,
	Severity: SeverityBlock,
	Reason:   "pipes a network download into a shell interpreter",
}

var commandSubstitutionRule = Rule{
	Category: CategoryCommandSubstitution,
	Severity: SeverityWarn,
	Reason:   "contains command substitution",
}

func privilegeEscalationRule(inner *Rule) *Rule {
	return &Rule{
		Category: CategoryPrivilegeEscalation,
		Severity: SeverityBlock,
		Reason:   "privilege escalation around a dangerous command: " + inner.Reason,
	}
}

func matchDestructiveDelete(seg segment) bool {
	if seg.base() != "rm" {
		return false
	}
	recursive, force := false, false
	for _, arg := range seg.args() {
		switch {
		case arg == "--recursive":
			recursive = true
		case arg == "--force":
			force = true
		case len(arg) > 1 && arg[0] == '-' && arg[1] != '-':
			for _, c := range arg[1:] {
				if c == 'r' || c == 'R' {
					recursive = true
				}
				if c == 'f' {
					force = true
				}
			}
		}
	}
	if !recursive || !force {
		return false
	}
	for _, arg := range seg.args() {
		if len(arg) > 0 && arg[0] == '-' {
			continue
		}
		if isRootOrHomePath(arg) {
			return true
		}
	}
	return false
}

// isRootOrHomePath recognizes the root and home directories plus their
// immediate-wildcard variants, in the spellings shells commonly produce.
func isRootOrHomePath(path string) bool {
	normalized := strings.ReplaceAll(path, "${HOME}", "$HOME")
	for strings.Contains(normalized, "//") {
		normalized = strings.ReplaceAll(normalized, "//", "/")
	}
	if len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	switch normalized {
	case "/", "/*", "/.", "~", "~/*", "$HOME", "$HOME/*":
		return true
	}
	return false
}

func matchFilesystemFormat(seg segment) bool {
	return strings.HasPrefix(seg.base(), "mkfs")
}

func matchRawDiskWrite(seg segment) bool {
	if seg.base() == "dd" {
		for _, arg := range seg.args() {
			if target, ok := strings.CutPrefix(arg, "of="); ok && isBlockDevice(target) {
				return true
			}
		}
		return false
	}
	// Redirections targeting a block device, e.g. `cat image > /dev/sda`.
	tokens := seg.tokens
	for i, tok := range tokens {
		if (tok == ">" || tok == ">>") && i+1 < len(tokens) && isBlockDevice(tokens[i+1]) {
			return true
		}
	}
	return false
}

func isBlockDevice(path string) bool {
	if !strings.HasPrefix(path, "/dev/") {
		return false
	}
	name := strings.TrimPrefix(path, "/dev/")
	for _, prefix := range []string{"sd", "hd", "vd", "xvd", "nvme", "disk", "mmcblk", "loop"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func matchSystemShutdown(seg segment) bool {
	switch seg.base() {
	case "shutdown", "reboot", "halt", "poweroff", "killall":
		return true
	}
	return false
}
