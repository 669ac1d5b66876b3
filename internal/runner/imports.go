package runner

import (
	"fmt"
	"regexp"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

var (
	importLine = regexp.MustCompile(`^import\s+([\w.]+(?:\s+as\s+\w+)?(?:\s*,\s*[\w.]+(?:\s+as\s+\w+)?)*)\s*(?:#.*)?$`)
	fromLine   = regexp.MustCompile(`^from\s+([\w.]+)\s+import\s+\(?\s*(\w+(?:\s+as\s+\w+)?(?:\s*,\s*\w+(?:\s+as\s+\w+)?)*)\s*,?\s*\)?\s*(?:#.*)?$`)
)

// rewriteImports turns top-level import statements for the modules already
// present in ns into plain assignments, one line for one line, so positions
// in later faults still match the learner's code. Importing anything else
// is a ModuleNotFoundError.
func rewriteImports(code string, ns starlark.StringDict) (string, *Fault) {
	if !strings.Contains(code, "import") {
		return code, nil
	}
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r")
		if m := importLine.FindStringSubmatch(trimmed); m != nil {
			var stmts []string
			for _, clause := range strings.Split(m[1], ",") {
				mod, alias := splitAlias(clause)
				if _, err := module(ns, mod, i+1); err != nil {
					return code, err
				}
				if ns[alias] != ns[mod] {
					stmts = append(stmts, alias+" = "+mod)
				}
			}
			lines[i] = joinStmts(stmts)
			continue
		}
		if m := fromLine.FindStringSubmatch(trimmed); m != nil {
			mod, err := module(ns, m[1], i+1)
			if err != nil {
				return code, err
			}
			var stmts []string
			for _, clause := range strings.Split(m[2], ",") {
				name, alias := splitAlias(clause)
				if _, ok := mod.Members[name]; !ok {
					return code, &Fault{Kind: RuntimeFault, Name: "ImportError",
						Message: fmt.Sprintf("cannot import name '%s' from '%s' (line %d)", name, m[1], i+1)}
				}
				stmts = append(stmts, alias+" = "+m[1]+"."+name)
			}
			lines[i] = joinStmts(stmts)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func module(ns starlark.StringDict, name string, line int) (*starlarkstruct.Module, *Fault) {
	if m, ok := ns[name].(*starlarkstruct.Module); ok {
		return m, nil
	}
	return nil, &Fault{Kind: RuntimeFault, Name: "ModuleNotFoundError",
		Message: fmt.Sprintf("No module named '%s' (line %d)", name, line)}
}

func splitAlias(clause string) (name, alias string) {
	fields := strings.Fields(clause)
	name = fields[0]
	if len(fields) == 3 {
		return name, fields[2]
	}
	return name, name
}

func joinStmts(stmts []string) string {
	if len(stmts) == 0 {
		return "pass"
	}
	return strings.Join(stmts, "; ")
}
