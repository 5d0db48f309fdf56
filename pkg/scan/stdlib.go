package scan

import (
	"bufio"
	_ "embed"
	"strings"
	"sync"
)

//go:embed stdlib.txt
var stdlibList string

var stdlibModules = sync.OnceValue(func() map[string]struct{} {
	out := make(map[string]struct{}, 320) //nolint:mnd // slightly above the list length

	sc := bufio.NewScanner(strings.NewReader(stdlibList))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		out[line] = struct{}{}
	}

	return out
})

// IsStdlib reports whether module is a top-level CPython standard library module.
func IsStdlib(module string) bool {
	_, ok := stdlibModules()[module]

	return ok
}
