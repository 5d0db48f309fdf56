package reconcile

import (
	"strings"

	"github.com/Sumatoshi-tech/depcheck/pkg/exemption"
	"github.com/Sumatoshi-tech/depcheck/pkg/manifest"
	"github.com/Sumatoshi-tech/depcheck/pkg/namemap"
	"github.com/Sumatoshi-tech/depcheck/pkg/rule"
	"github.com/Sumatoshi-tech/depcheck/pkg/scan"
)

type scopeInput struct {
	declared   []manifest.Entry
	devOnly    []manifest.Entry
	scanned    *scan.Result
	firstParty map[string]struct{}
	exemptions *exemption.Set
}

// moduleIndex maps folded module names to the package that provides them.
type moduleIndex map[string]string

func (e *Engine) index(entries []manifest.Entry) moduleIndex {
	idx := moduleIndex{}

	for _, entry := range entries {
		for _, module := range e.names.Normalize(entry.Name) {
			key := namemap.ModuleKey(module)
			if _, taken := idx[key]; !taken {
				idx[key] = entry.Name
			}
		}
	}

	return idx
}

// evaluate applies the DEP rules to one scope. Names are normalized to
// module names before any exemption lookup or comparison.
func (e *Engine) evaluate(sr *ScopeResult, in scopeInput) {
	declared := e.index(in.declared)
	devOnly := e.index(in.devOnly)

	imported := make(map[string]struct{}, len(in.scanned.Imports))
	for module := range in.scanned.Imports {
		imported[namemap.ModuleKey(module)] = struct{}{}
	}

	firstParty := make(map[string]struct{}, len(in.firstParty))
	for module := range in.firstParty {
		firstParty[namemap.ModuleKey(module)] = struct{}{}
	}

	seen := map[string]bool{}

	for _, entry := range in.declared {
		canonical := namemap.Canonical(entry.Name)
		if seen[canonical] {
			continue
		}

		seen[canonical] = true

		modules := e.names.Normalize(entry.Name)
		if anyImported(modules, imported) || in.exemptions.ExemptsModules(rule.DeclaredNotUsed, modules) {
			continue
		}

		sr.add(rule.DeclaredNotUsed, entry.Name, KindPackage, e.location(entry.Path, entry.Line))
	}

	for _, module := range in.scanned.Modules() {
		key := namemap.ModuleKey(module)

		if scan.IsStdlib(module) {
			continue
		}

		if _, ok := firstParty[key]; ok {
			continue
		}

		if _, ok := declared[key]; ok {
			continue
		}

		r := e.undeclaredRule(key, devOnly)
		if in.exemptions.ExemptsModule(r, module) {
			continue
		}

		sr.add(r, module, KindModule, in.scanned.Imports[module].String())
	}

	sr.Declared = len(seen)
	sr.Imported = len(in.scanned.Imports)
}

// undeclaredRule classifies an import no declared package provides.
func (e *Engine) undeclaredRule(key string, devOnly moduleIndex) rule.Rule {
	if _, ok := devOnly[key]; ok {
		return rule.DeclaredWrongScope
	}

	if _, ok := e.env.Provider(key); ok {
		return rule.UsedViaTransitive
	}

	return rule.UsedNotDeclared
}

func anyImported(modules []string, imported map[string]struct{}) bool {
	for _, module := range modules {
		if _, ok := imported[namemap.ModuleKey(module)]; ok {
			return true
		}
	}

	return false
}

// checkDuplicates reports handler entries already declared by the main manifest.
func (e *Engine) checkDuplicates(sr *ScopeResult, file *manifest.File, mainCanonical map[string]bool) {
	for _, entry := range file.Entries {
		if !mainCanonical[namemap.Canonical(entry.Name)] {
			continue
		}

		if e.handlerRuleOnly.ExemptsModules(rule.DuplicatedInMain, e.names.Normalize(entry.Name)) {
			continue
		}

		sr.add(rule.DuplicatedInMain, entry.Name, KindPackage, e.location(entry.Path, entry.Line))
	}
}

// checkIncludes reports includes anchored at the repository root instead of
// the handler directory.
func (e *Engine) checkIncludes(sr *ScopeResult, file *manifest.File) {
	for _, inc := range file.Includes() {
		if !e.rootAnchored(inc.Target) || e.handlerRuleOnly.ExemptsModule(rule.NonRelativeInclude, inc.Target) {
			continue
		}

		sr.add(rule.NonRelativeInclude, inc.Target, KindInclude, e.location(inc.Path, inc.Line))
	}
}

func (e *Engine) rootAnchored(target string) bool {
	target = strings.TrimPrefix(target, "./")

	for _, prefix := range e.cfg.RootAnchoredPrefixes {
		if prefix != "" && strings.HasPrefix(target, prefix) {
			return true
		}
	}

	return false
}
