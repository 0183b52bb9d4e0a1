package domain

import (
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestDomainDoesNotImportInternal keeps the public packages free of any
// dependency on roomtrack/internal.
func TestDomainDoesNotImportInternal(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "roomtrack/pkg/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if len(pkgs) == 0 {
		t.Fatalf("no packages loaded")
	}
	for _, pkg := range pkgs {
		for importPath := range pkg.Imports {
			if importPath == "roomtrack/internal" || strings.HasPrefix(importPath, "roomtrack/internal/") {
				t.Errorf("%s must not import %s", pkg.PkgPath, importPath)
			}
		}
	}
}
