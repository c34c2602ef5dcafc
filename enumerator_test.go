package cutselect_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	. "github.com/cutselect/cutselect"
)

func TestResolveCatalogSource_JSONPath(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cuts.json")
	const want = `{"nodes":[{"name":"a","cuts":[["i"]]}]}`
	if err := os.WriteFile(path, []byte(want), 0o644); err != nil {
		t.Fatal(err)
	}
	rc, err := ResolveCatalogSource(context.Background(), path, "", "")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveCatalogSource_ExternalEnumerator(t *testing.T) {
	t.Parallel()
	// A stand-in for a real cut-enumeration binary: fed a netlist path (plus a "-k" cut-size
	// argument it ignores), it writes the netlist's own bytes to stdout. Good enough to exercise
	// the external-tool plumbing without depending on a real enumerator being installed.
	dir := t.TempDir()
	netlist := filepath.Join(dir, "design.blif")
	const want = "not actually blif, just enumerator output\n"
	if err := os.WriteFile(netlist, []byte(want), 0o644); err != nil {
		t.Fatal(err)
	}
	fakeEnumerator := filepath.Join(dir, "cut_enumeration")
	if err := os.WriteFile(fakeEnumerator, []byte("#!/bin/sh\ncat \"$1\"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	rc, err := ResolveCatalogSource(context.Background(), netlist, fakeEnumerator, "4")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveCatalogSource_MissingHint(t *testing.T) {
	t.Parallel()
	_, err := ResolveCatalogSource(context.Background(), "design.blif", "/no/such/binary", "")
	if !errors.Is(err, ErrExternalToolFailure) {
		t.Errorf("got %v, want ErrExternalToolFailure", err)
	}
}

func TestResolveCatalogSource_NoBinaryFound(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_, err := ResolveCatalogSource(context.Background(), filepath.Join(dir, "design.blif"), "", "")
	if !errors.Is(err, ErrExternalToolFailure) {
		t.Errorf("got %v, want ErrExternalToolFailure", err)
	}
}
