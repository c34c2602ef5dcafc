package cutselect

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cutselect/cutselect/internal/command"
)

// ResolveCatalogSource turns the invocation surface's "path to catalog, optionally via an
// external enumerator" (spec.md §6.3) into a stream of catalog JSON bytes ready for
// [LoadReader].
//
// If cutsPath already looks like a JSON file (".json" suffix), it is opened and returned as-is:
// the common case of an already-enumerated catalog. Otherwise cutsPath is treated as a BLIF (or
// similar) netlist that must first be run through an external cut-enumeration binary, located (in
// order) at binHint, next to cutsPath, or on $PATH, exactly as
// `_find_cut_enumeration_binary`/`_generate_cuts_json_from_blif` do in the original Python
// reference. cutSize, if non-empty, is forwarded to the binary as a "-k" argument.
//
// Any failure in the external-tool path is [ErrExternalToolFailure], never [ErrBadCatalog]: the
// catalog JSON the binary eventually produces may be perfectly well-formed, or never produced at
// all — either way the fault is in producing it, not in the data itself.
func ResolveCatalogSource(ctx context.Context, cutsPath, binHint, cutSize string) (io.ReadCloser, error) {
	if strings.EqualFold(filepath.Ext(cutsPath), ".json") {
		f, err := os.Open(cutsPath)
		if err != nil {
			return nil, badCatalogf("opening %q: %v", cutsPath, err)
		}
		return f, nil
	}

	bin, err := findCutEnumerationBinary(cutsPath, binHint)
	if err != nil {
		return nil, err
	}
	args := []string{bin, cutsPath}
	if cutSize != "" {
		args = append(args, "-k", cutSize)
	}
	cmd, out, err := command.Pipe(ctx, "", args...)
	if err != nil {
		return nil, externalToolFailuref("running cut enumerator %q: %v", bin, err)
	}
	return &waitOnCloseReader{ReadCloser: out, wait: cmd.Wait}, nil
}

// waitOnCloseReader reaps the external enumerator's process on Close, the way
// [command.DecodeJsonStream]'s done callback does for its own stream.
type waitOnCloseReader struct {
	io.ReadCloser
	wait func() error
}

func (r *waitOnCloseReader) Close() error {
	closeErr := r.ReadCloser.Close()
	if err := r.wait(); err != nil {
		return externalToolFailuref("cut enumerator exited: %v", err)
	}
	return closeErr
}

// findCutEnumerationBinary locates the cut-enumeration binary: an explicit hint, a file named
// "cut_enumeration" next to cutsPath, or the first such binary on $PATH, in that order.
func findCutEnumerationBinary(cutsPath, binHint string) (string, error) {
	const name = "cut_enumeration"
	if binHint != "" {
		if st, err := os.Stat(binHint); err == nil && !st.IsDir() {
			return binHint, nil
		}
		return "", externalToolFailuref("cut enumerator hint %q does not exist", binHint)
	}
	sibling := filepath.Join(filepath.Dir(cutsPath), name)
	if st, err := os.Stat(sibling); err == nil && !st.IsDir() {
		return sibling, nil
	}
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	return "", externalToolFailuref(
		"no cut enumeration binary found (looked for a hint, %q, and %q on $PATH)", sibling, name)
}
