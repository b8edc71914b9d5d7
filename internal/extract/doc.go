// Package extract writes the files that differ between two revisions into
// an output directory for side-by-side comparison.
//
// Output layout:
//
//	<output>/<folder>/old/<path>   content at the old revision
//	<output>/<folder>/new/<path>   content at the new revision
//
// Files inside changed submodules are written under the submodule path, so
// the layout mirrors the parent repository's working tree. Extraction runs
// in a bounded worker pool (github.com/sourcegraph/conc); a file that fails
// is recorded in the run statistics and does not stop the others.
package extract
