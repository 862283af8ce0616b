// Package shared provides common test helpers used across the export tool.
//
// # Structure
//
//   - testutil: slog capture handlers and challenge dataset fixtures
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//   - A buffered slog handler with log assertions
//   - Writers for patient folders in the challenge layout (".txt", ".tsv",
//     WFDB ".hea" headers and MAT level 4 ".mat" signals)
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, handler := testutil.NewTestLogger(t)
//	    dir := testutil.WritePatient(t, t.TempDir(), testutil.PatientFixture{
//	        ID:       "0284",
//	        Metadata: testutil.DefaultMetadata("0284"),
//	    })
//	    ...
//	}
package shared
