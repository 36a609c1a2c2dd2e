// Package shared holds code used across the dashboard's packages that does not
// belong to any one layer.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler and NewTestLogger for asserting on structured logs
//   - FixtureFiles and WriteFixtures, which write the five BanVic CSV sources
//     into a temporary directory and return the matching config.DataConfig
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    cfg := testutil.WriteFixtures(t, nil)
//
//	    // build a pipeline from cfg and logger, then assert on logs
//	}
package shared
