// Package harness runs retry conformance scenarios.
//
// A scenario lays down a small log, optionally truncates it, retries one
// command against one record and checks the reply (or error code) the
// reconstruction produces.
//
// # Scenario Format
//
//	name: fam_update_pre_image
//	description: "findAndModify without new returns the pre-image"
//	records:
//	  - at: "1:50:9"
//	    op: n
//	    ns: test.user
//	    o: {_id: 1, x: 1, z: 1}
//	  - at: "1:50:10"
//	    op: u
//	    ns: test.user
//	    o: {$set: {z: 2}}
//	    o2: {_id: 1}
//	    pre_image: "1:50:9"
//	retry:
//	  command: findAndModify
//	  intent: {new: false}
//	expect:
//	  reply:
//	    lastErrorObject: {n: 1, updatedExisting: true}
//	    value: {_id: 1, x: 1, z: 1}
//
// A record with an inner record is a carrier relaying it. Records without
// "at" get deterministic positions (term 1, Timestamp(100, n)); "ui: auto"
// assigns one deterministic collection UUID per namespace. retry.at defaults
// to the last record.
//
// Files are checked against an embedded CUE schema before they are decoded,
// then decoded with unknown fields rejected.
//
// # Deterministic Testing
//
// The harness uses:
//   - Deterministic positions (testutil.DeterministicClock)
//   - Deterministic collection UUIDs (testutil.FixedUUIDGenerator)
//   - In-memory SQLite database (isolated per scenario)
//
// so RunWithGolden can snapshot outcomes byte for byte.
package harness
