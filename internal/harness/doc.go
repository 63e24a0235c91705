// Package harness runs conformance scenarios through the full evaluation
// path: fixture images are written as NIfTI files, the expression is
// compiled, checked and evaluated, and the result is cast, saved and read
// back before it is compared with the expectation.
//
// # Scenario Format
//
// Scenarios are YAML or CUE files, one scenario per file:
//
//	name: scale_and_add
//	description: "a*2 + b over 2x2 images"
//	images:
//	  - name: a.nii
//	    shape: [2, 2]
//	    data: [1, 2, 3, 4]
//	  - name: b.nii.gz
//	    shape: [2, 2]
//	    data: [5, 6, 7, 8]
//	expr: [a.nii, "2.0", mul, b.nii.gz, add]
//	datatype: f64
//	threads: 1
//	expect:
//	  shape: [2, 2]
//	  data: [7, 10, 13, 16]
//	  header: a.nii
//
// A scenario that should fail names the error code instead:
//
//	expect:
//	  error: STACK_UNDERFLOW
//
// CUE scenarios are unified with the #Scenario schema before decoding, so
// unknown fields and wrong types are rejected with CUE positions.
//
// # Deterministic Testing
//
// Image tokens are resolved relative to a private workspace directory, so
// traces never contain temporary paths and golden snapshots are stable.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/scale.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
