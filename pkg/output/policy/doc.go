// Package policy evaluates a finished report against a YAML quality gate
// so CI pipelines can fail a run on rated sections.
//
// # Policy File Format
//
//	version: "1.0"
//	name: "release-gate"
//
//	fail_on:
//	  sections:
//	    high: 0            # fail on any High section
//	    medium: 3          # fail on more than 3 Medium sections
//	  titles:
//	    - SQL Injection Check   # fail when this section carries a rating
//	  warnings: true       # fail when an artifact could not be written
//
//	ignore:
//	  titles:
//	    - Target Information
//
// Counts use each section's effective severity. A threshold of N fails
// when the count exceeds N; an absent threshold never fails.
package policy
