// Package finding provides the shared severity scale and finding type
// used by the vulnerability matcher, the report model and every renderer.
//
// Severities are ordered Low < Medium < High. Anything outside that set
// scores like Low so that an unrecognized label never outranks a real one.
package finding
