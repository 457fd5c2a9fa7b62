// Package report holds the section model shared by the aggregator and the
// renderers.
//
// A Section may carry a structured severity set by the stage that produced
// it. Older stages only embed a "Severity: <level>" line in the content;
// ExtractSeverity recovers that marker. Effective severity resolution is
// structured first, then the marker, then Low.
package report
