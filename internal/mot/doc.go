// Package mot derives MOT metrics from raw vehicle history documents.
//
// Every function here is total over malformed input: missing, null or
// mistyped fields yield a false ok result instead of an error.
package mot
