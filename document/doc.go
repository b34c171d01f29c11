// Package document stores uploaded resume documents keyed by owner and id.
// The resume tools resolve a staged resume id against a Store, so the same
// uploaded document can feed analysis, heatmap and rewrite steps without
// round-tripping its text through the model.
package document
