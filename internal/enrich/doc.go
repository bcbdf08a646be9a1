// Package enrich is deskwatch's core: it classifies support tickets, scores
// their severity, groups related tickets by cluster key, gates alerts, and
// learns from human tag corrections. The Service composes the pieces behind
// Enrich/SubmitFeedback/QueryEnriched; Store is the persistence boundary.
package enrich
