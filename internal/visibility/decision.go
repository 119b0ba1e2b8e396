// Package visibility applies the view-count privacy rule to every read of
// view data and guards the write paths that feed it.
package visibility

// Decision is the outcome of the privacy rule for one read
type Decision int

const (
	// Reveal returns real view data
	Reveal Decision = iota
	// Redact returns null for every view-derived field
	Redact
)

func (d Decision) String() string {
	if d == Redact {
		return "redact"
	}
	return "reveal"
}

// Decide returns whether requesterID may see view data owned by ownerID.
// Owners always see their own data; everybody else sees it unless the
// owner has hidden it.
func Decide(requesterID, ownerID string, ownerHidden bool) Decision {
	if requesterID == ownerID {
		return Reveal
	}
	if ownerHidden {
		return Redact
	}
	return Reveal
}
