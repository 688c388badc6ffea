package domain

// GameRef identifies a game either as a local unsaved draft or as a
// persisted repository record. The distinction decides whether a mutation
// targets only session state or the repository too.
type GameRef struct {
	id      string
	ownerID string
	draft   bool
}

// LocalDraft references a game that exists only in session state.
func LocalDraft(id string) GameRef {
	return GameRef{id: id, draft: true}
}

// Persisted references a repository record and its owner.
func Persisted(id, ownerID string) GameRef {
	return GameRef{id: id, ownerID: ownerID}
}

// ID returns the referenced game id.
func (r GameRef) ID() string { return r.id }

// OwnerID returns the owning user id. Empty for drafts.
func (r GameRef) OwnerID() string { return r.ownerID }

// IsDraft reports whether this reference is a local unsaved draft.
func (r GameRef) IsDraft() bool { return r.draft }
