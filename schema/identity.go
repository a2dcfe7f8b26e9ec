package schema

import (
	"fmt"
	"strings"
)

type IdentityKind string

const (
	IdentityKindSession IdentityKind = "session"
	IdentityKindProfile IdentityKind = "profile"
)

var ErrInvalidIdentity = fmt.Errorf("invalid identity")

// Identity is either an anonymous session or a durable profile. A session
// identity can be merged into a profile once the visitor signs up.
type Identity struct {
	Kind IdentityKind `json:"kind" bson:"kind"`
	ID   string       `json:"id" bson:"id"`
}

func SessionIdentity(id string) Identity {
	return Identity{Kind: IdentityKindSession, ID: id}
}

func ProfileIdentity(id string) Identity {
	return Identity{Kind: IdentityKindProfile, ID: id}
}

func (i Identity) Valid() bool {
	if i.ID == "" || strings.ContainsAny(i.ID, ": ") {
		return false
	}
	return i.Kind == IdentityKindSession || i.Kind == IdentityKindProfile
}

// Key is the canonical string form used as rater/target keys in storage.
func (i Identity) Key() string {
	return string(i.Kind) + ":" + i.ID
}

func (i Identity) String() string {
	return i.Key()
}

// ParseIdentity reverses Identity.Key.
func ParseIdentity(key string) (Identity, error) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 {
		return Identity{}, ErrInvalidIdentity
	}

	id := Identity{Kind: IdentityKind(parts[0]), ID: parts[1]}
	if !id.Valid() {
		return Identity{}, ErrInvalidIdentity
	}
	return id, nil
}

// PostSubject is the rating target key of a single post.
func PostSubject(postID string) string {
	return "post:" + postID
}
