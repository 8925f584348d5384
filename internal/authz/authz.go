// Package authz decides whether an actor may perform a protected action.
//
// The gate holds no state and performs no I/O. Callers resolve the actor (including whether it
// is the administrator) inside the same transaction as the write they are about to make, call
// Authorize once, and only proceed when the decision is permitted.
package authz

import (
	"errors"
	"fmt"
)

// Action names a protected operation the gate rules on.
type Action int

const (
	ViewContent Action = iota
	CreatePost
	EditPost
	DeletePost
	CreateComment
	DeleteComment
)

func (a Action) String() string {
	switch a {
	case ViewContent:
		return "view content"
	case CreatePost:
		return "create post"
	case EditPost:
		return "edit post"
	case DeletePost:
		return "delete post"
	case CreateComment:
		return "create comment"
	case DeleteComment:
		return "delete comment"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Reason explains a denied decision. ReasonNone accompanies a permit.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNotAuthenticated
	ReasonNotAdministrator
	ReasonNotOwner
)

var (
	ErrForbidden        = errors.New("forbidden")
	ErrNotAuthenticated = fmt.Errorf("%w: not authenticated", ErrForbidden)
	ErrNotAdministrator = fmt.Errorf("%w: not administrator", ErrForbidden)
	ErrNotOwner         = fmt.Errorf("%w: not owner", ErrForbidden)
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNotAuthenticated:
		return "not authenticated"
	case ReasonNotAdministrator:
		return "not administrator"
	case ReasonNotOwner:
		return "not owner"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Actor is the identity bound to one request. The zero value is the anonymous actor.
type Actor struct {
	ID            int
	Administrator bool
}

// Anonymous is the actor of a request without a valid session.
var Anonymous = Actor{}

// Authenticated reports whether the actor is bound to a user.
func (a Actor) Authenticated() bool {
	return a.ID > 0
}

// Target carries the attributes of the entity an action applies to. Only DeleteComment reads it.
type Target struct {
	AuthorID int
}

// Decision is the outcome of Authorize.
type Decision struct {
	Permitted bool
	Reason    Reason
}

func permit() Decision { return Decision{Permitted: true} }

func deny(r Reason) Decision { return Decision{Reason: r} }

// Err returns nil for a permitted decision and the sentinel matching the deny reason otherwise.
func (d Decision) Err() error {
	if d.Permitted {
		return nil
	}

	switch d.Reason {
	case ReasonNotAuthenticated:
		return ErrNotAuthenticated
	case ReasonNotAdministrator:
		return ErrNotAdministrator
	case ReasonNotOwner:
		return ErrNotOwner
	default:
		return ErrForbidden
	}
}

// Authorize evaluates the rule for action. The authentication check always runs before role
// and ownership checks. Unknown actions are denied.
func Authorize(actor Actor, action Action, target Target) Decision {
	if action == ViewContent {
		return permit()
	}

	if !actor.Authenticated() {
		return deny(ReasonNotAuthenticated)
	}

	switch action {
	case CreatePost, EditPost, DeletePost:
		if !actor.Administrator {
			return deny(ReasonNotAdministrator)
		}
		return permit()
	case CreateComment:
		return permit()
	case DeleteComment:
		// ownership only: administrators get no moderation override
		if target.AuthorID != actor.ID {
			return deny(ReasonNotOwner)
		}
		return permit()
	default:
		return deny(ReasonNone)
	}
}

// Can is shorthand for presentation code that only needs a yes or no.
func Can(actor Actor, action Action, target Target) bool {
	return Authorize(actor, action, target).Permitted
}
