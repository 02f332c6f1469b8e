package models

import (
	"errors"
	"time"
)

// Entitlement is a user's right to run solves: a free-credit balance and an
// optional subscription expiry.
type Entitlement struct {
	Credits               int64
	SubscriptionExpiresAt *time.Time
}

// SubscriptionActive reports whether the subscription runs past now.
func (e Entitlement) SubscriptionActive(now time.Time) bool {
	return e.SubscriptionExpiresAt != nil && e.SubscriptionExpiresAt.After(now)
}

// DebitSource says which entitlement paid for a solve.
type DebitSource int

const (
	SourceNone DebitSource = iota
	SourceSubscription
	SourceCredit
)

func (s DebitSource) String() string {
	switch s {
	case SourceSubscription:
		return "subscription"
	case SourceCredit:
		return "credit"
	default:
		return "none"
	}
}

// DebitOutcome is the ledger's answer to a check-and-debit.
type DebitOutcome int

const (
	DebitGranted DebitOutcome = iota + 1
	DebitInsufficient
	DebitUserNotFound
)

func (o DebitOutcome) String() string {
	switch o {
	case DebitGranted:
		return "granted"
	case DebitInsufficient:
		return "insufficient_entitlement"
	case DebitUserNotFound:
		return "user_not_found"
	default:
		return "unknown"
	}
}

// Debit is the result of one check-and-debit. Remaining is the entitlement
// as committed by that operation.
type Debit struct {
	Outcome   DebitOutcome
	Source    DebitSource
	Remaining Entitlement
}

func (d Debit) Granted() bool {
	return d.Outcome == DebitGranted
}

// TryDebit applies the debit rule to e in place:
// an active subscription grants without mutation, otherwise one credit is
// taken if any is left, otherwise nothing happens.
// It returns the paying source, SourceNone on denial.
func (e *Entitlement) TryDebit(now time.Time) DebitSource {
	if e.SubscriptionActive(now) {
		return SourceSubscription
	}
	if e.Credits > 0 {
		e.Credits--
		return SourceCredit
	}
	return SourceNone
}

var ErrInvalidGrant = errors.New("grant must add credits or subscription days, never remove them")

// Grant adds credits and extends the subscription by days, counting from the
// current expiry when it is still in the future and from now otherwise.
func (e *Entitlement) Grant(credits int64, days int, now time.Time) error {
	if credits < 0 || days < 0 || (credits == 0 && days == 0) {
		return ErrInvalidGrant
	}

	e.Credits += credits

	if days > 0 {
		base := now
		if e.SubscriptionActive(now) {
			base = *e.SubscriptionExpiresAt
		}
		expires := base.Add(time.Duration(days) * 24 * time.Hour)
		e.SubscriptionExpiresAt = &expires
	}

	return nil
}
