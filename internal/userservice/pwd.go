package userservice

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when no account matches an email, so a failed login
// costs the same whether or not the email is registered.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)

func (p *Password) set(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcryptCost)
	if err != nil {
		return err
	}

	p.Plain = pwd
	p.hash = hash

	return nil
}

func (p *Password) compare(pwd string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(p.hash, []byte(pwd))
	if err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, err
		}
	}

	return true, nil
}

func burnComparison(pwd string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(pwd))
}
