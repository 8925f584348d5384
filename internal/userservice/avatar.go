package userservice

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

const gravatarBaseURL = "https://www.gravatar.com/avatar/"

// GravatarKey is the lookup key Gravatar expects: the hex md5 of the normalised email.
func GravatarKey(email string) string {
	sum := md5.Sum([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(sum[:])
}

// GravatarURL builds the avatar image URL with a g rating and the retro fallback image.
func GravatarURL(email string, size int) string {
	return fmt.Sprintf("%s%s?s=%d&r=g&d=retro", gravatarBaseURL, GravatarKey(email), size)
}
