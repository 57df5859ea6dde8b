package uevchannel

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Configuration errors are surfaced synchronously at build time,
// before any channel is opened.  They are never retried.
var (
	ErrEmptyName              = errors.New("channel name must not be empty")
	ErrInvalidNameCharacters  = errors.New("channel names must be ASCII alphanumeric")
	ErrInvalidGroupCharacters = errors.New("channel group names must be lower case ASCII letters or digits")
	ErrEmptyGroupIdentity     = errors.New("channel group identity must not be zeros")
	ErrTooManyCharacters      = errors.New("channel name and group must be less than 234 characters combined")
)

// maxNameAndGroup is the combined name+group length the native
// tracefs registration accepts.
const maxNameAndGroup = 234

// ValidateName checks a channel name against the native naming rules.
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			continue
		}
		return errors.Wrapf(ErrInvalidNameCharacters, "name %q", name)
	}
	return nil
}

// ValidateGroupName checks a group name and the combined length limit.
func ValidateGroupName(name, group string) error {
	for i := 0; i < len(group); i++ {
		c := group[i]
		if c >= 'a' && c <= 'z' || c >= '0' && c <= '9' {
			continue
		}
		return errors.Wrapf(ErrInvalidGroupCharacters, "group %q", group)
	}
	if n := len(name) + len(group); n >= maxNameAndGroup {
		return errors.Wrapf(ErrTooManyCharacters, "current length %d", n)
	}
	return nil
}

// ValidateGroupIdentity rejects the all-zero group id.
func ValidateGroupIdentity(id Identity) error {
	if id == uuid.Nil {
		return ErrEmptyGroupIdentity
	}
	return nil
}
