package service

import (
	"strings"

	"github.com/NiketSingh147/StoreIt/internal/models"
)

// CanRead reports whether caller owns f or is one of its recipients.
func CanRead(caller models.Profile, f models.File) bool {
	if CanMutate(caller, f) {
		return true
	}
	for _, e := range f.SharedWith {
		if strings.EqualFold(e, caller.Email) {
			return true
		}
	}
	return false
}

// CanMutate reports whether caller owns f.
func CanMutate(caller models.Profile, f models.File) bool {
	return caller.ID != "" && f.OwnerID == caller.ID
}
