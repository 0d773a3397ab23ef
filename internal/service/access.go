package service

import (
	"slices"

	"github.com/fineblog/internal/db"
)

// Principal is the acting user of a request as supplied by the session layer.
type Principal struct {
	UserID      uint
	Username    string
	DisplayName string
	Roles       []string
}

// PrincipalFromUser builds a Principal from a stored user.
func PrincipalFromUser(user db.User) Principal {
	return Principal{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName(),
		Roles:       user.RoleList(),
	}
}

// Authenticated reports whether the principal refers to a stored user.
func (p Principal) Authenticated() bool {
	return p.UserID != 0
}

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// IsElevated reports whether ownership checks are bypassed for the principal.
func (p Principal) IsElevated() bool {
	return p.Authenticated() && p.HasRole(db.RoleAdmin)
}

// CanMutate reports whether principal may edit or delete post.
func CanMutate(principal Principal, post *db.Post) bool {
	if post == nil || !principal.Authenticated() {
		return false
	}
	return principal.IsElevated() || principal.UserID == post.UserID
}

// CanDeleteComment reports whether principal may delete comment. Comments carry
// no user reference, so authorship is matched on the display name.
func CanDeleteComment(principal Principal, comment *db.Comment) bool {
	if comment == nil || !principal.Authenticated() {
		return false
	}
	return principal.IsElevated() || (principal.DisplayName != "" && principal.DisplayName == comment.AuthorName)
}
