package models

// IsOwner reports whether the user owns the album.
func (a *Album) IsOwner(userID int64) bool {
	return a.UserID == userID
}

func (a *Album) IsEditor(userID int64) bool {
	for _, id := range a.EditorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// CanView is true for staff, the owner, editors and, for public albums,
// everyone.
func (a *Album) CanView(u *User) bool {
	return a.IsPublic || a.CanEdit(u)
}

// CanEdit covers photo uploads, favorites, sharing and collages.
func (a *Album) CanEdit(u *User) bool {
	return u.IsStaff || a.IsOwner(u.ID) || a.IsEditor(u.ID)
}

// CanManage covers album metadata, visibility, editors and deletion. Staff
// moderate every album.
func (a *Album) CanManage(u *User) bool {
	return u.IsStaff || a.IsOwner(u.ID)
}

func (r *BugReport) VisibleTo(u *User) bool {
	if u.IsStaff {
		return true
	}
	return r.UserID != nil && *r.UserID == u.ID
}
