package service

import "net/url"

// initialsAvatar builds a deterministic initials avatar URL from a display
// name. Same name, same avatar.
func initialsAvatar(name string) string {
	return "https://api.dicebear.com/7.x/initials/svg?seed=" + url.QueryEscape(name)
}
