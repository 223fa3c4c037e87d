package oauthmodel

// UserIdentity is the authenticated user as described by the provider.
type UserIdentity struct {
	ID         string
	Login      string
	Name       string
	GivenName  string
	FamilyName string
	Email      string
	Picture    string
}

// DisplayName prefers the profile name and falls back to the login handle.
func (u UserIdentity) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Login
}

// EmailEntry is one row of a provider's email list.
type EmailEntry struct {
	Email   string
	Primary bool
}

// PrimaryEmail picks the entry flagged primary, else the first entry,
// else an empty string.
func PrimaryEmail(entries []EmailEntry) string {
	for _, e := range entries {
		if e.Primary {
			return e.Email
		}
	}
	if len(entries) > 0 {
		return entries[0].Email
	}
	return ""
}
