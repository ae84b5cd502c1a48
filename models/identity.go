package models

// Identity is a signed-in user as reported by an identity provider.
type Identity struct {
	Subject     string // provider-scoped user id
	DisplayName string
	Provider    string // "google", "password"
	AccessToken string // provider token, empty when the provider issues none
}
