// Package domain contains core domain types for dashgenie.
package domain

// ClaimedUser is the identity asserted by the embedding environment.
type ClaimedUser struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// ClaimedDataset is a dataset the embedding environment says the user can see.
type ClaimedDataset struct {
	ID        int      `json:"id"`
	TableName string   `json:"table_name"`
	Columns   []string `json:"columns"`
}

// UserContext is an unverified claim sent along with a chat message.
type UserContext struct {
	User     *ClaimedUser     `json:"user"`
	Datasets []ClaimedDataset `json:"datasets"`
}

// VerifiedIdentity is a user whose existence and dataset access were confirmed.
// It is never mutated after verification.
type VerifiedIdentity struct {
	ID        int     `json:"id"`
	Username  string  `json:"username"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Datasets  Catalog `json:"datasets"`
}

// DisplayName returns the name used to greet the user.
func (v *VerifiedIdentity) DisplayName() string {
	if v.FirstName != "" {
		return v.FirstName
	}
	return v.Username
}
