// Package session implements the cookie-backed session: a serializable value
// carrying identity, active-project selection, and the super-admin
// access-simulation state. There is no server-side session table — the cookie
// is the database. All business rules about who may access what live in the
// projects and simulation packages; this package only encodes, decodes, and
// persists the value with the required cookie attributes.
package session

import "encoding/json"

// Session is the decoded session value held in the encrypted cookie.
//
// Invariants:
//   - A session with an empty UserID is unauthenticated regardless of any
//     other fields.
//   - SuperAdminMode is true if and only if OriginalUserID is set. A session
//     where only one of the two is present is not a valid impersonating
//     session and is treated as normal.
type Session struct {
	UserID          string  `json:"user_id"`
	ActiveProjectID *string `json:"active_project_id,omitempty"`

	// Access-simulation fields. Set only while a super-admin is impersonating
	// access to a project they hold no membership in.
	OriginalUserID     *string `json:"original_user_id,omitempty"`
	SuperAdminMode     bool    `json:"super_admin_mode,omitempty"`
	SimulatedProjectID *string `json:"simulated_project_id,omitempty"`
}

// Authenticated reports whether the session carries a resolvable identity.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != ""
}

// Impersonating reports whether the session is in the access-simulation
// state. Both conditions are required: a stray SuperAdminMode flag without an
// original user id does not count.
func (s *Session) Impersonating() bool {
	return s != nil && s.SuperAdminMode && s.OriginalUserID != nil
}

// Encode serializes the session to its JSON wire form.
func (s *Session) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// Decode deserializes a session from its JSON wire form.
func Decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
