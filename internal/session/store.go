// store.go persists sessions as an encrypted cookie on gin requests.
//
// Cookie attributes are invariants, not configuration: HttpOnly and
// SameSite=Lax always, Secure whenever the deployment is production, path "/",
// and a positive bounded MaxAge. The only configurable pieces are the cookie
// name, the lifetime, and the production flag.
package session

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prism-hq/prism-server/internal/apperrors"
	"github.com/prism-hq/prism-server/internal/crypto"
)

// DefaultCookieName is used when no cookie name is configured.
const DefaultCookieName = "prism_session"

// Store reads and writes the session cookie.
type Store struct {
	cipher     *crypto.SessionCipher
	cookieName string
	maxAge     int // seconds
	secure     bool
}

// NewStore creates a session store. maxAge must be positive; secure should be
// true in production deployments.
func NewStore(cipher *crypto.SessionCipher, cookieName string, maxAge int, secure bool) *Store {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if maxAge <= 0 {
		maxAge = 7 * 24 * 3600
	}
	return &Store{
		cipher:     cipher,
		cookieName: cookieName,
		maxAge:     maxAge,
		secure:     secure,
	}
}

// Create writes a fresh session for the given user. activeProjectID may be
// nil for a user with no selected project.
func (st *Store) Create(c *gin.Context, userID string, activeProjectID *string) (*Session, error) {
	sess := &Session{
		UserID:          userID,
		ActiveProjectID: activeProjectID,
	}
	if err := st.Save(c, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Validate reads and decrypts the session cookie. It returns nil when there
// is no cookie, the cookie fails authentication, or the decoded value lacks a
// user id — a cookie without identity is invalid, not partially valid.
func (st *Store) Validate(c *gin.Context) *Session {
	raw, err := c.Cookie(st.cookieName)
	if err != nil || raw == "" {
		return nil
	}

	plaintext, err := st.cipher.Open(raw)
	if err != nil || plaintext == nil {
		return nil
	}

	sess, err := Decode(plaintext)
	if err != nil {
		return nil
	}
	if !sess.Authenticated() {
		return nil
	}
	return sess
}

// Save encrypts and persists the session value onto the response.
func (st *Store) Save(c *gin.Context, sess *Session) error {
	plaintext, err := sess.Encode()
	if err != nil {
		return err
	}
	sealed, err := st.cipher.Seal(plaintext)
	if err != nil {
		return err
	}
	st.setCookie(c, sealed, st.maxAge)
	return nil
}

// Destroy clears the session cookie. Safe to call when no session exists;
// repeated calls are no-ops beyond the first.
func (st *Store) Destroy(c *gin.Context) {
	st.setCookie(c, "", -1)
}

// UpdateActiveProject overwrites the active project on the current session
// and persists it. Fails when no authenticated session is present. Membership
// checks belong to the caller (the projects service).
func (st *Store) UpdateActiveProject(c *gin.Context, projectID string) (*Session, error) {
	sess := st.Validate(c)
	if sess == nil {
		return nil, apperrors.Unauthenticated("No active session")
	}
	sess.ActiveProjectID = &projectID
	if err := st.Save(c, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// setCookie writes the cookie with the non-negotiable attributes.
func (st *Store) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(st.cookieName, value, maxAge, "/", "", st.secure, true)
}
