// Package tokens issues and validates short-lived, asset-scoped access
// tokens.
//
// The token is self-describing data: URL-safe base64 over JSON, with no
// signature and no shared secret. This is a deliberate weak-trust
// design: anyone can forge a token, and its only real protections are
// the asset scope and the short lifetime. Hardening would mean a MAC'd
// or signed format, which invalidates every token-bearing URL already
// in the wild.
package tokens

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrMalformed covers bad encoding, bad JSON, and missing fields.
	ErrMalformed = errors.New("malformed access token")
	// ErrAssetMismatch means the token is scoped to a different asset.
	ErrAssetMismatch = errors.New("token not valid for this asset")
	// ErrExpired means the token's lifetime has passed.
	ErrExpired = errors.New("access token expired")
)

// Token authorizes access to exactly one asset for a bounded time.
type Token struct {
	AssetID string `json:"asset_id"`
	UserID  string `json:"user_id,omitempty"`
	// IssuedAt and ExpiresAt are unix seconds.
	IssuedAt  int64 `json:"iat"`
	ExpiresAt int64 `json:"exp"`
	// Nonce marks token uniqueness. Reserved for replay detection;
	// not currently checked.
	Nonce string `json:"nonce"`
}

// Codec issues and validates tokens under a fixed lifetime policy.
type Codec struct {
	playbackTTL time.Duration
	mediaTTL    time.Duration
	mediaBucket time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewCodec builds a codec. playbackTTL bounds playback-redirect grants,
// mediaTTL bounds general media-URL grants, and mediaBucket periodizes
// media-URL issuance times so identical requests within a bucket produce
// identical (cacheable) URLs.
func NewCodec(playbackTTL, mediaTTL, mediaBucket time.Duration) *Codec {
	return &Codec{
		playbackTTL: playbackTTL,
		mediaTTL:    mediaTTL,
		mediaBucket: mediaBucket,
		now:         time.Now,
	}
}

// Issue mints a playback-scoped token for the asset. userID may be empty
// for anonymous scoped access.
func (c *Codec) Issue(assetID, userID string) Token {
	now := c.now().Unix()
	return Token{
		AssetID:   assetID,
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now + int64(c.playbackTTL.Seconds()),
		Nonce:     uuid.New().String(),
	}
}

// IssueMediaURL mints a longer-lived token for embedding in media URLs.
// IssuedAt is floored to the bucket boundary and the nonce is derived
// from it, so all tokens minted within one bucket for the same asset and
// user encode identically and the URLs they produce can be cached.
func (c *Codec) IssueMediaURL(assetID, userID string) Token {
	bucket := int64(c.mediaBucket.Seconds())
	issued := c.now().Unix()
	if bucket > 0 {
		issued -= issued % bucket
	}
	return Token{
		AssetID:   assetID,
		UserID:    userID,
		IssuedAt:  issued,
		ExpiresAt: issued + int64(c.mediaTTL.Seconds()),
		Nonce:     uuid.NewSHA1(uuid.NameSpaceURL, []byte(assetID+"|"+userID+"|"+strconv.FormatInt(issued, 10))).String(),
	}
}

// Encode renders a token as an opaque URL-safe string.
func (c *Codec) Encode(t Token) string {
	payload, _ := json.Marshal(t) //nolint:errcheck // Token has no unmarshalable fields
	return base64.RawURLEncoding.EncodeToString(payload)
}

// Decode parses an encoded token without validating it.
func (c *Codec) Decode(encoded string) (Token, error) {
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		// Tolerate padded or standard-alphabet encodings from older
		// URL generators.
		payload, err = base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return Token{}, ErrMalformed
		}
	}

	var t Token
	if err := json.Unmarshal(payload, &t); err != nil {
		return Token{}, ErrMalformed
	}
	if t.AssetID == "" || t.IssuedAt == 0 || t.ExpiresAt == 0 || t.ExpiresAt <= t.IssuedAt {
		return Token{}, ErrMalformed
	}
	return t, nil
}

// Validate decodes a token and checks it against the expected asset and
// the current time. The expiry boundary is exclusive: a token expiring
// exactly now is still accepted, one second past is not.
func (c *Codec) Validate(encoded, expectedAssetID string) (Token, error) {
	t, err := c.Decode(encoded)
	if err != nil {
		return Token{}, err
	}
	if t.AssetID != expectedAssetID {
		return Token{}, ErrAssetMismatch
	}
	if c.now().Unix() > t.ExpiresAt {
		return Token{}, ErrExpired
	}
	return t, nil
}
