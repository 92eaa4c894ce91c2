// Package turnrest mints coturn-compatible TURN REST credentials
// (draft-uberti-behave-turn-rest):
//
//	username   = <unix_expiry>:<prefix>:<peer_id>
//	credential = base64(hmac_sha1(shared_secret, username))
package turnrest

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	SharedSecret   string
	TTLSeconds     int64
	UsernamePrefix string
	Now            func() time.Time
	// PeerID names the credential's holder when Generate is given none.
	PeerID func() string
}

type Generator struct {
	secret []byte
	ttl    int64
	prefix string
	now    func() time.Time
	peerID func() string
}

type Credentials struct {
	Username   string
	Credential string
	ExpiresAt  time.Time
}

func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.SharedSecret == "" {
		return nil, errors.New("shared secret is required")
	}
	if cfg.TTLSeconds <= 0 {
		return nil, errors.New("TTLSeconds must be > 0")
	}
	if cfg.UsernamePrefix == "" {
		return nil, errors.New("UsernamePrefix is required")
	}
	if strings.Contains(cfg.UsernamePrefix, ":") {
		return nil, errors.New("UsernamePrefix must not contain ':'")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.PeerID == nil {
		cfg.PeerID = func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }
	}
	return &Generator{
		secret: []byte(cfg.SharedSecret),
		ttl:    cfg.TTLSeconds,
		prefix: cfg.UsernamePrefix,
		now:    cfg.Now,
		peerID: cfg.PeerID,
	}, nil
}

// Generate returns credentials for peerID, or for a fresh random id when
// peerID is empty.
func (g *Generator) Generate(peerID string) (Credentials, error) {
	if peerID == "" {
		peerID = g.peerID()
	}
	if strings.Contains(peerID, ":") {
		return Credentials{}, fmt.Errorf("peer id %q must not contain ':'", peerID)
	}
	expiry := g.now().UTC().Unix() + g.ttl
	username := fmt.Sprintf("%d:%s:%s", expiry, g.prefix, peerID)
	return Credentials{
		Username:   username,
		Credential: Sign(g.secret, username),
		ExpiresAt:  time.Unix(expiry, 0).UTC(),
	}, nil
}

// Sign returns the coturn REST password for username.
func Sign(secret []byte, username string) string {
	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write([]byte(username))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
