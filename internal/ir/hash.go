package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix lets the alias scheme change without silent collisions.
const (
	DomainInstance = "dataview/instance/v1"
	DomainGames    = "dataview/games/v1"
	DomainQuery    = "dataview/query/v1"
)

// AliasLength is the number of hex characters kept in a SQL alias. 128 bits
// stays well inside the 63-byte identifier limit of PostgreSQL.
const AliasLength = 32

// hashWithDomain computes SHA256(domain || 0x00 || data) as lowercase hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the full SHA-256 content hash of v's canonical encoding.
func Hash(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("%s: canonical encoding: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// Alias returns marker + the first AliasLength hex characters of Hash.
func Alias(marker, domain string, v any) (string, error) {
	h, err := Hash(domain, v)
	if err != nil {
		return "", err
	}
	return marker + h[:AliasLength], nil
}

// QueryHash fingerprints a compiled SQL string, e.g. for HTTP ETags.
func QueryHash(sql string) string {
	return hashWithDomain(DomainQuery, []byte(sql))
}
