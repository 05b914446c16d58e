// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// AdminKeyHeader carries the admin key on poll management requests
const AdminKeyHeader = "X-Admin-Key"

var ErrInvalidAdminKey = errors.New("invalid admin key")

// GenerateAdminKey derives the admin key of a poll. Nothing is stored;
// the key is recomputed from the poll ID whenever it is checked.
func GenerateAdminKey(pollID, salt string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(pollID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// ValidateAdminKey returns ErrInvalidAdminKey unless adminKey belongs to pollID
func ValidateAdminKey(pollID, adminKey, salt string) error {
	if adminKey == "" || !hmac.Equal([]byte(adminKey), []byte(GenerateAdminKey(pollID, salt))) {
		return ErrInvalidAdminKey
	}
	return nil
}

// AdminKeyFromRequest reads the admin key from X-Admin-Key, falling back
// to an "Authorization: Bearer" header
func AdminKeyFromRequest(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(AdminKeyHeader)); key != "" {
		return key
	}
	authz := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authz, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
