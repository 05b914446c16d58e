// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/danielhkuo/livepoll/models"
)

var ErrMissingSession = errors.New("session ID required for this poll")

// Signals is the raw, spoofable identity material extracted from a request
type Signals struct {
	IP              string
	UserAgent       string
	AcceptLanguage  string
	SessionID       string
}

// NormalizeMode lower-cases and trims a voting security mode.
// Empty and unrecognized values map to device_fingerprint.
func NormalizeMode(mode string) string {
	m := strings.ToLower(strings.TrimSpace(mode))
	switch m {
	case models.SecurityNone,
		models.SecurityIPAddress,
		models.SecurityBrowserSession,
		models.SecurityDeviceFingerprint:
		return m
	}
	return models.SecurityDeviceFingerprint
}

// Resolve derives the voter fingerprint for a poll under the given mode.
// Every mode except "none" is deterministic in its inputs.
func Resolve(mode string, signals Signals, pollID string) (string, error) {
	switch NormalizeMode(mode) {
	case models.SecurityIPAddress:
		return digest(signals.IP, pollID), nil

	case models.SecurityBrowserSession:
		if signals.SessionID == "" {
			return "", ErrMissingSession
		}
		return digest(signals.SessionID, pollID), nil

	case models.SecurityNone:
		return uuid.NewString(), nil
	}

	// User agent is left out so that browsers on one device collide.
	return digest(signals.IP, signals.AcceptLanguage, pollID), nil
}

// digest is the lowercase hex SHA-256 of the colon-joined fields
func digest(fields ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, ":")))
	return hex.EncodeToString(sum[:])
}
