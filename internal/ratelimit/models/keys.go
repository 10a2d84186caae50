package models

import "strings"

// KeyPrefixVerify namespaces verification admission windows.
const KeyPrefixVerify = "kyc:verify"

// NewVerifyKey returns the window key for a client identifier. ':' inside the
// identifier is replaced so an IPv6 address stays one key segment.
func NewVerifyKey(clientID string) string {
	if clientID == "" {
		clientID = "unknown"
	}
	return KeyPrefixVerify + ":" + strings.ReplaceAll(clientID, ":", "_")
}
