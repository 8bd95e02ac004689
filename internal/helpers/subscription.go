package helpers

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"vpn-rent-bot/internal/constants"
)

// EncodeSubscriptionHash encodes "<userID>:<clientID>" as base64url without
// padding. Client ids are UUIDs and never contain the colon separator.
func EncodeSubscriptionHash(userID int64, clientID string) string {
	data := fmt.Sprintf("%d:%s", userID, clientID)
	return base64.RawURLEncoding.EncodeToString([]byte(data))
}

// DecodeSubscriptionHash reverses EncodeSubscriptionHash. Producers may
// re-add "=" padding, so it is stripped before decoding. Callers must verify
// the decoded user id against any user id presented alongside the hash.
func DecodeSubscriptionHash(hash string) (int64, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(hash, "="))
	if err != nil {
		return 0, "", fmt.Errorf("invalid subscription hash: %w", err)
	}

	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", fmt.Errorf("invalid subscription hash payload: %q", string(raw))
	}

	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid user id in subscription hash: %w", err)
	}

	return userID, parts[1], nil
}

// SubscriptionURL builds the externally shared subscription link.
// The shape is load-bearing: client apps decode it to resolve a client.
func SubscriptionURL(domain string, userID int64, clientID string) string {
	return fmt.Sprintf("https://%s/sub/%s/%d", domain, EncodeSubscriptionHash(userID, clientID), userID)
}

// DeepLink wraps a subscription URL in the companion app URI scheme
func DeepLink(subscriptionURL string) string {
	return fmt.Sprintf("%s://import-sub?url=%s", constants.DeepLinkScheme, url.QueryEscape(subscriptionURL))
}
