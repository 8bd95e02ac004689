package helpers

import (
	"strings"
	"testing"
)

func TestSubscriptionHashRoundTrip(t *testing.T) {
	const userID int64 = 8005178596
	const clientID = "f2a9c1d0-3b4e-4f5a-8b6c-7d8e9f0a1b2c"

	hash := EncodeSubscriptionHash(userID, clientID)
	if strings.Contains(hash, "=") {
		t.Fatalf("hash must not carry padding: %q", hash)
	}

	gotUser, gotClient, err := DecodeSubscriptionHash(hash)
	if err != nil {
		t.Fatalf("DecodeSubscriptionHash: %v", err)
	}
	if gotUser != userID || gotClient != clientID {
		t.Fatalf("round trip mismatch: got (%d, %q)", gotUser, gotClient)
	}
}

func TestDecodeSubscriptionHashToleratesPadding(t *testing.T) {
	hash := EncodeSubscriptionHash(42, "abc-def")

	gotUser, gotClient, err := DecodeSubscriptionHash(hash + "==")
	if err != nil {
		t.Fatalf("DecodeSubscriptionHash with padding: %v", err)
	}
	if gotUser != 42 || gotClient != "abc-def" {
		t.Fatalf("padded round trip mismatch: got (%d, %q)", gotUser, gotClient)
	}
}

func TestDecodeSubscriptionHashRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"!!!not-base64!!!",
		"bm9jb2xvbg",     // "nocolon"
		"OnN0aWxsLWJhZA", // ":still-bad" has no user id
	}
	for _, hash := range cases {
		if _, _, err := DecodeSubscriptionHash(hash); err == nil {
			t.Fatalf("expected error for hash %q", hash)
		}
	}
}

func TestSubscriptionURLShape(t *testing.T) {
	url := SubscriptionURL("vpn.example.com", 7, "client-1")

	hash := EncodeSubscriptionHash(7, "client-1")
	want := "https://vpn.example.com/sub/" + hash + "/7"
	if url != want {
		t.Fatalf("SubscriptionURL = %q, want %q", url, want)
	}
}

func TestDeepLinkEscapesURL(t *testing.T) {
	link := DeepLink("https://vpn.example.com/sub/abc/7")

	if !strings.HasPrefix(link, "v2raytun://import-sub?url=") {
		t.Fatalf("unexpected deep link prefix: %q", link)
	}
	if strings.Contains(strings.TrimPrefix(link, "v2raytun://import-sub?url="), "/") {
		t.Fatalf("subscription URL must be escaped in deep link: %q", link)
	}
}
