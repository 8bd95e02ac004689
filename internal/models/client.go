package models

// Client represents one provisioned credential inside the shared inbound.
// TgID carries the owning Telegram user id for attribution.
type Client struct {
	ID         string `json:"id"`
	Flow       string `json:"flow,omitempty"`
	Email      string `json:"email"`
	LimitIP    int    `json:"limitIp"`
	TotalGB    int64  `json:"totalGB"`
	ExpiryTime int64  `json:"expiryTime"`
	Enable     bool   `json:"enable"`
	TgID       string `json:"tgId"`
	VPNName    string `json:"vpnName,omitempty"`
}

// ClientView is the compact projection of a client returned to callers
type ClientView struct {
	ClientID   string
	Name       string
	Email      string
	Enabled    bool
	TotalGB    int64
	ExpiryTime int64
	InboundID  int
}
