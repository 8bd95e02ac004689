package models

// Order describes a paid (or pending) purchase of VPN time.
// SubscriptionID selects the renewal target; zero means a new provisioning.
type Order struct {
	UserID         int64
	Months         int
	Price          int
	SubscriptionID int64
}

// ProvisionResult is returned after a client has been added to the panel
type ProvisionResult struct {
	ClientID         string
	Name             string
	SubscriptionLink string
	DeepLink         string
	InboundID        int
}
