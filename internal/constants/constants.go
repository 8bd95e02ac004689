package constants

const (
	// Inbound constants
	MainInboundMarker = "MAIN_VPN"
	MainInboundRemark = "MAIN_VPN_INBOUND"
	DefaultVPNPort    = 62789
	VlessFlow         = "xtls-rprx-vision"
	ClientIPLimit     = 3

	// Link constants
	DeepLinkScheme = "v2raytun"

	// Network constants (seconds)
	LoginTimeout  = 10
	FetchTimeout  = 10
	UpdateTimeout = 30

	// Cache constants (minutes)
	CacheExpiration      = 30
	CacheCleanupInterval = 10

	// Payment constants
	DefaultWaitTimeout  = 15 * 60 // seconds
	DefaultPollInterval = 6       // seconds

	// Referral constants
	ReferralShare        = 0.5
	ReferralWindowMonths = 3

	// Scheduler constants
	ExpiryJobPrefix  = "check_sub_"
	ExpiryCheckHours = 24

	// Formatting constants
	TimestampFormat = "2006-01-02 15:04:05"
	DateFormat      = "2006-01-02"
)
