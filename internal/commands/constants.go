package commands

// Commands contains all button texts and commands for the Telegram bot
const (
	// Main commands
	Start  = "/start"
	Cancel = "Cancel"

	// Navigation commands
	ReturnToMainMenu = "Return to Main Menu"

	// Member commands
	RentVPN  = "🛒 Rent VPN"
	MyVPNs   = "📋 My VPNs"
	Renew    = "🔄 Renew"
	Manage   = "⚙️ Manage"
	Referral = "👥 Referral"
	Help     = "❓ Help"

	// Referral actions
	Payout = "💸 Request payout"

	// Manage actions
	Enable  = "▶️ Enable"
	Disable = "⏸ Disable"
	Rename  = "✏️ Rename"
	Delete  = "🗑 Delete"

	// Payment method commands
	PayCard   = "💳 Card"
	PayCrypto = "🪙 Crypto"

	// Administrator commands
	Broadcast = "📣 Broadcast"
)
