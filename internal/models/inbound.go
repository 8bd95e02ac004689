package models

import "encoding/json"

// Inbound represents a panel inbound as returned by the API. The
// settings/streamSettings/sniffing fields are independently serialized
// JSON text blobs and must be parsed before use.
type Inbound struct {
	ID             int    `json:"id"`
	Up             int64  `json:"up"`
	Down           int64  `json:"down"`
	Total          int64  `json:"total"`
	Remark         string `json:"remark"`
	Enable         bool   `json:"enable"`
	ExpiryTime     int64  `json:"expiryTime"`
	Listen         string `json:"listen"`
	Port           int    `json:"port"`
	Protocol       string `json:"protocol"`
	Settings       string `json:"settings"`
	StreamSettings string `json:"streamSettings"`
	Sniffing       string `json:"sniffing"`
}

// InboundSettings represents the parsed settings blob of an inbound
type InboundSettings struct {
	Clients    []Client          `json:"clients"`
	Decryption string            `json:"decryption"`
	Fallbacks  []json.RawMessage `json:"fallbacks"`
}

// InboundConfig is the decoded working view of an inbound. StreamSettings
// and Sniffing are round-tripped verbatim; only the client list is mutated.
type InboundConfig struct {
	Clients        []Client
	StreamSettings string
	Sniffing       string
}
