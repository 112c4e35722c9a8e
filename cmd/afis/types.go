package main

// FingerprintPayload carries one fingerprint. Template is a base64 compact or CBOR
// template; Image is a base64 PNG, JPEG, GIF or PNM image used when Template is empty.
// Both may be data URLs.
type FingerprintPayload struct {
	Finger   string `json:"finger"`
	Template string `json:"template"`
	Image    string `json:"image"`
}

type PersonPayload struct {
	Fingerprints []FingerprintPayload `json:"fingerprints"`
}

type VerifyRequest struct {
	Probe     PersonPayload `json:"probe"`
	Candidate PersonPayload `json:"candidate"`
}

type VerifyResponse struct {
	Score   float64 `json:"score"`
	Match   bool    `json:"is_match"`
	Elapsed string  `json:"elapsed"`
}

type IdentifyRequest struct {
	Probe      PersonPayload   `json:"probe"`
	Candidates []PersonPayload `json:"candidates"`
}

// IdentifyMatch names a candidate by its position in the request or, for gallery
// searches, by its enrollment ID.
type IdentifyMatch struct {
	Index int     `json:"index"`
	ID    string  `json:"id,omitempty"`
	Score float64 `json:"score"`
}

type IdentifyResponse struct {
	Matches []IdentifyMatch `json:"matches"`
	Elapsed string          `json:"elapsed"`
}

type EnrollResponse struct {
	ID string `json:"id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
