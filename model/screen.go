package model

// Screen is a signage display endpoint. The engine only needs its identity;
// hardware telemetry lives elsewhere.
type Screen struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Online   bool   `json:"online"`
}
