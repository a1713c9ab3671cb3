package domain

// LocationUpdate is forwarded as-is to the sender's friends room.
// The hub keeps no history; persistence belongs to the data service.
type LocationUpdate struct {
	User               UserID   `json:"userId"`
	Car                CarID    `json:"carId,omitempty"`
	Latitude           float64  `json:"lat"`
	Longitude          float64  `json:"lon"`
	Accuracy           *float64 `json:"accuracy,omitempty"`
	Speed              *float64 `json:"speed,omitempty"`
	Heading            *float64 `json:"heading,omitempty"`
	Altitude           *float64 `json:"altitude,omitempty"`
	BluetoothConnected bool     `json:"bluetoothConnected,omitempty"`
	Timestamp          int64    `json:"timestamp,omitempty"`
	Live               bool     `json:"live"`
}
