package amqp

import (
	"encoding/json"
	"time"
)

// RoutingKeyPortfolioSaved routes change notifications to the mirror queue.
const RoutingKeyPortfolioSaved = "portfolio.saved"

// PortfolioSavedMessage announces that a new revision of the portfolio was stored.
// It carries no payload: consumers reload the state from the primary store.
type PortfolioSavedMessage struct {
	Revision  int64     `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPortfolioSavedMessage(revision int64) *PortfolioSavedMessage {
	return &PortfolioSavedMessage{
		Revision:  revision,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *PortfolioSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PortfolioSavedMessageFromJSON creates a message from JSON bytes
func PortfolioSavedMessageFromJSON(data []byte) (*PortfolioSavedMessage, error) {
	var msg PortfolioSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
