package broker

import (
	"errors"

	domain "cryptodump/internal/domain/entity/marketdata"

	json "github.com/goccy/go-json"
)

// BaseMessage is the envelope carried by every exchange. Exactly one field is
// set, matching the exchange the message was published to.
type BaseMessage struct {
	Trade     *domain.Trade            `json:"trade,omitempty"`
	Orderbook *domain.GroupedOrderbook `json:"orderbook,omitempty"`
	Funding   *domain.FundingRate      `json:"funding,omitempty"`
}

var errEmptyMessage = errors.New("message carries no payload")

func encodeMessage(msg BaseMessage) ([]byte, error) {
	if msg.Trade == nil && msg.Orderbook == nil && msg.Funding == nil {
		return nil, errEmptyMessage
	}
	return json.Marshal(msg)
}

func decodeMessage(body []byte) (BaseMessage, error) {
	var msg BaseMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return BaseMessage{}, err
	}
	return msg, nil
}
