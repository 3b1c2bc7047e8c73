package push

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/kozydot/findr/pkg/models"
)

var validate = validator.New()

// UpdateMessage is the wire format on the product-updates topic. Messages are
// keyed by product id so updates for one product stay on one partition and
// arrive in order.
type UpdateMessage struct {
	ProductID string               `json:"productId"`
	Update    models.PartialUpdate `json:"update"`
}

// DecodeUpdateMessage parses a topic payload. The Kafka message key wins over
// the body's productId when both are present; body-only addressing is kept
// for producers that do not set keys.
func DecodeUpdateMessage(key, value []byte) (UpdateMessage, error) {
	var msg UpdateMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return UpdateMessage{}, fmt.Errorf("decode update message: %w", err)
	}

	if len(key) > 0 {
		msg.ProductID = string(key)
	}
	if msg.ProductID == "" {
		return UpdateMessage{}, fmt.Errorf("update message has no product id")
	}

	// Semantically invalid updates count as malformed; an out-of-range rating
	// or negative price must never reach a session.
	if err := validate.Struct(msg.Update); err != nil {
		return UpdateMessage{}, fmt.Errorf("invalid update message: %w", err)
	}
	return msg, nil
}
