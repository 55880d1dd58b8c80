package dto

import "encoding/json"

// Fulfillment carries the per-loan credentials the audio distribution
// backend needs, plus the ordered chapter item list.
type Fulfillment struct {
	FulfillmentID string `json:"fulfillmentId"`
	AccountID     string `json:"accountId"`
	SessionKey    string `json:"sessionKey"`
	LicenseID     string `json:"licenseId"`

	// Items is the ordered chapter list. Its order must match the
	// playlist generated by the distribution backend; the two are
	// paired positionally.
	Items []FulfillmentItem `json:"items"`

	// ItemsRaw preserves the wire form of Items for the metadata dump.
	ItemsRaw json.RawMessage `json:"-"`
}

// FulfillmentItem is one chapter entry of the fulfillment item list.
type FulfillmentItem struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// fulfillmentEnvelope is the wire shape of the listen endpoint.
type fulfillmentEnvelope struct {
	Audiobook *struct {
		Fulfillment
		Items json.RawMessage `json:"items"`
	} `json:"audiobook"`
}

// ParseFulfillment decodes a listen-endpoint response body. The second
// return value is false when the response has no audiobook record.
func ParseFulfillment(body []byte) (Fulfillment, bool, error) {
	var env fulfillmentEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Fulfillment{}, false, err
	}
	if env.Audiobook == nil {
		return Fulfillment{}, false, nil
	}

	f := env.Audiobook.Fulfillment
	f.ItemsRaw = env.Audiobook.Items
	if len(env.Audiobook.Items) > 0 {
		if err := json.Unmarshal(env.Audiobook.Items, &f.Items); err != nil {
			return Fulfillment{}, false, err
		}
	}
	return f, true, nil
}
