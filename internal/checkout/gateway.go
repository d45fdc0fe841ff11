package checkout

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

type ChargeStatus string

const (
	ChargeSucceeded      ChargeStatus = "succeeded"
	ChargeRequiresAction ChargeStatus = "requires_action"
	ChargeFailed         ChargeStatus = "failed"
	ChargePending        ChargeStatus = "pending"
)

type ChargeInput struct {
	Amount    int64
	Currency  string
	CardToken string
	ReturnURL string
	Metadata  map[string]interface{}
}

type Charge struct {
	ID             string
	Status         ChargeStatus
	AuthorizeURL   string
	FailureCode    string
	FailureMessage string
}

// Gateway is the card payment provider boundary. The rest of the package
// treats it as a black box returning one of the three outcomes of a payment
// attempt plus the intermediate pending state.
type Gateway interface {
	CreateCharge(ctx context.Context, in ChargeInput) (*Charge, error)
	GetCharge(ctx context.Context, chargeID string) (*Charge, error)

	// RetrieveEvent re-fetches a webhook event from the provider so the
	// webhook payload itself is never trusted.
	RetrieveEvent(ctx context.Context, eventID string) (string, *Charge, error)
}

var ErrGatewayUnavailable = errors.New("payment provider is unavailable")

type omiseGateway struct {
	client *omise.Client
}

func NewOmiseGateway(publicKey, secretKey string) (Gateway, error) {
	client, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, err
	}
	return &omiseGateway{client: client}, nil
}

func (g *omiseGateway) CreateCharge(ctx context.Context, in ChargeInput) (*Charge, error) {
	ch := &omise.Charge{}
	req := &operations.CreateCharge{
		Amount:    in.Amount,
		Currency:  in.Currency,
		Card:      in.CardToken,
		ReturnURI: in.ReturnURL,
		Metadata:  in.Metadata,
	}

	if err := g.client.Do(ch, req); err != nil {
		return nil, errors.Join(ErrGatewayUnavailable, err)
	}

	return fromOmiseCharge(ch), nil
}

func (g *omiseGateway) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	ch := &omise.Charge{}
	if err := g.client.Do(ch, &operations.RetrieveCharge{ChargeID: chargeID}); err != nil {
		return nil, errors.Join(ErrGatewayUnavailable, err)
	}
	return fromOmiseCharge(ch), nil
}

func (g *omiseGateway) RetrieveEvent(ctx context.Context, eventID string) (string, *Charge, error) {
	ev := &omise.Event{}
	if err := g.client.Do(ev, &operations.RetrieveEvent{EventID: eventID}); err != nil {
		return "", nil, errors.Join(ErrGatewayUnavailable, err)
	}

	raw, err := json.Marshal(ev.Data)
	if err != nil {
		return ev.Key, nil, err
	}
	var ch omise.Charge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return ev.Key, nil, err
	}

	return ev.Key, fromOmiseCharge(&ch), nil
}

// Provider statuses: pending / successful / failed. A pending charge with an
// authorize URI needs the customer to complete 3-D Secure out of band.
func fromOmiseCharge(ch *omise.Charge) *Charge {
	result := &Charge{ID: ch.ID}

	if ch.FailureCode != nil {
		result.FailureCode = *ch.FailureCode
	}
	if ch.FailureMessage != nil {
		result.FailureMessage = *ch.FailureMessage
	}

	switch string(ch.Status) {
	case "successful":
		result.Status = ChargeSucceeded
	case "failed":
		result.Status = ChargeFailed
	default:
		if ch.AuthorizeURI != "" && !ch.Authorized {
			result.Status = ChargeRequiresAction
			result.AuthorizeURL = ch.AuthorizeURI
		} else {
			result.Status = ChargePending
		}
	}

	return result
}
