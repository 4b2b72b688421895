package ledger

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Wire Types
// ---------------------------------------------------------------------------

// flexID tolerates ledger resources identified by either a JSON string or a
// JSON number
type flexID string

// UnmarshalJSON implements json.Unmarshaler
func (id *flexID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = flexID(n.String())
	return nil
}

// contactName is the ledger's split person name
type contactName struct {
	FirstName  string `json:"firstName"`
	SecondName string `json:"secondName,omitempty"`
	LastName   string `json:"lastName"`
}

// contactAddress is the ledger's contact address shape
type contactAddress struct {
	Lines  []string `json:"lines,omitempty"`
	CityID flexID   `json:"cityId,omitempty"`
}

// contactResource is a counterparty as the ledger API represents it
type contactResource struct {
	ID             flexID          `json:"id,omitempty"`
	Identification string          `json:"identification"`
	Name           contactName     `json:"name"`
	Type           []string        `json:"type"`
	Address        *contactAddress `json:"address,omitempty"`
}

// cityResource is a city as the ledger API represents it
type cityResource struct {
	ID     flexID `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

// invoiceLineResource is one line of an invoice payload
type invoiceLineResource struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Discount    int             `json:"discount,omitempty"`
	TaxRate     decimal.Decimal `json:"taxRate"`
}

// invoiceCreateRequest is the payload of an invoice creation
type invoiceCreateRequest struct {
	Concept     string                `json:"concept"`
	ContactID   flexID                `json:"contactId"`
	Date        string                `json:"date"`
	PaymentTerm string                `json:"paymentTerm"`
	Lines       []invoiceLineResource `json:"lines"`
}

// invoiceResource is an invoice as the ledger API represents it
type invoiceResource struct {
	ID      flexID `json:"id"`
	Number  string `json:"number"`
	Concept string `json:"concept"`
	Status  string `json:"status"`
}

// apiErrorBody is the ledger's error envelope
type apiErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
