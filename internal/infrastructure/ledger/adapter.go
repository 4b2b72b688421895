package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ledgersync/backend/internal/domain/integration"
)

// maxResponseSize limits the response body size to prevent memory exhaustion
const maxResponseSize = 10 * 1024 * 1024 // 10MB max response

// invoiceStatusPosted is the ledger's status label for accounted invoices
const invoiceStatusPosted = "posted"

// ---------------------------------------------------------------------------
// Adapter
// ---------------------------------------------------------------------------

// Adapter implements the LedgerGateway port on the accounting ledger REST API.
// Each instance owns its own rate-limiter state and an in-process LRU cache of
// city lookups, since cities never change between runs.
type Adapter struct {
	config     *Config
	httpClient *http.Client
	cityCache  *lru.Cache[string, *integration.City]

	mu       sync.Mutex
	lastCall time.Time
}

// Interface compliance check
var _ integration.LedgerGateway = (*Adapter)(nil)

// NewAdapter creates a ledger adapter with the given configuration
func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	cityCache, err := lru.New[string, *integration.City](config.CityCacheSize)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to create city cache: %w", err)
	}
	return &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		cityCache: cityCache,
	}, nil
}

// ---------------------------------------------------------------------------
// Contact Operations
// ---------------------------------------------------------------------------

// FindContactByIdentification fetches a counterparty by tax identification
func (a *Adapter) FindContactByIdentification(ctx context.Context, identification string) (*integration.Contact, error) {
	query := url.Values{}
	query.Set("identification", identification)

	var contacts []contactResource
	if err := a.doRequest(ctx, http.MethodGet, "/contacts", query, nil, &contacts); err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, fmt.Errorf("%w: identification %s", integration.ErrContactNotFound, identification)
	}
	return toDomainContact(&contacts[0]), nil
}

// CreateContact creates a counterparty and returns it with its assigned id
func (a *Adapter) CreateContact(ctx context.Context, contact *integration.Contact) (*integration.Contact, error) {
	var created contactResource
	if err := a.doRequest(ctx, http.MethodPost, "/contacts", nil, toWireContact(contact), &created); err != nil {
		return nil, err
	}
	return toDomainContact(&created), nil
}

// UpdateContact edits an existing counterparty
func (a *Adapter) UpdateContact(ctx context.Context, contact *integration.Contact) (*integration.Contact, error) {
	if contact.ID == "" {
		return nil, fmt.Errorf("%w: contact id is required for update", integration.ErrRequestFailed)
	}
	var updated contactResource
	path := "/contacts/" + url.PathEscape(contact.ID)
	if err := a.doRequest(ctx, http.MethodPut, path, nil, toWireContact(contact), &updated); err != nil {
		return nil, err
	}
	return toDomainContact(&updated), nil
}

// ---------------------------------------------------------------------------
// City Operations
// ---------------------------------------------------------------------------

// SearchCity finds a city by city or region name. Hits are cached per adapter
// instance so repeated reconciliations of the same region stay off the wire.
func (a *Adapter) SearchCity(ctx context.Context, name string) (*integration.City, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("%w: empty search term", integration.ErrCityNotFound)
	}
	if city, ok := a.cityCache.Get(key); ok {
		return city, nil
	}

	query := url.Values{}
	query.Set("search", name)

	var cities []cityResource
	if err := a.doRequest(ctx, http.MethodGet, "/cities", query, nil, &cities); err != nil {
		return nil, err
	}
	if len(cities) == 0 {
		return nil, fmt.Errorf("%w: %q", integration.ErrCityNotFound, name)
	}

	city := &integration.City{
		ID:     string(cities[0].ID),
		Name:   cities[0].Name,
		Region: cities[0].Region,
	}
	a.cityCache.Add(key, city)
	return city, nil
}

// ---------------------------------------------------------------------------
// Invoice Operations
// ---------------------------------------------------------------------------

// CreateInvoice submits an invoice draft. A timeout surfaces as ErrTimeout so
// the caller can reconcile via FindInvoiceByConcept instead of retrying.
func (a *Adapter) CreateInvoice(ctx context.Context, draft *integration.InvoiceDraft) (*integration.Invoice, error) {
	lines := make([]invoiceLineResource, 0, len(draft.Lines))
	for _, line := range draft.Lines {
		lines = append(lines, invoiceLineResource{
			Description: line.Description,
			Quantity:    line.Quantity,
			Price:       line.UnitPrice,
			Discount:    line.DiscountPercent,
			TaxRate:     line.VATRate,
		})
	}
	payload := invoiceCreateRequest{
		Concept:     draft.Concept,
		ContactID:   flexID(draft.ContactID),
		Date:        draft.Date.Format("2006-01-02"),
		PaymentTerm: draft.PaymentTerm.String(),
		Lines:       lines,
	}

	var created invoiceResource
	if err := a.doRequest(ctx, http.MethodPost, "/invoices", nil, payload, &created); err != nil {
		return nil, err
	}
	return toDomainInvoice(&created), nil
}

// GetInvoice fetches an invoice by its ledger id
func (a *Adapter) GetInvoice(ctx context.Context, invoiceID string) (*integration.Invoice, error) {
	var invoice invoiceResource
	path := "/invoices/" + url.PathEscape(invoiceID)
	err := a.doRequest(ctx, http.MethodGet, path, nil, nil, &invoice)
	if err != nil {
		if errors.Is(err, errStatusNotFound) {
			return nil, fmt.Errorf("%w: id %s", integration.ErrInvoiceNotFound, invoiceID)
		}
		return nil, err
	}
	return toDomainInvoice(&invoice), nil
}

// FindInvoiceByConcept looks an invoice up by its concept label
func (a *Adapter) FindInvoiceByConcept(ctx context.Context, concept string) (*integration.Invoice, error) {
	query := url.Values{}
	query.Set("concept", concept)

	var invoices []invoiceResource
	if err := a.doRequest(ctx, http.MethodGet, "/invoices", query, nil, &invoices); err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, fmt.Errorf("%w: concept %q", integration.ErrInvoiceNotFound, concept)
	}
	return toDomainInvoice(&invoices[0]), nil
}

// PostInvoice requests the invoice be accounted into the books
func (a *Adapter) PostInvoice(ctx context.Context, invoiceID string) error {
	path := "/invoices/" + url.PathEscape(invoiceID) + "/post"
	err := a.doRequest(ctx, http.MethodPost, path, nil, nil, nil)
	if errors.Is(err, errStatusNotFound) {
		return fmt.Errorf("%w: id %s", integration.ErrInvoiceNotFound, invoiceID)
	}
	return err
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// errStatusNotFound marks a 404 so call sites can map it to the right
// domain-level not-found error
var errStatusNotFound = errors.New("ledger: resource not found")

// reserve enforces the minimum interval between requests of this instance
func (a *Adapter) reserve(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	interval := time.Duration(a.config.MinRequestIntervalMillis) * time.Millisecond
	if interval > 0 && !a.lastCall.IsZero() {
		if wait := time.Until(a.lastCall.Add(interval)); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	a.lastCall = time.Now()
	return nil
}

// doRequest sends one API request and decodes the JSON response into out
func (a *Adapter) doRequest(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := a.reserve(ctx); err != nil {
		return err
	}

	endpoint := a.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ledger: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("ledger: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.APIToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %s %s: %v", integration.ErrTimeout, method, path, err)
		}
		return fmt.Errorf("%w: %s %s: %v", integration.ErrProviderUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("ledger: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s %s: status %d", integration.ErrAuthFailed, method, path, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", errStatusNotFound, method, path)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		var apiErr apiErrorBody
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%w: %s %s: status %d: %s",
				integration.ErrRequestFailed, method, path, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("%w: %s %s: status %d: %s",
			integration.ErrRequestFailed, method, path, resp.StatusCode, truncate(raw, 512))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", integration.ErrInvalidResponse, method, path, err)
	}
	return nil
}

// isTimeout reports whether the request failed because time ran out
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// ---------------------------------------------------------------------------
// Mapping
// ---------------------------------------------------------------------------

// roleToWire maps domain roles to the ledger's contact type labels
var roleToWire = map[integration.ContactRole]string{
	integration.RoleCustomer: "client",
	integration.RoleSupplier: "provider",
}

// wireToRole is the inverse of roleToWire
var wireToRole = map[string]integration.ContactRole{
	"client":   integration.RoleCustomer,
	"provider": integration.RoleSupplier,
}

func toWireContact(contact *integration.Contact) *contactResource {
	types := make([]string, 0, len(contact.Roles))
	for _, role := range contact.Roles {
		if wire, ok := roleToWire[role]; ok {
			types = append(types, wire)
		}
	}
	resource := &contactResource{
		ID:             flexID(contact.ID),
		Identification: contact.Identification,
		Name: contactName{
			FirstName:  contact.Name.FirstName,
			SecondName: contact.Name.SecondName,
			LastName:   contact.Name.Surname,
		},
		Type: types,
	}
	if contact.Address != nil {
		resource.Address = &contactAddress{
			Lines:  contact.Address.Lines,
			CityID: flexID(contact.Address.CityID),
		}
	}
	return resource
}

func toDomainContact(resource *contactResource) *integration.Contact {
	roles := make([]integration.ContactRole, 0, len(resource.Type))
	for _, wire := range resource.Type {
		if role, ok := wireToRole[wire]; ok {
			roles = append(roles, role)
		}
	}
	contact := &integration.Contact{
		ID:             string(resource.ID),
		Identification: resource.Identification,
		Name: integration.PersonName{
			FirstName:  resource.Name.FirstName,
			SecondName: resource.Name.SecondName,
			Surname:    resource.Name.LastName,
		},
		Roles: roles,
	}
	if resource.Address != nil {
		contact.Address = &integration.ContactAddress{
			Lines:  resource.Address.Lines,
			CityID: string(resource.Address.CityID),
		}
	}
	return contact
}

func toDomainInvoice(resource *invoiceResource) *integration.Invoice {
	return &integration.Invoice{
		ID:      string(resource.ID),
		Number:  resource.Number,
		Concept: resource.Concept,
		Posted:  strings.EqualFold(resource.Status, invoiceStatusPosted),
	}
}
