// Package poi queries the proof-of-innocence aggregator for the compliance
// status of notes, keyed by blinded commitment identifier. The aggregator is
// an availability-best-effort collaborator: callers are expected to fall back
// to their cached statuses when a query fails.
package poi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/veil-network/veil-wallet/pkg/circuitbreaker"
)

const (
	statusPath     = "/v1/statuses"
	defaultTimeout = 15 * time.Second
)

// Status is the aggregator's verdict on one blinded commitment. Unrecognized
// verdicts map to StatusUnknown so a newer aggregator cannot poison the
// balance classifier.
type Status string

const (
	// StatusValid ...
	StatusValid Status = "valid"
	// StatusInvalid ...
	StatusInvalid Status = "invalid"
	// StatusPending ...
	StatusPending Status = "pending"
	// StatusMissing means the wallet still has to submit the proof.
	StatusMissing Status = "missing"
	// StatusMissingExternal means a third party has to submit the proof.
	StatusMissingExternal Status = "missing_external"
	// StatusUnknown ...
	StatusUnknown Status = "unknown"
)

var knownStatuses = map[Status]struct{}{
	StatusValid:           {},
	StatusInvalid:         {},
	StatusPending:         {},
	StatusMissing:         {},
	StatusMissingExternal: {},
	StatusUnknown:         {},
}

// QueryItem identifies one note to the aggregator.
type QueryItem struct {
	// BlindedCommitment is the 0x-prefixed hex blinded commitment id.
	BlindedCommitment string `json:"blindedCommitment"`
	// Kind is "shield" or "transact".
	Kind string `json:"kind"`
}

// Service fetches proof statuses in batch.
type Service interface {
	// Statuses returns the status of every queried blinded commitment.
	// Identifiers the aggregator does not answer for come back as
	// StatusUnknown.
	Statuses(ctx context.Context, items []QueryItem) (map[string]Status, error)
}

// ServiceOpts is the struct given to the NewService method.
type ServiceOpts struct {
	// Endpoint is the aggregator base url.
	Endpoint string
	// Timeout bounds one batch request, defaulting to 15s.
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

func (o ServiceOpts) validate() error {
	if len(o.Endpoint) <= 0 {
		return ErrNullEndpoint
	}
	u, err := url.Parse(o.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidEndpoint
	}
	return nil
}

type poiService struct {
	endpoint string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
}

// NewService returns a new Service from the given opts.
func NewService(opts ServiceOpts) (Service, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &poiService{
		endpoint: opts.Endpoint,
		client:   client,
		breaker:  circuitbreaker.NewCircuitBreaker("poi aggregator"),
	}, nil
}

type statusRequest struct {
	Commitments []QueryItem `json:"commitments"`
}

type statusResponse struct {
	Statuses map[string]Status `json:"statuses"`
}

func (s *poiService) Statuses(
	ctx context.Context, items []QueryItem,
) (map[string]Status, error) {
	if len(items) <= 0 {
		return nil, ErrEmptyQuery
	}

	body, err := json.Marshal(statusRequest{Commitments: items})
	if err != nil {
		return nil, err
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.post(ctx, body)
	})
	if err != nil {
		return nil, err
	}
	reply := result.(*statusResponse)

	statuses := make(map[string]Status, len(items))
	for _, item := range items {
		status, ok := reply.Statuses[item.BlindedCommitment]
		if !ok {
			status = StatusUnknown
		}
		if _, known := knownStatuses[status]; !known {
			status = StatusUnknown
		}
		statuses[item.BlindedCommitment] = status
	}
	return statuses, nil
}

func (s *poiService) post(ctx context.Context, body []byte) (*statusResponse, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.endpoint+statusPath, bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	reply := &statusResponse{}
	if err := json.NewDecoder(resp.Body).Decode(reply); err != nil {
		return nil, err
	}
	return reply, nil
}
