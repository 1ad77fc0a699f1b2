package resolver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout  = 30
	defaultPageSize = 100
	maxResponseSize = 20 * 1024 * 1024
)

// FEC - campaign-finance registry API source. Every Fetch issues exactly one HTTP request.
type FEC struct {
	client   *resty.Client
	apiKey   string
	pageSize int
	limiter  *rate.Limiter
}

// FECOption -
type FECOption func(*FEC)

// WithTimeoutFEC -
func WithTimeoutFEC(timeout uint64) FECOption {
	return func(f *FEC) {
		if timeout != 0 {
			f.client.SetTimeout(time.Duration(timeout) * time.Second)
		}
	}
}

// WithRateLimitFEC - maximum requests per second
func WithRateLimitFEC(rps float64) FECOption {
	return func(f *FEC) {
		if rps > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithPageSizeFEC -
func WithPageSizeFEC(size int) FECOption {
	return func(f *FEC) {
		if size > 0 {
			f.pageSize = size
		}
	}
}

// NewFEC -
func NewFEC(baseURL, apiKey string, opts ...FECOption) *FEC {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(time.Duration(defaultTimeout)*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "acquire/1.0")

	f := &FEC{
		client:   client,
		apiKey:   apiKey,
		pageSize: defaultPageSize,
		limiter:  rate.NewLimiter(rate.Limit(10), 1),
	}

	for i := range opts {
		opts[i](f)
	}

	return f
}

// Fetch -
func (f *FEC) Fetch(ctx context.Context, req Request) ([]byte, error) {
	path, params, err := f.route(req)
	if err != nil {
		return nil, err
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newError(0, ErrorTypeRequest, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, newError(resp.StatusCode(), ErrorTypeStatus, errors.Errorf("invalid status: %s", resp.Status()))
	}

	body := resp.Body()
	if len(body) > maxResponseSize {
		return nil, newError(0, ErrorTypeInvalidJSON, errors.Errorf("response is too big: %d bytes", len(body)))
	}
	return body, nil
}

func (f *FEC) route(req Request) (string, map[string]string, error) {
	params := map[string]string{
		"api_key":  f.apiKey,
		"per_page": strconv.Itoa(f.pageSize),
	}

	switch req.Kind {
	case KindLookup:
		params["q"] = req.Query
		if req.Filter != "" {
			params["state"] = req.Filter
		}
		params["sort"] = "-first_file_date"
		return "/candidates/search/", params, nil

	case KindTotals:
		if req.Key == "" {
			return "", nil, newError(0, ErrorTypeMissingField, errors.New("candidate id"))
		}
		params["cycle"] = strconv.Itoa(req.Period)
		return fmt.Sprintf("/candidate/%s/totals/", req.Key), params, nil

	case KindFilings:
		if req.Key == "" {
			return "", nil, newError(0, ErrorTypeMissingField, errors.New("committee id"))
		}
		params["cycle"] = strconv.Itoa(req.Period)
		params["sort"] = "-receipt_date"
		return fmt.Sprintf("/committee/%s/reports/", req.Key), params, nil

	default:
		return "", nil, newError(0, ErrorTypeUnknownKind, errors.Errorf("kind %q", req.Kind))
	}
}
