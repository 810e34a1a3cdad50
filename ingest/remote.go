package ingest

import (
	"context"
	"fmt"
)

// Capability tells whether a fetcher could produce data.
type Capability int

const (
	// CapabilityAvailable means the fetch produced data.
	CapabilityAvailable Capability = iota
	// CapabilityUnavailable is a normal outcome, for example when the
	// provider's client library is not installed. Reason explains it.
	CapabilityUnavailable
)

func (c Capability) String() string {
	switch c {
	case CapabilityAvailable:
		return "available"
	case CapabilityUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

// FetchResult is what a remote-fetch collaborator returns.
type FetchResult struct {
	Capability Capability
	Reason     string
	Data       []byte
	URI        string
	// Checksum is the provider's own checksum of Data, carried verbatim.
	Checksum string
	Provider map[string]string
}

// Fetcher retrieves raw bytes from a remote archive. Retries and fallbacks
// are the fetcher's business.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (*FetchResult, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, uri string) (*FetchResult, error)

func (f FetcherFunc) Fetch(ctx context.Context, uri string) (*FetchResult, error) { return f(ctx, uri) }

func checkFetch(provider string, res *FetchResult) error {
	fail := func(field, reason string) error {
		return &ContractError{Format: provider, Field: field, Reason: reason}
	}
	switch {
	case res == nil:
		return fail("result", "fetcher returned no result")
	case res.Capability == CapabilityUnavailable:
		if res.Reason == "" {
			return fail("reason", "unavailable without a reason")
		}
		return nil
	case res.Capability != CapabilityAvailable:
		return fail("capability", res.Capability.String())
	case len(res.Data) == 0:
		return fail("data", "empty")
	case res.URI == "":
		return fail("uri", "missing")
	}
	return nil
}
