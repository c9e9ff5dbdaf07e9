package model

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"chat-client/internal/utils/functional"
	"chat-client/internal/utils/platformerrors"
)

// Info is one catalog entry.
type Info struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	OwnedBy     string `json:"owned_by"`
}

// Lister is the slice of the backend the catalog needs.
type Lister interface {
	ListModels(ctx context.Context) ([]Info, error)
}

// Catalog caches the available models. Refreshes cancel any previous
// in-flight fetch, so a burst of refresh triggers settles on the newest
// result; a failed or aborted refresh keeps the last good catalog.
type Catalog struct {
	lister       Lister
	defaultModel string
	log          zerolog.Logger

	mu          sync.Mutex
	models      []Info
	fetched     bool
	fetchCancel context.CancelFunc
}

func NewCatalog(lister Lister, defaultModel string, log zerolog.Logger) *Catalog {
	return &Catalog{
		lister:       lister,
		defaultModel: defaultModel,
		log:          log.With().Str("component", "model_catalog").Logger(),
	}
}

// Refresh fetches the catalog, superseding any refresh still in flight.
func (c *Catalog) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.fetchCancel != nil {
		c.fetchCancel()
	}
	c.fetchCancel = cancel
	c.mu.Unlock()
	defer cancel()

	models, err := c.lister.ListModels(ctx)
	if err != nil {
		if platformerrors.IsAborted(err) {
			return nil
		}
		c.log.Warn().Err(err).Msg("model catalog refresh failed")
		return err
	}

	c.mu.Lock()
	c.models = models
	c.fetched = true
	c.mu.Unlock()
	return nil
}

// Models returns the cached catalog.
func (c *Catalog) Models() []Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Info(nil), c.models...)
}

// Fetched reports whether at least one refresh succeeded.
func (c *Catalog) Fetched() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetched
}

// Get looks a model up by id.
func (c *Catalog) Get(id string) (Info, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return functional.Find(c.models, func(m Info) bool { return m.ID == id })
}

// Resolve maps a requested model id onto something usable: the request if
// known, otherwise the configured default. Before the first successful
// refresh every id passes through untouched.
func (c *Catalog) Resolve(requested string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if requested == "" {
		return c.defaultModel
	}
	if !c.fetched {
		return requested
	}
	if functional.Any(c.models, func(m Info) bool { return m.ID == requested }) {
		return requested
	}
	c.log.Debug().Str("requested", requested).Str("fallback", c.defaultModel).Msg("unknown model requested")
	return c.defaultModel
}
