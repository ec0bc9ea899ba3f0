package marketdata

import (
	"github.com/openmarkets/market-hub/internal/domain"
)

// routingTable maps each exchange to the providers that declare capability
// for it, in registration order. Registration order is the priority order:
// the first-registered provider for an exchange is tried first.
//
// The table is immutable after build; the Manager swaps in a fresh one under
// its lock on every registration.
type routingTable struct {
	order      []Provider
	byExchange map[domain.Exchange][]Provider
	bySource   map[domain.DataSource]Provider
}

// buildRoutingTable scans every provider's capabilities once. O(providers x
// capabilities), expected to run only at registration time.
func buildRoutingTable(order []Provider) *routingTable {
	t := &routingTable{
		order:      order,
		byExchange: make(map[domain.Exchange][]Provider),
		bySource:   make(map[domain.DataSource]Provider, len(order)),
	}

	for _, p := range order {
		t.bySource[p.Source()] = p

		seen := make(map[domain.Exchange]struct{})
		for _, capability := range p.Capabilities() {
			for _, exchange := range capability.Exchanges {
				// A provider may declare the same exchange under several
				// capabilities; register it once.
				if _, dup := seen[exchange]; dup {
					continue
				}
				seen[exchange] = struct{}{}
				t.byExchange[exchange] = append(t.byExchange[exchange], p)
			}
		}
	}

	return t
}

// providersFor returns the ordered provider list for an exchange. The slice
// is shared; callers must not mutate it.
func (t *routingTable) providersFor(exchange domain.Exchange) []Provider {
	return t.byExchange[exchange]
}

// fallbacksFor returns the exchange's provider list minus the primary,
// preserving order.
func (t *routingTable) fallbacksFor(exchange domain.Exchange, primary Provider) []Provider {
	all := t.byExchange[exchange]
	fallbacks := make([]Provider, 0, len(all))
	for _, p := range all {
		if p.Source() == primary.Source() {
			continue
		}
		fallbacks = append(fallbacks, p)
	}
	return fallbacks
}

func (t *routingTable) sources() []domain.DataSource {
	sources := make([]domain.DataSource, 0, len(t.order))
	for _, p := range t.order {
		sources = append(sources, p.Source())
	}
	return sources
}
