package router

import (
	"parking/internal/handlers/analytics"
	"parking/internal/handlers/auth"
	"parking/internal/handlers/booking"
	"parking/internal/handlers/lot"
	"parking/internal/handlers/payment"
	"parking/internal/handlers/slot"

	"github.com/go-chi/chi/v5"
)

type DomainHandlers struct {
	Auth      auth.Handler
	Lot       lot.Handler
	Slot      slot.Handler
	Booking   booking.Handler
	Payment   payment.Handler
	Analytics analytics.Handler
}

const versionPrefix = "/v1"

// routable is satisfied by every domain handler.
type routable interface {
	Router(r chi.Router)
}

type Router struct {
	DomainHandlers DomainHandlers
}

func New(domainHandlers DomainHandlers) Router {
	return Router{
		DomainHandlers: domainHandlers,
	}
}

// SetupRoutes mounts every domain under the version prefix. The permission table keys on the
// resulting patterns, so the prefix change has to be mirrored there.
func (r *Router) SetupRoutes(router chi.Router) {
	handlers := []routable{
		&r.DomainHandlers.Auth,
		&r.DomainHandlers.Lot,
		&r.DomainHandlers.Slot,
		&r.DomainHandlers.Booking,
		&r.DomainHandlers.Payment,
		&r.DomainHandlers.Analytics,
	}

	router.Route(versionPrefix, func(group chi.Router) {
		for _, handler := range handlers {
			handler.Router(group)
		}
	})
}
