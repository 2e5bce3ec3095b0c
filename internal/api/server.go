package api

import (
	"cryptopay/internal/config"
	"cryptopay/internal/gateway"
	"cryptopay/internal/store"
	"cryptopay/internal/webhooks"
)

type Server struct {
	Store    store.Store
	Client   *gateway.Client
	Pub      *webhooks.Publisher
	Broker   EventBroker
	Cfg      *config.Config
	limiters *ipLimiters
}

func NewServer(cfg *config.Config, st store.Store, client *gateway.Client, broker EventBroker) *Server {
	if broker == nil {
		broker = NewBroker()
	}
	return &Server{
		Store:    st,
		Client:   client,
		Pub:      webhooks.NewPublisher(st, cfg.Notifications.URL, cfg.Notifications.Secret),
		Broker:   broker,
		Cfg:      cfg,
		limiters: newIPLimiters(cfg.CallbackRatePerSec, cfg.CallbackBurst),
	}
}

// NewNotificationWorker creates the background worker for merchant
// notification deliveries.
func (s *Server) NewNotificationWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store, s.Cfg.Notifications.MaxAttempts)
}
