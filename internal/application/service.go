package application

import (
	"time"

	"github.com/playnatela/volante-express/internal/domain"
	"github.com/playnatela/volante-express/internal/ports"
)

type Service struct {
	cfg      Config
	repos    ports.Repositories
	tx       ports.TxRunner
	cache    ports.Cache
	evidence ports.EvidenceStore
	location *time.Location
	nowFn    func() time.Time
}

type Dependencies struct {
	Config       Config
	Repositories ports.Repositories
	Tx           ports.TxRunner
	Cache        ports.Cache
	Evidence     ports.EvidenceStore
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "volante-express"
	}
	if cfg.LocalOffset == "" {
		cfg.LocalOffset = domain.DefaultLocalOffset
	}
	if cfg.CommissionBase == "" {
		cfg.CommissionBase = domain.CommissionBaseNet
	}
	if cfg.WebhookReplayTTL <= 0 {
		cfg.WebhookReplayTTL = 10 * time.Minute
	}
	if cfg.RateCacheTTL <= 0 {
		cfg.RateCacheTTL = 5 * time.Minute
	}
	loc, err := domain.LocalZone(cfg.LocalOffset)
	if err != nil {
		cfg.LocalOffset = domain.DefaultLocalOffset
		loc, _ = domain.LocalZone(cfg.LocalOffset)
	}

	return &Service{
		cfg:      cfg,
		repos:    deps.Repositories,
		tx:       deps.Tx,
		cache:    deps.Cache,
		evidence: deps.Evidence,
		location: loc,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// Location is the business time zone used for rendering and day boundaries.
func (s *Service) Location() *time.Location {
	return s.location
}
