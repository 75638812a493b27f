package useCases

import (
	"log/slog"

	"github.com/larriantoniy/tg_webapp_api/internal/credentials"
	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"github.com/larriantoniy/tg_webapp_api/internal/ports"
	"github.com/larriantoniy/tg_webapp_api/internal/webview"
)

// Request: разобранное тело HTTP-запроса
type Request struct {
	Ref   domain.StorageRef
	Proxy string
	// APIJSON: сырой apiJson; nil, если клиент прислал null
	APIJSON   []byte
	Service   string
	Referral  *string
	Platform  string
	IsUpload  bool
	OtherInfo bool
	Channels  []string
	Bot       string
}

type Service struct {
	runner     *Runner
	normalizer *credentials.Normalizer
	registry   *webview.Registry
	gateway    *webview.Gateway
	legacy     ports.LegacyStore
	usernames  *UsernameGenerator
	log        *slog.Logger
}

func NewService(
	runner *Runner,
	normalizer *credentials.Normalizer,
	registry *webview.Registry,
	gateway *webview.Gateway,
	legacy ports.LegacyStore,
	log *slog.Logger,
) *Service {
	return &Service{
		runner:     runner,
		normalizer: normalizer,
		registry:   registry,
		gateway:    gateway,
		legacy:     legacy,
		usernames:  NewUsernameGenerator(),
		log:        log,
	}
}

// job разбирает прокси и apiJson. Для legacy-контейнера apiJson игнорируется:
// креды берутся из самого контейнера.
func (s *Service) job(req Request) (Job, error) {
	proxy, err := domain.ParseProxy(req.Proxy)
	if err != nil {
		return Job{}, err
	}

	job := Job{Ref: req.Ref, Proxy: proxy}
	if req.Ref.Kind == domain.StorageLegacy || req.APIJSON == nil {
		return job, nil
	}

	creds, err := s.normalizer.Normalize(req.APIJSON)
	if err != nil {
		return Job{}, err
	}
	job.Credentials = &creds
	return job, nil
}
