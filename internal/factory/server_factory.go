package factory

import (
	"github.com/mikey/listserv-triage/internal/adapters/httpapi"
	"github.com/mikey/listserv-triage/internal/adapters/smtpd"
	"github.com/mikey/listserv-triage/internal/config"
	"github.com/mikey/listserv-triage/internal/core"
	"github.com/mikey/listserv-triage/internal/ports"
	"github.com/mikey/listserv-triage/internal/whitelist"
	"go.uber.org/zap"
)

// ServerFactory creates the enabled ingestion transports
type ServerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewServerFactory creates a new server factory
func NewServerFactory(cfg *config.Config, logger *zap.Logger) *ServerFactory {
	return &ServerFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateServers builds one server per enabled transport.
func (f *ServerFactory) CreateServers(store core.EmailStore, ingest *core.IngestService) []ports.IngestServer {
	var servers []ports.IngestServer

	if f.cfg.GetBool("server.http_enabled") {
		servers = append(servers, httpapi.NewServer(
			store,
			ingest,
			f.cfg.GetString("server.listen_address"),
			f.cfg.GetString("server.webhook_secret"),
			f.logger,
		))
	}

	if f.cfg.GetBool("server.smtp_enabled") {
		smtpCfg := f.cfg.GetSMTP()
		allowlist := whitelist.NewChecker(f.cfg.GetStringSlice("listservs.allowed"), f.logger)
		servers = append(servers, smtpd.NewServer(
			ingest,
			allowlist,
			smtpCfg.ListenAddress,
			smtpCfg.Domain,
			f.logger,
		))
	}

	return servers
}
