package steward

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/commkit/steward/api/staffapi"
	"github.com/commkit/steward/internal/cache"
	"github.com/commkit/steward/internal/gateway"
	"github.com/commkit/steward/internal/messenger"
	"github.com/commkit/steward/storage/model"
)

// DelegationConf configures the privilege delegation workflow.
type DelegationConf struct {
	// GrantTTL is how long a granted privilege lasts before the expiry
	// scanner revokes it.
	GrantTTL time.Duration `yaml:"-"`
	// ScanInterval is how often the expiry scanner runs.
	ScanInterval time.Duration `yaml:"-"`
}

// TicketConf configures the staff request workflow.
type TicketConf struct {
	// RemindCadence is the minimum time between reminder rounds per ticket.
	RemindCadence time.Duration `yaml:"-"`
	// ScanInterval is how often the reminder and due-date scanners run.
	ScanInterval time.Duration `yaml:"-"`
}

// Config bundles everything a Steward needs beyond its collaborators.
type Config struct {
	Server     ServerConf
	Delegation DelegationConf
	Tickets    TicketConf
}

// PrivilegeGateway is the membership-management capability the delegation
// workflow depends on. Implemented by gateway.MembershipClient.
type PrivilegeGateway interface {
	ListSites(ctx context.Context) ([]gateway.Site, error)
	GetUser(ctx context.Context, accountID int64) (*gateway.Account, error)
	ChangePrivilege(ctx context.Context, siteID, accountID int64, action string) error
}

// AccountLinker resolves chat-platform users to their linked wiki accounts.
// Implemented by gateway.LinkerClient.
type AccountLinker interface {
	AccountList(ctx context.Context, subjectIDs []string) (map[string][]gateway.LinkedAccount, error)
}

// Steward is the community staff-workflow service: it serves the interaction
// endpoints, runs the periodic scanners, and mounts the staff API.
type Steward struct {
	server *fiber.App
	conf   Config

	stores     model.Backends
	membership PrivilegeGateway
	linker     AccountLinker
	msgr       messenger.Messenger
	lookups    cache.Cache

	cron *cron.Cron
}

// FiberServerConfig is the fiber.Config that is used to init the http fiber.App
var FiberServerConfig = fiber.Config{
	ReadTimeout:    3 * time.Second,
	WriteTimeout:   20 * time.Second,
	IdleTimeout:    150 * time.Second,
	ReadBufferSize: 8192,
	ErrorHandler:   handleError,
	Network:        "tcp",
}

// ErrorResponse is the JSON error body returned by all endpoints.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func handleError(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	name := "server_error"
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		name = "request_error"
	}
	switch err.(type) {
	case model.NotFoundError:
		code = fiber.StatusNotFound
		name = "not_found"
	case model.AlreadyExistsError:
		code = fiber.StatusConflict
		name = "already_exists"
	case model.InvalidTransitionError:
		code = fiber.StatusConflict
		name = "invalid_transition"
	}
	return ctx.Status(code).JSON(ErrorResponse{Error: name, Description: err.Error()})
}

// NewSteward creates a new Steward
func NewSteward(
	conf Config,
	stores model.Backends,
	membership PrivilegeGateway,
	linker AccountLinker,
	msgr messenger.Messenger,
	lookups cache.Cache,
) (*Steward, error) {
	if conf.Delegation.GrantTTL <= 0 {
		conf.Delegation.GrantTTL = time.Hour
	}
	if conf.Delegation.ScanInterval <= 0 {
		conf.Delegation.ScanInterval = time.Minute
	}
	if conf.Tickets.RemindCadence <= 0 {
		conf.Tickets.RemindCadence = 48 * time.Hour
	}
	if conf.Tickets.ScanInterval <= 0 {
		conf.Tickets.ScanInterval = time.Hour
	}
	if lookups == nil {
		lookups = cache.NewMemoryCache()
	}

	if tps := conf.Server.TrustedProxies; len(tps) > 0 {
		FiberServerConfig.TrustedProxies = tps
		FiberServerConfig.EnableTrustedProxyCheck = true
	}
	FiberServerConfig.ProxyHeader = conf.Server.ForwardedIPHeader
	server := fiber.New(FiberServerConfig)
	server.Use(recover.New())
	server.Use(compress.New())
	server.Use(logger.New())
	server.Use(requestid.New())

	s := &Steward{
		server:     server,
		conf:       conf,
		stores:     stores,
		membership: membership,
		linker:     linker,
		msgr:       msgr,
		lookups:    lookups,
	}

	s.addDelegationEndpoints(server.Group("/interactions/delegation"))
	s.addTicketEndpoints(server.Group("/interactions/tickets"))
	staffapi.Register(server.Group("/api/v1/staff"), stores, s)

	s.cron = cron.New(
		cron.WithChain(
			cron.SkipIfStillRunning(cron.PrintfLogger(log.StandardLogger())),
		),
	)
	if _, err := s.cron.AddFunc(
		fmt.Sprintf("@every %s", conf.Delegation.ScanInterval),
		func() { s.runExpiryScan() },
	); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(
		fmt.Sprintf("@every %s", conf.Tickets.ScanInterval),
		func() { s.runReminderScan() },
	); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(
		fmt.Sprintf("@every %s", conf.Tickets.ScanInterval),
		func() { s.runDueDateScan() },
	); err != nil {
		return nil, err
	}
	return s, nil
}

// Listen starts an http server at the specific address for serving all the
// necessary endpoints
func (s *Steward) Listen(addr string) error {
	return s.server.Listen(addr)
}

// Start runs the scanners and serves until the process exits.
func (s *Steward) Start() {
	s.cron.Start()
	log.Info("Started scanners")

	conf := s.conf.Server
	if !conf.TLS.Enabled {
		log.WithField("port", conf.Port).Info("TLS is disabled starting http server")
		log.WithError(s.server.Listen(fmt.Sprintf("%s:%d", conf.IPListen, conf.Port))).Fatal()
	}
	// TLS enabled
	if conf.TLS.RedirectHTTP {
		httpServer := fiber.New(FiberServerConfig)
		httpServer.All(
			"*", func(ctx *fiber.Ctx) error {
				//goland:noinspection HttpUrlsUsage
				return ctx.Redirect(
					strings.Replace(ctx.Request().URI().String(), "http://", "https://", 1),
					fiber.StatusPermanentRedirect,
				)
			},
		)
		log.Info("TLS and http redirect enabled, starting redirect server on port 80")
		go func() {
			log.WithError(httpServer.Listen(":80")).Fatal()
		}()
	}
	log.Info("TLS enabled, starting https server on port 443")
	log.WithError(s.server.ListenTLS(":443", conf.TLS.Cert, conf.TLS.Key)).Fatal()
}

// Stop stops the scanners and shuts the server down.
func (s *Steward) Stop() error {
	<-s.cron.Stop().Done()
	return s.server.Shutdown()
}
