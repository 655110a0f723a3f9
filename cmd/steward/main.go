package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/commkit/steward"
	"github.com/commkit/steward/cmd/steward/config"
	"github.com/commkit/steward/internal/cache"
	"github.com/commkit/steward/internal/gateway"
	"github.com/commkit/steward/internal/logger"
	"github.com/commkit/steward/internal/messenger"
	"github.com/commkit/steward/internal/version"
)

func main() {
	var configFile string
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}
	config.Load(configFile)
	c := config.Get()
	logger.Init(c.Logging.Conf)
	log.WithField("version", version.VERSION).Info("Loaded Config")

	var lookups cache.Cache
	if redisAddr := c.Caching.RedisAddr; redisAddr != "" && !c.Caching.Disabled {
		redisCache, err := cache.NewRedisCache(redisAddr)
		if err != nil {
			log.WithError(err).Fatal("could not init redis cache")
		}
		lookups = redisCache
		log.Info("Loaded Redis Cache")
	}

	backs, err := config.LoadStorageBackends(c.Storage)
	if err != nil {
		log.Fatal(err)
	}

	membership := gateway.NewMembershipClient(
		c.Gateway.Membership.URL, c.Gateway.Membership.APIKey,
		c.Gateway.Membership.Timeout.Duration(),
	)
	linker := gateway.NewLinkerClient(
		c.Gateway.Linker.URL, c.Gateway.Linker.APIKey,
		c.Gateway.Linker.Timeout.Duration(),
	)
	msgr := messenger.New(
		c.Messenger.URL, c.Messenger.Token, c.Messenger.Timeout.Duration(),
	)

	st, err := steward.NewSteward(
		steward.Config{
			Server: c.Server,
			Delegation: steward.DelegationConf{
				GrantTTL:     c.Delegation.GrantTTL.Duration(),
				ScanInterval: c.Delegation.ScanInterval.Duration(),
			},
			Tickets: steward.TicketConf{
				RemindCadence: c.Tickets.RemindCadence.Duration(),
				ScanInterval:  c.Tickets.ScanInterval.Duration(),
			},
		},
		backs, membership, linker, msgr, lookups,
	)
	if err != nil {
		log.Fatal(err)
	}
	log.Println("Initialized Steward")

	st.Start()
}
