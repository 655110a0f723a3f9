package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/duration"
)

// gatewayConf configures the clients for the membership-management API and
// the account-linker API.
type gatewayConf struct {
	Membership apiClientConf `yaml:"membership"`
	Linker     apiClientConf `yaml:"linker"`
}

type apiClientConf struct {
	URL     string                  `yaml:"url"`
	APIKey  string                  `yaml:"api_key"`
	Timeout duration.DurationOption `yaml:"timeout"`
}

func (c *gatewayConf) validate() error {
	if c.Membership.URL == "" {
		return errors.New("error in gateway conf: membership.url must be specified")
	}
	if c.Linker.URL == "" {
		return errors.New("error in gateway conf: linker.url must be specified")
	}
	return nil
}

var defaultGatewayConf = gatewayConf{
	Membership: apiClientConf{
		Timeout: duration.DurationOption(10 * time.Second),
	},
	Linker: apiClientConf{
		Timeout: duration.DurationOption(10 * time.Second),
	},
}
