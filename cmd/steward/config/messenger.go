package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/duration"
)

// messengerConf configures the chat-platform REST client used for channel
// messages and DMs.
type messengerConf struct {
	URL     string                  `yaml:"url"`
	Token   string                  `yaml:"token"`
	Timeout duration.DurationOption `yaml:"timeout"`
}

func (c *messengerConf) validate() error {
	if c.URL == "" {
		return errors.New("error in messenger conf: url must be specified")
	}
	if c.Token == "" {
		return errors.New("error in messenger conf: token must be specified")
	}
	return nil
}

var defaultMessengerConf = messengerConf{
	Timeout: duration.DurationOption(15 * time.Second),
}
