package config

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/zachmann/go-utils/fileutils"
	"gopkg.in/yaml.v3"

	"github.com/commkit/steward"
)

// Config holds the configuration of the steward service.
type Config struct {
	Server     steward.ServerConf `yaml:"server"`
	Logging    loggingConf        `yaml:"logging"`
	Storage    storageConf        `yaml:"storage"`
	Gateway    gatewayConf        `yaml:"gateway"`
	Messenger  messengerConf      `yaml:"messenger"`
	Caching    cachingConf        `yaml:"caching"`
	Delegation delegationConf     `yaml:"delegation"`
	Tickets    ticketsConf        `yaml:"tickets"`
}

var conf *Config

// Get returns the loaded Config.
func Get() *Config {
	return conf
}

var possibleConfigLocations = []string{
	".",
	"config",
	"/config",
	"/steward/config",
	"/steward",
	"/data/config",
	"/data",
	"/etc/steward",
}

func checkAllPossibleLocations(name string) string {
	for _, dir := range possibleConfigLocations {
		filep := dir + "/" + name
		if fileutils.FileExists(filep) {
			return filep
		}
	}
	return ""
}

// Load loads the config from the passed file; if file is empty a
// config.yaml is searched at the known locations.
func Load(file string) {
	if file == "" {
		file = checkAllPossibleLocations("config.yaml")
		if file == "" {
			log.Fatal("could not find config file at any of the possible locations")
		}
	}
	content, err := os.ReadFile(file)
	if err != nil {
		log.WithError(err).Fatal("could not read config file")
	}
	conf = &Config{
		Server: steward.ServerConf{
			Port: 8765,
		},
		Storage:    defaultStorageConf,
		Gateway:    defaultGatewayConf,
		Messenger:  defaultMessengerConf,
		Delegation: defaultDelegationConf,
		Tickets:    defaultTicketsConf,
	}
	if err = yaml.Unmarshal(content, conf); err != nil {
		log.WithError(err).Fatal("could not parse config file")
	}
	for _, v := range []interface{ validate() error }{
		&conf.Logging,
		&conf.Storage,
		&conf.Gateway,
		&conf.Messenger,
		&conf.Delegation,
		&conf.Tickets,
	} {
		if err = v.validate(); err != nil {
			log.WithError(err).Fatal("invalid config")
		}
	}
}
