package config

type cachingConf struct {
	RedisAddr string `yaml:"redis_addr"`
	Disabled  bool   `yaml:"disabled"`
}
