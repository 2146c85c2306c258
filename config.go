package main

import (
	"flag"
	"net"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

const (
	modeCompare = "compare"
	modeSingle  = "single"
)

// CommandSet holds the templates issued to one service.
type CommandSet struct {
	Write string `toml:"write" json:"Write"`
	Read  string `toml:"read" json:"Read"`
	Set   string `toml:"set" json:"Set"`
	Get   string `toml:"get" json:"Get"`
}

// ServiceConfig describes one benchmarked endpoint.
type ServiceConfig struct {
	Name         string     `toml:"name" json:"Name"`
	Host         string     `toml:"host" json:"Host"`
	Port         int        `toml:"port" json:"Port"`
	Protocol     string     `toml:"protocol" json:"Protocol"`
	SeriesPrefix string     `toml:"series-prefix" json:"SeriesPrefix"`
	Commands     CommandSet `toml:"commands" json:"Commands"`
}

func (s ServiceConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SingleConfig drives the single endpoint SET/GET run.
type SingleConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Protocol string `toml:"protocol"`
	Requests int    `toml:"requests"`
}

func (s SingleConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type Config struct {
	ConfigFile  string `toml:"-"`
	ShowVersion bool   `toml:"-"`

	Mode      string        `toml:"mode"`
	Reference ServiceConfig `toml:"reference"`
	Subject   ServiceConfig `toml:"subject"`
	Single    SingleConfig  `toml:"single"`

	DataSizes      []int         `toml:"data-sizes"`
	ReadIterations int           `toml:"read-iterations"`
	KVMaxPairs     int           `toml:"kv-max-pairs"`
	ProbeTimeout   time.Duration `toml:"probe-timeout"`
	// IOTimeout of 0 leaves every socket operation blocking without deadline.
	IOTimeout   time.Duration `toml:"io-timeout"`
	ReadMode    string        `toml:"read-mode"`
	RPS         int64         `toml:"rps"`
	RPSBurst    int64         `toml:"rps-burst"`
	RandomSeed  int64         `toml:"random-seed"`
	JSONOutFile string        `toml:"json-out-file"`
	Debug       int           `toml:"debug"`
}

func DefaultConfig() Config {
	return Config{
		Mode: modeCompare,
		Reference: ServiceConfig{
			Name:         "Redis",
			Host:         "127.0.0.1",
			Port:         6379,
			Protocol:     protocolRESP,
			SeriesPrefix: "redis_test",
			Commands: CommandSet{
				Write: "ZADD __series__ __ts__ __value__",
				Read:  "ZRANGE __series__ 0 -1 WITHSCORES",
				Set:   "SET __key__ __data__",
				Get:   "GET __key__",
			},
		},
		// The subject command set is unconfirmed against the server documentation.
		Subject: ServiceConfig{
			Name:         "Zentropy",
			Host:         "127.0.0.1",
			Port:         6383,
			Protocol:     protocolLine,
			SeriesPrefix: "zt_test",
			Commands: CommandSet{
				Write: "ADD __series__ __ts__ __value__",
				Read:  "GET __series__",
				Set:   "SET __key__ __data__",
				Get:   "GET __key__",
			},
		},
		Single: SingleConfig{
			Host:     "127.0.0.1",
			Port:     6379,
			Protocol: protocolLine,
			Requests: 15000,
		},
		DataSizes:      []int{100, 1000, 5000, 20000},
		ReadIterations: 10,
		KVMaxPairs:     100,
		ProbeTimeout:   2 * time.Second,
		ReadMode:       readModeSingle,
	}
}

func bindServiceFlags(fs *flag.FlagSet, prefix string, svc *ServiceConfig) {
	fs.StringVar(&svc.Name, prefix+"-name", svc.Name, "Display name of the "+prefix+" service.")
	fs.IntVar(&svc.Port, prefix+"-port", svc.Port, "Port of the "+prefix+" service.")
	fs.StringVar(&svc.Protocol, prefix+"-protocol", svc.Protocol, "Wire protocol of the "+prefix+" service (resp or line).")
	fs.StringVar(&svc.SeriesPrefix, prefix+"-series-prefix", svc.SeriesPrefix, "Prefix of the series names written to the "+prefix+" service.")
	fs.StringVar(&svc.Commands.Write, prefix+"-write", svc.Commands.Write, "Write command template. Placeholders: __series__ __ts__ __value__.")
	fs.StringVar(&svc.Commands.Read, prefix+"-read", svc.Commands.Read, "Read command template. Placeholders: __series__.")
	fs.StringVar(&svc.Commands.Set, prefix+"-set", svc.Commands.Set, "SET command template. Placeholders: __key__ __data__.")
	fs.StringVar(&svc.Commands.Get, prefix+"-get", svc.Commands.Get, "GET command template. Placeholders: __key__.")
}

func newFlagSet(name string, cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "TOML config file. Explicit flags take precedence over its values.")
	fs.BoolVar(&cfg.ShowVersion, "v", cfg.ShowVersion, "Output version and exit")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Run mode: compare (both services, all categories) or single (SET/GET loop on one port).")
	fs.Var(&hostFlag{cfg: cfg}, "h", "Server hostname for every service.")
	bindServiceFlags(fs, "reference", &cfg.Reference)
	bindServiceFlags(fs, "subject", &cfg.Subject)
	fs.Var(&sizeListFlag{dst: &cfg.DataSizes}, "size", "Data size in records. Repeat or comma separate for several sizes.")
	fs.IntVar(&cfg.ReadIterations, "read-iterations", cfg.ReadIterations, "Timed read commands per read benchmark.")
	fs.IntVar(&cfg.KVMaxPairs, "kv-max", cfg.KVMaxPairs, "Upper bound of SET/GET pairs per key-value benchmark.")
	fs.DurationVar(&cfg.ProbeTimeout, "probe-timeout", cfg.ProbeTimeout, "Connect timeout of the availability probe.")
	fs.DurationVar(&cfg.IOTimeout, "io-timeout", cfg.IOTimeout, "Per round trip deadline. If 0 operations block indefinitely.")
	fs.StringVar(&cfg.ReadMode, "read-mode", cfg.ReadMode, "Reply read model: single (one 4096 byte read) or framed (length-aware, changes measured latency).")
	fs.Int64Var(&cfg.RPS, "rps", cfg.RPS, "Max rps. If 0 no limit is applied.")
	fs.Int64Var(&cfg.RPSBurst, "rps-burst", cfg.RPSBurst, "Max rps burst. If 0 the allowed burst equals -rps.")
	fs.Int64Var(&cfg.RandomSeed, "random-seed", cfg.RandomSeed, "Random seed for generated values. If 0 a time based seed is used.")
	fs.StringVar(&cfg.JSONOutFile, "json-out-file", cfg.JSONOutFile, "Results file. If empty will not save.")
	fs.IntVar(&cfg.Single.Port, "p", cfg.Single.Port, "Server port for -mode single.")
	fs.StringVar(&cfg.Single.Protocol, "protocol", cfg.Single.Protocol, "Wire protocol for -mode single (resp or line).")
	fs.IntVar(&cfg.Single.Requests, "n", cfg.Single.Requests, "Requests per phase for -mode single.")
	fs.IntVar(&cfg.Debug, "debug", cfg.Debug, "Client debug level.")
	return fs
}

// parseConfig layers defaults, the optional TOML file and explicit flags, in
// that order of increasing precedence.
func parseConfig(name string, args []string) (Config, error) {
	cfg := DefaultConfig()
	fs := newFlagSet(name, &cfg)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.ConfigFile != "" {
		fileCfg := DefaultConfig()
		if _, err := toml.DecodeFile(cfg.ConfigFile, &fileCfg); err != nil {
			return cfg, errors.Wrapf(err, "load config file %s", cfg.ConfigFile)
		}
		overlay := newFlagSet(name, &fileCfg)
		var setErr error
		fs.Visit(func(f *flag.Flag) {
			if setErr == nil {
				setErr = overlay.Set(f.Name, f.Value.String())
			}
		})
		if setErr != nil {
			return cfg, setErr
		}
		cfg = fileCfg
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Mode {
	case modeCompare, modeSingle:
	default:
		return errors.Errorf("unknown mode %q", c.Mode)
	}
	switch c.ReadMode {
	case readModeSingle, readModeFramed:
	default:
		return errors.Errorf("unknown read mode %q", c.ReadMode)
	}
	for _, p := range []string{c.Reference.Protocol, c.Subject.Protocol, c.Single.Protocol} {
		if _, err := encoderFor(p); err != nil {
			return err
		}
	}
	if len(c.DataSizes) == 0 {
		return errors.New("at least one data size is required")
	}
	for _, n := range c.DataSizes {
		if n <= 0 {
			return errors.Errorf("data size must be positive, got %d", n)
		}
	}
	if c.ReadIterations <= 0 {
		return errors.Errorf("read iterations must be positive, got %d", c.ReadIterations)
	}
	if c.KVMaxPairs < 0 {
		return errors.Errorf("kv max pairs must not be negative, got %d", c.KVMaxPairs)
	}
	if c.Single.Requests <= 0 {
		return errors.Errorf("requests must be positive, got %d", c.Single.Requests)
	}
	if c.ProbeTimeout <= 0 {
		return errors.Errorf("probe timeout must be positive, got %v", c.ProbeTimeout)
	}
	if c.IOTimeout < 0 {
		return errors.Errorf("io timeout must not be negative, got %v", c.IOTimeout)
	}
	if c.RPS < 0 || c.RPSBurst < 0 {
		return errors.New("rps and rps burst must not be negative")
	}
	return nil
}
