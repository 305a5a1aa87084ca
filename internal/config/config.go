package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cricklet/chessforge/internal/engine"
	. "github.com/cricklet/chessforge/internal/helpers"
	"github.com/cricklet/chessforge/internal/uci"
	"gopkg.in/yaml.v3"
)

type EngineConfig struct {
	Path    string   `yaml:"path"`
	Args    []string `yaml:"args"`
	Threads int      `yaml:"threads"`
	HashMB  int      `yaml:"hash"`

	// SkillLevel is the engine strength used when a game doesn't pick one.
	SkillLevel int `yaml:"skill"`

	// Exactly one of these bounds a search: depth wins when it is set.
	Depth    int           `yaml:"depth"`
	MoveTime time.Duration `yaml:"movetime"`

	InitTimeout   time.Duration `yaml:"initTimeout"`
	SearchTimeout time.Duration `yaml:"searchTimeout"`
}

type ServerConfig struct {
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static"`
}

type Config struct {
	Engine  EngineConfig `yaml:"engine"`
	Server  ServerConfig `yaml:"server"`
	Verbose bool         `yaml:"verbose"`
}

func Default() Config {
	return Config{
		Engine: EngineConfig{
			Path:          "stockfish",
			Threads:       1,
			HashMB:        16,
			SkillLevel:    6,
			MoveTime:      time.Second,
			InitTimeout:   10 * time.Second,
			SearchTimeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Port:      8002,
			StaticDir: RootDir() + "/static",
		},
	}
}

// Load reads a YAML file over the defaults. Fields missing from the file keep
// their default values.
func Load(path string) (Config, Error) {
	config := Default()

	bytes, err := os.ReadFile(path)
	if err != nil {
		return config, Errorf("config %v: %w", path, err)
	}

	err = yaml.Unmarshal(bytes, &config)
	if err != nil {
		return config, Errorf("config %v: %w", path, err)
	}

	return config, config.Validate()
}

func parseInt(key string, value string) (int, Error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, Errorf("%v=%v: %w", key, value, err)
	}
	return n, NilError
}

func parseDuration(key string, value string) (time.Duration, Error) {
	// bare numbers are milliseconds, like go movetime
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond, NilError
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, Errorf("%v=%v: %w", key, value, err)
	}
	return d, NilError
}

// ApplyArgs applies command line overrides of the form key=value. A bare
// number is the server port. Arguments without '=' that aren't numbers are
// returned for the caller.
func (c *Config) ApplyArgs(args []string) ([]string, Error) {
	remaining := []string{}

	for _, arg := range args {
		if port, err := strconv.Atoi(arg); err == nil {
			c.Server.Port = port
			continue
		}

		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			remaining = append(remaining, arg)
			continue
		}

		var err Error
		switch key {
		case "engine":
			c.Engine.Path = value
		case "engineArgs":
			c.Engine.Args = strings.Fields(value)
		case "threads":
			c.Engine.Threads, err = parseInt(key, value)
		case "hash":
			c.Engine.HashMB, err = parseInt(key, value)
		case "skill":
			c.Engine.SkillLevel, err = parseInt(key, value)
		case "depth":
			c.Engine.Depth, err = parseInt(key, value)
		case "movetime":
			c.Engine.MoveTime, err = parseDuration(key, value)
		case "initTimeout":
			c.Engine.InitTimeout, err = parseDuration(key, value)
		case "searchTimeout":
			c.Engine.SearchTimeout, err = parseDuration(key, value)
		case "port":
			c.Server.Port, err = parseInt(key, value)
		case "static":
			c.Server.StaticDir = value
		case "verbose":
			c.Verbose, err = WrapReturn(strconv.ParseBool(value))
		case "config":
			// handled by FromArgs
		default:
			err = Errorf("unknown option: %s", arg)
		}

		if err.HasError() {
			return remaining, err
		}
	}

	return remaining, c.Validate()
}

// FromArgs loads the file named by a config=path argument, if any, then
// applies the remaining arguments over it.
func FromArgs(args []string) (Config, []string, Error) {
	config := Default()

	path := FindInSlice(args, func(arg string) bool {
		return strings.HasPrefix(arg, "config=")
	})
	if path.HasValue() {
		var err Error
		config, err = Load(strings.TrimPrefix(path.Value(), "config="))
		if err.HasError() {
			return config, nil, err
		}
	}

	remaining, err := config.ApplyArgs(args)
	return config, remaining, err
}

func (c Config) Validate() Error {
	errs := []Error{}
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, Errorf(format, args...))
		}
	}

	check(c.Engine.Path != "", "engine path is empty")
	check(c.Engine.SkillLevel >= 0 && c.Engine.SkillLevel <= 20, "skill %v outside 0..20", c.Engine.SkillLevel)
	check(c.Engine.Depth >= 0, "depth %v is negative", c.Engine.Depth)
	check(c.Engine.MoveTime >= 0, "movetime %v is negative", c.Engine.MoveTime)
	check(c.Engine.Depth > 0 || c.Engine.MoveTime >= time.Millisecond, "one of depth or movetime must be set")
	check(c.Engine.Threads >= 0, "threads %v is negative", c.Engine.Threads)
	check(c.Engine.HashMB >= 0, "hash %v is negative", c.Engine.HashMB)
	check(c.Server.Port > 0 && c.Server.Port <= 65535, "port %v outside 1..65535", c.Server.Port)

	return Join(errs...)
}

// SearchParams is the effort for one engine move.
func (c Config) SearchParams() uci.SearchParams {
	if c.Engine.Depth > 0 {
		return uci.DepthParams(c.Engine.Depth)
	}
	return uci.DurationParams(c.Engine.MoveTime)
}

func (c Config) SessionOptions(logger Logger) []engine.SessionOption {
	options := []engine.SessionOption{
		engine.WithName(c.Engine.Path),
		engine.WithLogger(logger),
		engine.WithSkillLevel(c.Engine.SkillLevel),
		engine.WithSearchTimeout(c.Engine.SearchTimeout),
	}
	if c.Engine.Threads > 0 {
		options = append(options, engine.WithThreads(c.Engine.Threads))
	}
	if c.Engine.HashMB > 0 {
		options = append(options, engine.WithHash(c.Engine.HashMB))
	}
	return options
}

func (c Config) String() string {
	return fmt.Sprintf("engine=%v skill=%v %v port=%v", c.Engine.Path, c.Engine.SkillLevel, c.SearchParams(), c.Server.Port)
}

// EngineFactory starts and initializes the configured engine binary.
func (c Config) EngineFactory(logger Logger) engine.Factory {
	return func(ctx context.Context) (*engine.Session, Error) {
		if c.Engine.InitTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.Engine.InitTimeout)
			defer cancel()
		}
		return engine.StartSession(ctx, c.Engine.Path, c.Engine.Args, c.SessionOptions(logger)...)
	}
}
