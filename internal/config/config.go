package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/VeltarosLabs/sealchain/internal/consensus"
	vcrypto "github.com/VeltarosLabs/sealchain/internal/crypto"
	"github.com/VeltarosLabs/sealchain/internal/logging"
)

type Mode string

const (
	ModePoW Mode = "pow"
	ModePoS Mode = "pos"
)

type Config struct {
	Mode   Mode
	Blocks []string
	PoW    PoWConfig
	PoS    PoSConfig
	Log    LogConfig
}

type PoWConfig struct {
	Difficulty  int
	Timeout     time.Duration // 0 = unbounded
	MaxAttempts uint64        // 0 = unbounded
}

type PoSConfig struct {
	Stakes          []uint64
	Scheme          vcrypto.Scheme
	Seed            uint64 // 0 = process entropy
	VerifyCacheSize int
}

type LogConfig struct {
	Level  string // debug|info|warn|error
	Format string // json|text
}

func Default() Config {
	return Config{
		Mode:   ModePoW,
		Blocks: []string{"First block", "Second block", "Third block"},
		PoW: PoWConfig{
			Difficulty: consensus.DefaultDifficulty,
		},
		PoS: PoSConfig{
			Stakes:          []uint64{100, 200, 300},
			Scheme:          vcrypto.SchemeEd25519,
			VerifyCacheSize: consensus.DefaultVerifyCacheSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ParseFlags reads flags from args, falling back to SEALCHAIN_* environment
// variables and then to Default.
func ParseFlags(args []string, output io.Writer) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("sealchain", flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}

	var (
		mode   = fs.String("mode", envOr("SEALCHAIN_MODE", string(cfg.Mode)), "Consensus: pow|pos")
		blocks = fs.String("blocks", envOr("SEALCHAIN_BLOCKS", strings.Join(cfg.Blocks, ",")), "Comma-separated block payloads to append")

		difficulty  = fs.Int("pow.difficulty", envOrInt("SEALCHAIN_POW_DIFFICULTY", cfg.PoW.Difficulty), "Leading zero hex chars required in a mined hash")
		timeout     = fs.Duration("pow.timeout", envOrDuration("SEALCHAIN_POW_TIMEOUT", cfg.PoW.Timeout), "Give up mining after this long (0 = never)")
		maxAttempts = fs.Uint64("pow.maxAttempts", envOrUint("SEALCHAIN_POW_MAX_ATTEMPTS", cfg.PoW.MaxAttempts), "Nonce attempts per block (0 = unbounded)")

		stakes    = fs.String("pos.stakes", envOr("SEALCHAIN_POS_STAKES", joinUints(cfg.PoS.Stakes)), "Comma-separated validator stakes")
		scheme    = fs.String("pos.scheme", envOr("SEALCHAIN_POS_SCHEME", string(cfg.PoS.Scheme)), "Validator key scheme: ed25519|secp256k1|rsa")
		seed      = fs.Uint64("pos.seed", envOrUint("SEALCHAIN_POS_SEED", cfg.PoS.Seed), "Validator selection seed (0 = process entropy)")
		cacheSize = fs.Int("pos.verifyCache", envOrInt("SEALCHAIN_POS_VERIFY_CACHE", cfg.PoS.VerifyCacheSize), "Verified signature cache entries (0 = disabled)")

		logLevel  = fs.String("log.level", envOr("SEALCHAIN_LOG_LEVEL", cfg.Log.Level), "Log level: debug|info|warn|error")
		logFormat = fs.String("log.format", envOr("SEALCHAIN_LOG_FORMAT", cfg.Log.Format), "Log format: json|text")
	)

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.Mode = Mode(strings.ToLower(strings.TrimSpace(*mode)))
	cfg.Blocks = splitCSV(*blocks)

	cfg.PoW.Difficulty = *difficulty
	cfg.PoW.Timeout = *timeout
	cfg.PoW.MaxAttempts = *maxAttempts

	st, err := parseStakes(*stakes)
	if err != nil {
		return Config{}, err
	}
	cfg.PoS.Stakes = st

	sc, err := vcrypto.ParseScheme(*scheme)
	if err != nil {
		return Config{}, err
	}
	cfg.PoS.Scheme = sc
	cfg.PoS.Seed = *seed
	cfg.PoS.VerifyCacheSize = *cacheSize

	cfg.Log.Level = strings.TrimSpace(*logLevel)
	cfg.Log.Format = strings.TrimSpace(*logFormat)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Mode {
	case ModePoW, ModePoS:
	default:
		return fmt.Errorf("invalid mode: %q", cfg.Mode)
	}

	if cfg.PoW.Difficulty < 0 || cfg.PoW.Difficulty > consensus.MaxDifficulty {
		return fmt.Errorf("pow.difficulty out of range: %d", cfg.PoW.Difficulty)
	}
	if cfg.PoW.Timeout < 0 {
		return errors.New("pow.timeout must not be negative")
	}

	if cfg.Mode == ModePoS && len(cfg.PoS.Stakes) == 0 {
		return errors.New("pos.stakes must not be empty")
	}
	for _, s := range cfg.PoS.Stakes {
		if s == 0 {
			return errors.New("pos.stakes must all be positive")
		}
	}
	if cfg.PoS.VerifyCacheSize < 0 {
		return fmt.Errorf("pos.verifyCache out of range: %d", cfg.PoS.VerifyCacheSize)
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %q", cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log.format: %q", cfg.Log.Format)
	}
	return nil
}

func parseStakes(s string) ([]uint64, error) {
	parts := splitCSV(s)
	out := make([]uint64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid stake %q: %w", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func joinUints(xs []uint64) string {
	parts := make([]string, 0, len(xs))
	for _, x := range xs {
		parts = append(parts, strconv.FormatUint(x, 10))
	}
	return strings.Join(parts, ",")
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envOrInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrUint(key string, def uint64) uint64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envOrDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		t := strings.TrimSpace(r)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
