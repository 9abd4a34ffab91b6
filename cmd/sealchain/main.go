package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/VeltarosLabs/sealchain/internal/blockchain"
	"github.com/VeltarosLabs/sealchain/internal/config"
	"github.com/VeltarosLabs/sealchain/internal/consensus"
	"github.com/VeltarosLabs/sealchain/internal/logging"
	"github.com/VeltarosLabs/sealchain/pkg/version"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		runVersion()
		return
	}

	cfg, err := config.ParseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(exitWithError(err))
	}

	log := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	log.Info("starting", "version", version.Get().String(), "mode", cfg.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var valid bool
	switch cfg.Mode {
	case config.ModePoW:
		valid, err = runPoW(ctx, cfg, log)
	case config.ModePoS:
		valid, err = runPoS(ctx, cfg, log)
	}
	if err != nil {
		stop()
		os.Exit(exitWithError(err))
	}

	fmt.Println(valid)
}

func runVersion() {
	v := version.Get()
	fmt.Printf("sealchain\nVersion: %s\nCommit:  %s\nGo:      %s\nTarget:  %s\n",
		v.Version, v.Commit, v.GoVersion, v.Platform)
}

func runPoW(ctx context.Context, cfg config.Config, log *slog.Logger) (bool, error) {
	engine, err := consensus.NewPoW(consensus.PoWConfig{
		Difficulty:  cfg.PoW.Difficulty,
		MaxAttempts: cfg.PoW.MaxAttempts,
	}, log.With("engine", "pow"))
	if err != nil {
		return false, err
	}

	if cfg.PoW.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.PoW.Timeout)
		defer cancel()
	}

	chain, err := blockchain.New[blockchain.Block](engine, log)
	if err != nil {
		return false, err
	}
	return appendAndValidate(ctx, chain, cfg.Blocks)
}

func runPoS(ctx context.Context, cfg config.Config, log *slog.Logger) (bool, error) {
	pool, err := consensus.NewPoolFromStakes(cfg.PoS.Scheme, cfg.PoS.Stakes...)
	if err != nil {
		return false, err
	}
	for _, v := range pool.Validators() {
		log.Info("validator", "address", v.Address(), "stake", v.Stake(),
			"share", pool.Share(v.Address()).StringFixed(4))
	}

	var src consensus.Source
	if cfg.PoS.Seed != 0 {
		src = rand.New(rand.NewPCG(cfg.PoS.Seed, cfg.PoS.Seed))
	}

	engine, err := consensus.NewPoS(pool, consensus.PoSConfig{
		Scheme:          cfg.PoS.Scheme,
		Source:          src,
		VerifyCacheSize: cfg.PoS.VerifyCacheSize,
	}, log.With("engine", "pos"))
	if err != nil {
		return false, err
	}

	chain, err := blockchain.New[blockchain.StakeBlock](engine, log)
	if err != nil {
		return false, err
	}
	return appendAndValidate(ctx, chain, cfg.Blocks)
}

func appendAndValidate[B blockchain.Linked[B]](ctx context.Context, chain *blockchain.Chain[B], payloads []string) (bool, error) {
	for _, data := range payloads {
		if _, err := chain.AddBlock(ctx, data); err != nil {
			return false, err
		}
	}
	return chain.Validate(), nil
}

func exitWithError(err error) int {
	_, _ = os.Stderr.WriteString("sealchain error: " + err.Error() + "\n")
	return 1
}
