// wallet-harness exercises a wallet session end to end against a configured
// wallet endpoint: discover, connect, switch chain, send a zero-value test
// transaction, disconnect.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"github.com/evmkit/walletsession"
	"github.com/evmkit/walletsession/chains"
	"github.com/evmkit/walletsession/config"
	"github.com/evmkit/walletsession/logger"
	"github.com/evmkit/walletsession/metrics"
	"github.com/evmkit/walletsession/transport"
)

func main() {
	app := &cli.Command{
		Name:  "wallet-harness",
		Usage: "Wallet session test harness",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to the harness config file",
				Value: "config.yaml",
			},
		},
		Commands: []*cli.Command{
			chainsCommand(),
			runCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func chainsCommand() *cli.Command {
	return &cli.Command{
		Name:  "chains",
		Usage: "List the configured chains",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			reg, err := cfg.ChainRegistry()
			if err != nil {
				return err
			}
			for _, chain := range reg.List() {
				fmt.Printf("%-16s %8d  %s\n", chain.Name, chain.ChainID, chain.DisplayName)
			}
			return nil
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Connect, optionally switch chain and send a test transaction, then disconnect",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "chain",
				Usage: "chain to switch the session to",
			},
			&cli.BoolFlag{
				Name:  "send",
				Usage: "send a zero-value test transaction on the target chain",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			return run(ctx, cfg, cmd.String("chain"), cmd.Bool("send"))
		},
	}
}

func run(ctx context.Context, cfg *config.Config, chain string, send bool) error {
	lg := logger.NewZap(cfg.Logging.Level)

	reg, err := cfg.ChainRegistry()
	if err != nil {
		return err
	}

	rec := metrics.Recorder(metrics.Noop{})
	if cfg.Metrics.Enabled {
		rec = metrics.NewPrometheusRecorder(prometheus.DefaultRegisterer)
		go serveMetrics(cfg.Metrics.Port, lg)
	}

	controller := walletsession.New(reg,
		walletsession.WithLogger(lg),
		walletsession.WithMetrics(rec),
		walletsession.WithConnectTimeout(cfg.Session.ConnectTimeout),
		walletsession.WithSwitchTimeout(cfg.Session.SwitchTimeout),
		walletsession.WithSettleDelay(cfg.Session.SettleDelay),
		walletsession.WithChainMismatchPolicy(cfg.MismatchPolicy()),
		walletsession.WithGasEstimation(cfg.Session.EstimateGas),
	)

	descriptor := buildDescriptor(cfg, reg)

	if err := controller.Connect(ctx, descriptor); err != nil {
		return err
	}
	defer func() {
		if err := controller.Disconnect(context.Background()); err != nil {
			lg.Warn("disconnect failed", logger.F{"error": err.Error()})
		}
	}()

	sess, _ := controller.Session()
	fmt.Printf("connected: account=%s chain=%d\n", sess.Account.Hex(), sess.ChainID)

	if chain != "" && !send {
		if err := controller.SwitchChain(ctx, chain); err != nil {
			return err
		}
		sess, _ = controller.Session()
		fmt.Printf("switched: chain=%d\n", sess.ChainID)
	}

	if send {
		target := chain
		if target == "" {
			cur, ok := controller.Chains().ByChainID(sess.ChainID)
			if !ok {
				return fmt.Errorf("session chain %d is not configured, pass --chain", sess.ChainID)
			}
			target = cur.Name
		}
		receipt, err := controller.SendTestTransaction(ctx, target)
		if err != nil {
			return err
		}
		fmt.Printf("confirmed: tx=%s block=%s\n", receipt.TxHash.Hex(), receipt.BlockNumber)
	}

	return nil
}

func buildDescriptor(cfg *config.Config, reg *chains.Registry) transport.Descriptor {
	if cfg.Injected.RPCURL != "" {
		return transport.Descriptor{
			Info: transport.NewProviderInfo("Injected Wallet", "io.evmkit.injected"),
			Kind: transport.KindInjected,
			Dial: func(ctx context.Context) (transport.Transport, error) {
				return transport.DialInjected(ctx, transport.InjectedConfig{
					RPCURL:       cfg.Injected.RPCURL,
					PollInterval: cfg.Injected.PollInterval,
				})
			},
		}
	}

	var chainIDs []uint64
	for _, chain := range reg.List() {
		chainIDs = append(chainIDs, chain.ChainID)
	}
	return transport.WalletConnectDescriptor(transport.WalletConnectConfig{
		ProjectID: cfg.WalletConnect.ProjectID,
		RelayURL:  cfg.WalletConnect.RelayURL,
		AppName:   cfg.WalletConnect.AppName,
		AppURL:    cfg.WalletConnect.AppURL,
		ChainIDs:  chainIDs,
	})
}

func serveMetrics(port int, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	log.Info("metrics listening", logger.F{"addr": addr})
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped", logger.F{"error": err.Error()})
	}
}
