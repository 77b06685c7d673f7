// Copyright 2024 The coreclient Authors
// This file is part of the coreclient library.
//
// The coreclient library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The coreclient library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the coreclient library. If not, see <http://www.gnu.org/licenses/>.

// This file is derived from cmd/kcn/main.go's flag-table convention,
// trimmed to this module's Client rather than a full consensus node.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli"

	"github.com/ground-x/coreclient/client"
	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/config"
	"github.com/ground-x/coreclient/log"
)

var logger = log.NewModuleLogger(log.CMD)

var (
	DataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the chain store, state database, and version-gate markers",
		Value: config.Default.DataDir,
	}
	CoinbaseFlag = cli.StringFlag{
		Name:  "coinbase",
		Usage: "Public address for mining rewards and transaction fees (hex)",
	}
	MineFlag = cli.BoolFlag{
		Name:  "mine",
		Usage: "Enable mining at startup",
	}
	NetworkIdFlag = cli.Uint64Flag{
		Name:  "networkid",
		Usage: "Network identifier advertised during peer handshake",
		Value: config.Default.Network.NetworkID,
	}
	ListenPortFlag = cli.IntFlag{
		Name:  "port",
		Usage: "Network listening port",
		Value: config.Default.Network.ListenPort,
	}
	ParanoidFlag = cli.BoolFlag{
		Name:  "paranoid",
		Usage: "Disable mining if the pending state no longer extends the chain head when a new candidate is committed",
	}
	KafkaBrokersFlag = cli.StringFlag{
		Name:  "kafka-brokers",
		Usage: "Comma-separated Kafka broker addresses for the event sink (empty disables it)",
	}
	ConfigFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file (flags given explicitly override its values)",
	}
)

func init() {
	cli.AppHelpTemplate = strings.Replace(cli.AppHelpTemplate, "GLOBAL OPTIONS:", "OPTIONS:", 1)
}

// newApp assembles the cli.App the way cmd/kcn/main.go assembles its own:
// a single flag table, one Action, no subcommands (this module has no
// console/account/init surface, only the Client lifecycle).
func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "coreclient"
	app.Usage = "Run a coreclient node"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		DataDirFlag,
		CoinbaseFlag,
		MineFlag,
		NetworkIdFlag,
		ListenPortFlag,
		ParanoidFlag,
		KafkaBrokersFlag,
		ConfigFileFlag,
	}
	app.Action = run
	return app
}

func run(ctx *cli.Context) error {
	cfg := config.Default

	if path := ctx.GlobalString(ConfigFileFlag.Name); path != "" {
		if err := config.Load(path, &cfg); err != nil {
			return fmt.Errorf("coreclient: loading %s: %w", path, err)
		}
	}

	if ctx.GlobalIsSet(DataDirFlag.Name) {
		cfg.DataDir = ctx.GlobalString(DataDirFlag.Name)
	}
	if ctx.GlobalIsSet(MineFlag.Name) {
		cfg.Mine = ctx.GlobalBool(MineFlag.Name)
	}
	if ctx.GlobalIsSet(ParanoidFlag.Name) {
		cfg.Paranoid = ctx.GlobalBool(ParanoidFlag.Name)
	}
	if ctx.GlobalIsSet(NetworkIdFlag.Name) {
		cfg.Network.NetworkID = ctx.GlobalUint64(NetworkIdFlag.Name)
	}
	if ctx.GlobalIsSet(ListenPortFlag.Name) {
		cfg.Network.ListenPort = ctx.GlobalInt(ListenPortFlag.Name)
	}
	if raw := ctx.GlobalString(CoinbaseFlag.Name); raw != "" {
		addr, err := common.HexToAddress(raw)
		if err != nil {
			return fmt.Errorf("coreclient: invalid --coinbase: %w", err)
		}
		cfg.Coinbase = addr
	}
	if raw := ctx.GlobalString(KafkaBrokersFlag.Name); raw != "" {
		cfg.Events.Brokers = strings.Split(raw, ",")
	}

	c, err := client.New(cfg, app.Version)
	if err != nil {
		return fmt.Errorf("coreclient: starting client: %w", err)
	}

	if err := c.StartNetwork(cfg.Network); err != nil {
		logger.Warn("network did not start", "err", err)
	}

	if cfg.Mine {
		c.StartMining()
	} else {
		c.Run()
	}

	logger.Info("coreclient started", "datadir", cfg.DataDir, "coinbase", cfg.Coinbase, "mining", cfg.Mine)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	c.Close()
	return nil
}

var app = newApp()

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
