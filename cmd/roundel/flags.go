// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to the YAML deployment config",
		Value: "roundel.yaml",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Usage: "directory for the main database (in-memory when empty)",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Usage: "API service listening address",
		Value: "localhost:8669",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Usage: "comma separated list of domains from which to accept cross origin requests",
		Value: "*",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "log verbosity (0=error, 1=warn, 2=info, 3=debug)",
		Value: 2,
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "emit logs in JSON format",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "expose prometheus metrics on the API address",
	}
)
