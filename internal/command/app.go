// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/awsadm/awsadm/internal/config"
	"github.com/awsadm/awsadm/internal/meta"
)

func InitApp(ctx context.Context, args []string) (*cli.Command, error) {
	sd, _ := os.Getwd()

	// The arg immediately following the binary is the service name and also
	// the namespace key used when retrieving config values. It could be
	// -h/--help, so ignore it if it appears to be a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}

	cfg, _ := config.Load() //nolint
	cfg.Namespace = ns
	config.Config.Namespace = ns

	m := meta.Meta{
		Args:        args,
		Config:      cfg,
		Context:     ctx,
		StartingDir: sd,
	}

	app := &cli.Command{
		Name:  "awsadm",
		Usage: "AWS administration toolkit",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "awsadm version info",
				HideDefault: true,
			},
		},
	}

	app.Commands = append(app.Commands,
		acmCommandBuilder(m),
		athenaCommandBuilder(m),
		ecsCommandBuilder(m),
		iamCommandBuilder(m),
		kmsCommandBuilder(m),
		lambdaCommandBuilder(m),
		rdsCommandBuilder(m),
		s3CommandBuilder(m),
		scanCommandBuilder(m),
		sqsCommandBuilder(m),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		for _, sub := range cmd.Commands {
			sort.Slice(sub.Flags, func(i, j int) bool {
				return sub.Flags[i].Names()[0] < sub.Flags[j].Names()[0]
			})
		}
	}

	return app, nil
}
