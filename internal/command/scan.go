// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/awsadm/awsadm/internal/log"
	"github.com/awsadm/awsadm/internal/meta"
	"github.com/awsadm/awsadm/internal/output"
	"github.com/awsadm/awsadm/internal/scan"
)

func scanAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	target := cmd.String("target")
	open, err := scan.ScanTopPorts(ctx, nil, target)
	if err != nil {
		return err
	}
	if len(open) == 0 {
		log.Infof("no open ports found on %s", target)
		return nil
	}

	resultSet := make([]map[string]interface{}, 0, len(open))
	for _, port := range open {
		resultSet = append(resultSet, map[string]interface{}{
			"port":    port,
			"service": scan.ServiceNote(port),
		})
	}
	output.Spit(resultSet, output.Cols("port", "service"), cmd, os.Stdout)
	return nil
}

// scanCommandBuilder constructs the cli.Command for "scan".
func scanCommandBuilder(m meta.Meta) *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "probe a host for open common ports",
		Metadata: map[string]any{
			"meta": m,
		},
		Commands: []*cli.Command{
			{
				Name:      "ports",
				Usage:     "TCP connect scan of the common service ports",
				UsageText: "awsadm scan ports --target HOST [options]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "target",
						Usage:    "IP address or host name to scan",
						Required: true,
					},
				}, NewGlobalFlags("scan")...),
				Action: scanAction,
			},
		},
	}
}
