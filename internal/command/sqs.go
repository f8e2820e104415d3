// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/awsadm/awsadm/internal/aws"
	"github.com/awsadm/awsadm/internal/log"
	"github.com/awsadm/awsadm/internal/meta"
	"github.com/awsadm/awsadm/internal/output"
	"github.com/awsadm/awsadm/internal/sqs"
)

func sqsListAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	cfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return err
	}

	substring := cmd.String("match")
	urls, err := sqs.ListQueues(ctx, aws.NewSQS(cfg), cmd.String("prefix"), substring)
	if err != nil {
		return err
	}

	resultSet := make([]map[string]interface{}, 0, len(urls))
	for _, url := range urls {
		resultSet = append(resultSet, map[string]interface{}{
			"url": output.Highlight(url, substring, cmd.Bool("color")),
		})
	}
	output.Spit(resultSet, output.Cols("url"), cmd, os.Stdout)
	return nil
}

// sqsCommandBuilder constructs the cli.Command for "sqs".
func sqsCommandBuilder(m meta.Meta) *cli.Command {
	return &cli.Command{
		Name:  "sqs",
		Usage: "SQS queue administration",
		Metadata: map[string]any{
			"meta": m,
		},
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "list queues",
				UsageText: "awsadm sqs list [options]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "queue name prefix, applied at the API",
					},
					&cli.StringFlag{
						Name:    "match",
						Aliases: []string{"m"},
						Usage:   "substring filter on queue URLs",
					},
				}, NewGlobalFlags("sqs")...),
				Action: sqsListAction,
			},
		},
	}
}
