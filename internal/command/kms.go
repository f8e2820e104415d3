// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/awsadm/awsadm/internal/aws"
	"github.com/awsadm/awsadm/internal/kms"
	"github.com/awsadm/awsadm/internal/log"
	"github.com/awsadm/awsadm/internal/meta"
)

func kmsCreateAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	cfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return err
	}

	params := kms.CreateKeyParams{
		Alias:          cmd.String("alias"),
		Description:    cmd.String("description"),
		PolicyTemplate: cmd.String("policy-template"),
		Region:         cfg.Region,
		EnableRotation: cmd.Bool("rotation"),
	}
	if params.PolicyTemplate != "" {
		accountID, err := aws.AccountID(ctx, aws.NewSTS(cfg))
		if err != nil {
			return err
		}
		params.AccountID = accountID

		params.Params, err = parseParamsJSON(cmd.String("params"))
		if err != nil {
			return err
		}
	}

	keyID, err := kms.CreateKey(ctx, aws.NewKMS(cfg), params)
	if err != nil {
		return err
	}
	fmt.Println(keyID)
	return nil
}

// kmsCommandBuilder constructs the cli.Command for "kms".
func kmsCommandBuilder(m meta.Meta) *cli.Command {
	return &cli.Command{
		Name:  "kms",
		Usage: "KMS key administration",
		Metadata: map[string]any{
			"meta": m,
		},
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "create a customer managed key",
				UsageText: "awsadm kms create --alias NAME [options]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "alias",
						Aliases:  []string{"a"},
						Usage:    "key alias, with or without the alias/ prefix",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "key description",
					},
					&cli.StringFlag{
						Name:  "policy-template",
						Usage: "key policy template file",
					},
					&cli.StringFlag{
						Name:  "params",
						Usage: "extra template parameters as a JSON object",
					},
					&cli.BoolFlag{
						Name:  "rotation",
						Usage: "enable annual key rotation",
						Value: true,
					},
				}, NewGlobalFlags("kms")...),
				Action: kmsCreateAction,
			},
		},
	}
}
