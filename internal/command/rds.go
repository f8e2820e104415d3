// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/awsadm/awsadm/internal/aws"
	"github.com/awsadm/awsadm/internal/log"
	"github.com/awsadm/awsadm/internal/meta"
	"github.com/awsadm/awsadm/internal/rds"
)

func rdsCopySnapshotAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	sourceCfg, err := namedClientConfig(ctx, cmd, cmd.String("source-profile"))
	if err != nil {
		return err
	}
	targetCfg, err := namedClientConfig(ctx, cmd, cmd.String("target-profile"))
	if err != nil {
		return err
	}

	sourceAccount, err := aws.AccountID(ctx, aws.NewSTS(sourceCfg))
	if err != nil {
		return err
	}
	targetAccount, err := aws.AccountID(ctx, aws.NewSTS(targetCfg))
	if err != nil {
		return err
	}

	copier := rds.NewCopier(aws.NewRDS(sourceCfg), aws.NewRDS(targetCfg))
	finalID, err := copier.Copy(ctx, rds.CopyParams{
		SourceSnapshotID: cmd.String("snapshot"),
		TargetSnapshotID: cmd.String("target-snapshot"),
		SourceRegion:     sourceCfg.Region,
		SourceAccountID:  sourceAccount,
		TargetAccountID:  targetAccount,
		SharedKMSKeyID:   cmd.String("shared-kms-key"),
		TargetKMSKeyID:   cmd.String("target-kms-key"),
	})
	if err != nil {
		return err
	}
	fmt.Println(finalID)
	return nil
}

// rdsCommandBuilder constructs the cli.Command for "rds".
func rdsCommandBuilder(m meta.Meta) *cli.Command {
	return &cli.Command{
		Name:  "rds",
		Usage: "RDS snapshot administration",
		Metadata: map[string]any{
			"meta": m,
		},
		Commands: []*cli.Command{
			{
				Name:      "copy-snapshot",
				Usage:     "copy a snapshot into another account",
				UsageText: "awsadm rds copy-snapshot --snapshot ID --source-profile SRC --target-profile DST [options]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "snapshot",
						Usage:    "source snapshot identifier",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "target-snapshot",
						Usage: "final snapshot identifier, defaults to the source identifier",
					},
					&cli.StringFlag{
						Name:     "source-profile",
						Usage:    "profile of the account that owns the snapshot",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "target-profile",
						Usage:    "profile of the account to copy the snapshot into",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "shared-kms-key",
						Usage: "KMS key both accounts can use, for the shared copy",
					},
					&cli.StringFlag{
						Name:  "target-kms-key",
						Usage: "KMS key for the final copy in the target account",
					},
				}, NewGlobalFlags("rds")...),
				Action: rdsCopySnapshotAction,
			},
		},
	}
}
