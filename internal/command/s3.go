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
	"github.com/awsadm/awsadm/internal/policy"
	"github.com/awsadm/awsadm/internal/s3"
)

func s3ListAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	cfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return err
	}

	substring := cmd.String("match")
	names, err := s3.ListBuckets(ctx, aws.NewS3(cfg), substring)
	if err != nil {
		return err
	}

	resultSet := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		resultSet = append(resultSet, map[string]interface{}{
			"name": output.Highlight(name, substring, cmd.Bool("color")),
		})
	}
	output.Spit(resultSet, output.Cols("name"), cmd, os.Stdout)
	return nil
}

func s3CreateAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	cfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return err
	}
	client := aws.NewS3(cfg)

	params := s3.CreateBucketParams{
		BucketName:     cmd.String("bucket"),
		Region:         cfg.Region,
		ACL:            cmd.String("acl"),
		SSE:            cmd.String("sse"),
		KMSKeyID:       cmd.String("kms-key"),
		PolicyTemplate: cmd.String("policy-template"),
		Versioning:     cmd.String("versioning"),
		LogTarget:      cmd.String("log-bucket"),
		LogPrefix:      cmd.String("log-prefix"),
		LifecyclePath:  cmd.String("lifecycle"),
	}
	if params.PolicyTemplate != "" {
		accountID, err := aws.AccountID(ctx, aws.NewSTS(cfg))
		if err != nil {
			return err
		}
		params.AccountID = accountID
	}

	return s3.CreateBucket(ctx, client, params)
}

func s3TagAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	cfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return err
	}
	tags := policy.ParseTags(cmd.StringSlice("tag"))
	return s3.Tag(ctx, aws.NewS3(cfg), cmd.String("bucket"), tags, !cmd.Bool("replace"))
}

func s3LifecycleAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	cfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return err
	}
	return s3.PutLifecycle(ctx, aws.NewS3(cfg), cmd.String("bucket"), cmd.String("file"))
}

func s3CopyAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	sourceCfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return err
	}
	source := aws.NewS3(sourceCfg)

	// The destination bucket may live in another region.
	destination := source
	if region := cmd.String("destination-region"); region != "" && region != sourceCfg.Region {
		destinationCfg, err := aws.LoadConfig(ctx,
			aws.WithProfile(cmd.String("profile")),
			aws.WithRegion(region),
		)
		if err != nil {
			return err
		}
		destination = aws.NewS3(destinationCfg)
	}

	copied, err := s3.CopyObjects(ctx, source, destination, s3.CopyParams{
		SourceBucket:      cmd.String("source-bucket"),
		SourcePrefix:      cmd.String("source-prefix"),
		DestinationBucket: cmd.String("destination-bucket"),
		DestinationPrefix: cmd.String("destination-prefix"),
		Include:           cmd.String("include"),
		Exclude:           cmd.String("exclude"),
	})
	if err != nil {
		return err
	}
	log.Infof("copied %d objects", copied)
	return nil
}

func s3ReencryptAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	cfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return err
	}

	updated, err := s3.UpdateObjectsEncryption(ctx, aws.NewS3(cfg),
		cmd.String("bucket"), cmd.String("prefix"), cmd.String("kms-key"), cmd.Bool("sse-s3"))
	if err != nil {
		return err
	}
	log.Infof("re-encrypted %d objects", updated)
	return nil
}

// s3CommandBuilder constructs the cli.Command for "s3", wiring metadata,
// flags, and action handlers for the bucket and object subcommands.
func s3CommandBuilder(m meta.Meta) *cli.Command {
	bucketFlag := &cli.StringFlag{
		Name:     "bucket",
		Aliases:  []string{"b"},
		Usage:    "bucket name",
		Required: true,
	}

	return &cli.Command{
		Name:  "s3",
		Usage: "S3 bucket and object administration",
		Metadata: map[string]any{
			"meta": m,
		},
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "list buckets",
				UsageText: "awsadm s3 list [options]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "match",
						Aliases: []string{"m"},
						Usage:   "substring filter on bucket names",
					},
				}, NewGlobalFlags("s3")...),
				Action: s3ListAction,
			},
			{
				Name:      "create",
				Usage:     "create a bucket with optional hardening steps",
				UsageText: "awsadm s3 create --bucket NAME [options]",
				Flags: append([]cli.Flag{
					bucketFlag,
					&cli.StringFlag{
						Name:  "acl",
						Usage: "canned ACL to apply",
					},
					&cli.StringFlag{
						Name:  "sse",
						Usage: "server-side encryption: s3 or kms",
						Validator: func(value string) error {
							return FlagValidators(value, SSEValidator)
						},
					},
					&cli.StringFlag{
						Name:  "kms-key",
						Usage: "KMS key ID for aws:kms encryption",
					},
					&cli.StringFlag{
						Name:  "policy-template",
						Usage: "bucket policy template file",
					},
					&cli.StringFlag{
						Name:  "versioning",
						Usage: "versioning state: enabled or suspended",
						Validator: func(value string) error {
							return FlagValidators(value, VersioningValidator)
						},
					},
					&cli.StringFlag{
						Name:  "log-bucket",
						Usage: "target bucket for access logging",
					},
					&cli.StringFlag{
						Name:  "log-prefix",
						Usage: "key prefix for access logs",
					},
					&cli.StringFlag{
						Name:  "lifecycle",
						Usage: "lifecycle configuration JSON file",
					},
				}, NewGlobalFlags("s3")...),
				Action: s3CreateAction,
			},
			{
				Name:      "tag",
				Usage:     "merge tags onto a bucket",
				UsageText: "awsadm s3 tag --bucket NAME --tag Key=Value [options]",
				Flags: append([]cli.Flag{
					bucketFlag,
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Key=Value tag, repeatable",
					},
					&cli.BoolFlag{
						Name:  "replace",
						Usage: "replace the tag set instead of merging",
					},
				}, NewGlobalFlags("s3")...),
				Action: s3TagAction,
			},
			{
				Name:      "lifecycle",
				Usage:     "apply a lifecycle configuration from a JSON file",
				UsageText: "awsadm s3 lifecycle --bucket NAME --file FILE [options]",
				Flags: append([]cli.Flag{
					bucketFlag,
					&cli.StringFlag{
						Name:     "file",
						Usage:    "lifecycle configuration JSON file",
						Required: true,
					},
				}, NewGlobalFlags("s3")...),
				Action: s3LifecycleAction,
			},
			{
				Name:      "copy",
				Usage:     "copy objects between buckets",
				UsageText: "awsadm s3 copy --source-bucket SRC --destination-bucket DST [options]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "source-bucket",
						Usage:    "bucket to copy from",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "source-prefix",
						Usage: "key prefix to copy from",
					},
					&cli.StringFlag{
						Name:     "destination-bucket",
						Usage:    "bucket to copy into",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "destination-prefix",
						Usage: "key prefix to copy into",
					},
					&cli.StringFlag{
						Name:  "destination-region",
						Usage: "region of the destination bucket",
					},
					&cli.StringFlag{
						Name:  "include",
						Usage: "glob of keys to include",
					},
					&cli.StringFlag{
						Name:  "exclude",
						Usage: "glob of keys to exclude",
					},
				}, NewGlobalFlags("s3")...),
				Action: s3CopyAction,
			},
			{
				Name:      "reencrypt",
				Usage:     "rewrite objects in place under new encryption settings",
				UsageText: "awsadm s3 reencrypt --bucket NAME [--kms-key ID | --sse-s3] [options]",
				Flags: append([]cli.Flag{
					bucketFlag,
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "key prefix to re-encrypt",
					},
					&cli.StringFlag{
						Name:  "kms-key",
						Usage: "KMS key ID for SSE-KMS",
					},
					&cli.BoolFlag{
						Name:  "sse-s3",
						Usage: "use SSE-S3 instead of SSE-KMS",
					},
				}, NewGlobalFlags("s3")...),
				Action: s3ReencryptAction,
			},
		},
	}
}
