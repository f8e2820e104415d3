// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/awsadm/awsadm/internal/aws"
	"github.com/awsadm/awsadm/internal/lambda"
	"github.com/awsadm/awsadm/internal/log"
	"github.com/awsadm/awsadm/internal/meta"
	"github.com/awsadm/awsadm/internal/output"
)

func lambdaColdStorageAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	cfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return err
	}

	cold, err := lambda.ColdStorage(ctx, aws.NewLambda(cfg), cmd.Int("days"), time.Now())
	if err != nil {
		return err
	}

	resultSet := make([]map[string]interface{}, 0, len(cold))
	for _, version := range cold {
		resultSet = append(resultSet, map[string]interface{}{
			"function": version.FunctionName,
			"version":  version.Version,
			"modified": version.LastModified.Format("2006-01-02"),
			"size":     humanize.Bytes(uint64(version.CodeSize)),
		})
	}
	output.Spit(resultSet, output.Cols("function", "version", "modified", "size"), cmd, os.Stdout)
	return nil
}

func lambdaErrorRatesAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	cfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return err
	}

	rates, err := lambda.ErrorRates(ctx, aws.NewLambda(cfg), aws.NewCloudWatch(cfg), time.Now())
	if err != nil {
		return err
	}

	resultSet := make([]map[string]interface{}, 0, len(rates))
	for _, rate := range rates {
		resultSet = append(resultSet, map[string]interface{}{
			"function":    rate.FunctionName,
			"error_rate":  fmt.Sprintf("%.2f%%", rate.RatePercent),
			"invocations": int64(rate.Invocations),
			"errors":      int64(rate.Errors),
		})
	}
	output.Spit(resultSet, output.Cols("function", "error_rate", "errors", "invocations"), cmd, os.Stdout)
	return nil
}

func lambdaPackageAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	zipPath, err := lambda.Package(ctx, lambda.PackageParams{
		BaseDir:          cmd.String("dir"),
		UseDocker:        cmd.Bool("docker"),
		PythonVersion:    cmd.String("python-version"),
		RequirementsFile: cmd.String("requirements"),
	})
	if err != nil {
		return err
	}
	fmt.Println(zipPath)
	return nil
}

// lambdaCommandBuilder constructs the cli.Command for "lambda".
func lambdaCommandBuilder(m meta.Meta) *cli.Command {
	return &cli.Command{
		Name:  "lambda",
		Usage: "Lambda fleet reporting and packaging",
		Metadata: map[string]any{
			"meta": m,
		},
		Commands: []*cli.Command{
			{
				Name:      "cold-storage",
				Usage:     "list function versions unmodified past a threshold",
				UsageText: "awsadm lambda cold-storage [options]",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "days",
						Usage: "minimum age in days",
						Value: 90,
					},
				}, NewGlobalFlags("lambda")...),
				Action: lambdaColdStorageAction,
			},
			{
				Name:      "error-rates",
				Usage:     "report per-function error rates over the last hour",
				UsageText: "awsadm lambda error-rates [options]",
				Flags:     NewGlobalFlags("lambda"),
				Action:    lambdaErrorRatesAction,
			},
			{
				Name:      "package",
				Usage:     "bundle a function directory into a deployment zip",
				UsageText: "awsadm lambda package --dir PATH [options]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "dir",
						Usage:    "function directory",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "docker",
						Usage: "install dependencies inside a Lambda runtime container",
					},
					&cli.StringFlag{
						Name:  "python-version",
						Usage: "runtime version for dependency installation",
					},
					&cli.StringFlag{
						Name:  "requirements",
						Usage: "requirements file, relative to the function directory",
					},
				}, NewGlobalFlags("lambda")...),
				Action: lambdaPackageAction,
			},
		},
	}
}
