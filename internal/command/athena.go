// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/awsadm/awsadm/internal/athena"
	"github.com/awsadm/awsadm/internal/aws"
	"github.com/awsadm/awsadm/internal/log"
	"github.com/awsadm/awsadm/internal/meta"
	"github.com/awsadm/awsadm/internal/output"
)

func athenaQueryAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	cfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return err
	}
	params, err := parseParamsJSON(cmd.String("params"))
	if err != nil {
		return err
	}

	runner := athena.NewRunner(aws.NewAthena(cfg))
	result, err := runner.Run(ctx, athena.RunParams{
		TemplateFile:   cmd.String("template"),
		Params:         params,
		Database:       cmd.String("database"),
		OutputLocation: cmd.String("output-location"),
	})
	if err != nil {
		return err
	}
	if len(result.Rows) == 0 {
		log.Infof("query %s returned no rows", result.QueryExecutionID)
		return nil
	}

	// The first result row is the column header.
	header := result.Rows[0]
	cols := output.Cols(header...)
	resultSet := make([]map[string]interface{}, 0, len(result.Rows)-1)
	for _, row := range result.Rows[1:] {
		entry := map[string]interface{}{}
		for i, cell := range row {
			if i < len(header) {
				entry[header[i]] = cell
			}
		}
		resultSet = append(resultSet, entry)
	}
	output.Spit(resultSet, cols, cmd, os.Stdout)
	return nil
}

// athenaCommandBuilder constructs the cli.Command for "athena".
func athenaCommandBuilder(m meta.Meta) *cli.Command {
	return &cli.Command{
		Name:  "athena",
		Usage: "Athena query execution",
		Metadata: map[string]any{
			"meta": m,
		},
		Commands: []*cli.Command{
			{
				Name:      "query",
				Usage:     "run a templated query and print the results",
				UsageText: "awsadm athena query --template FILE --output-location s3://... [options]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "template",
						Usage:    "SQL template file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "params",
						Usage: "template parameters as a JSON object",
					},
					&cli.StringFlag{
						Name:  "database",
						Usage: "database to run the query against",
					},
					&cli.StringFlag{
						Name:     "output-location",
						Usage:    "S3 location for query results",
						Required: true,
					},
				}, NewGlobalFlags("athena")...),
				Action: athenaQueryAction,
			},
		},
	}
}
