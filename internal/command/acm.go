// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/awsadm/awsadm/internal/acm"
	"github.com/awsadm/awsadm/internal/aws"
	"github.com/awsadm/awsadm/internal/log"
	"github.com/awsadm/awsadm/internal/meta"
	"github.com/awsadm/awsadm/internal/output"
)

func acmRequestAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	cfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return err
	}

	var additionalNames []string
	if raw := cmd.String("san"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			additionalNames = append(additionalNames, strings.TrimSpace(name))
		}
	}

	arn, err := acm.RequestCertificate(ctx, aws.NewACM(cfg),
		cmd.String("domain"), additionalNames, cmd.String("validation"))
	if err != nil {
		return err
	}
	fmt.Println(arn)
	return nil
}

func acmListAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	cfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return err
	}

	certs, err := acm.ListCertificates(ctx, aws.NewACM(cfg), cmd.String("fqdn"), cmd.String("status"))
	if err != nil {
		return err
	}

	resultSet := make([]map[string]interface{}, 0, len(certs))
	for _, cert := range certs {
		row := map[string]interface{}{
			"domain": cert.DomainName,
			"status": cert.Status,
			"in_use": len(cert.InUseBy) > 0,
			"arn":    cert.Arn,
		}
		if cert.NotBefore != nil {
			row["not_before"] = cert.NotBefore.Format("2006-01-02")
		}
		if cert.NotAfter != nil {
			row["not_after"] = cert.NotAfter.Format("2006-01-02")
		}
		resultSet = append(resultSet, row)
	}
	output.Spit(resultSet, output.Cols("domain", "status", "not_before", "not_after", "in_use", "arn"), cmd, os.Stdout)
	return nil
}

// acmCommandBuilder constructs the cli.Command for "acm".
func acmCommandBuilder(m meta.Meta) *cli.Command {
	return &cli.Command{
		Name:  "acm",
		Usage: "ACM certificate administration",
		Metadata: map[string]any{
			"meta": m,
		},
		Commands: []*cli.Command{
			{
				Name:      "request",
				Usage:     "request a certificate",
				UsageText: "awsadm acm request --domain FQDN [options]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "domain",
						Aliases:  []string{"d"},
						Usage:    "primary domain name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "san",
						Usage: "comma-separated subject alternative names",
					},
					&cli.StringFlag{
						Name:  "validation",
						Usage: "validation method: email or dns",
						Value: "email",
						Validator: func(value string) error {
							return FlagValidators(value, ValidationMethodValidator)
						},
					},
				}, NewGlobalFlags("acm")...),
				Action: acmRequestAction,
			},
			{
				Name:      "list",
				Usage:     "list certificates",
				UsageText: "awsadm acm list [options]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "fqdn",
						Usage: "match certificates covering this name",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "certificate status filter, or ALL",
						Value: "ALL",
					},
				}, NewGlobalFlags("acm")...),
				Action: acmListAction,
			},
		},
	}
}
