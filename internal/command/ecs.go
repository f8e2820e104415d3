// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/awsadm/awsadm/internal/aws"
	"github.com/awsadm/awsadm/internal/ecs"
	"github.com/awsadm/awsadm/internal/log"
	"github.com/awsadm/awsadm/internal/meta"
	"github.com/awsadm/awsadm/internal/output"
)

func ecsListAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	cfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return err
	}

	manager := ecs.NewManager(aws.NewECS(cfg))
	arns, err := manager.ListTaskDefinitions(ctx, cmd.String("family"))
	if err != nil {
		return err
	}

	resultSet := make([]map[string]interface{}, 0, len(arns))
	for _, arn := range arns {
		resultSet = append(resultSet, map[string]interface{}{"arn": arn})
	}
	output.Spit(resultSet, output.Cols("arn"), cmd, os.Stdout)
	return nil
}

func ecsDeregisterAction(ctx context.Context, cmd *cli.Command) error {
	return ecsRetireAction(ctx, cmd, false)
}

func ecsDeleteAction(ctx context.Context, cmd *cli.Command) error {
	return ecsRetireAction(ctx, cmd, true)
}

func ecsRetireAction(ctx context.Context, cmd *cli.Command, remove bool) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	family := cmd.String("family")
	verb, past := "deregister", "deregistered"
	if remove {
		verb, past = "delete", "deleted"
	}
	if !Confirm(cmd, fmt.Sprintf("%s all task definitions in family %q?", verb, family)) {
		log.Infof("aborted")
		return nil
	}

	cfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return err
	}
	manager := ecs.NewManager(aws.NewECS(cfg))

	var done int
	if remove {
		done, err = manager.Delete(ctx, family)
	} else {
		done, err = manager.Deregister(ctx, family)
	}
	if err != nil {
		return err
	}
	log.Infof("%s %d task definitions", past, done)
	return nil
}

// ecsCommandBuilder constructs the cli.Command for "ecs".
func ecsCommandBuilder(m meta.Meta) *cli.Command {
	familyFlag := &cli.StringFlag{
		Name:     "family",
		Aliases:  []string{"f"},
		Usage:    "task definition family prefix",
		Required: true,
	}

	return &cli.Command{
		Name:  "ecs",
		Usage: "ECS task definition administration",
		Metadata: map[string]any{
			"meta": m,
		},
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "list task definitions in a family",
				UsageText: "awsadm ecs list --family PREFIX [options]",
				Flags:     append([]cli.Flag{familyFlag}, NewGlobalFlags("ecs")...),
				Action:    ecsListAction,
			},
			{
				Name:      "deregister",
				Usage:     "deregister all task definitions in a family",
				UsageText: "awsadm ecs deregister --family PREFIX [options]",
				Flags:     append([]cli.Flag{familyFlag, NewYesFlag()}, NewGlobalFlags("ecs")...),
				Action:    ecsDeregisterAction,
			},
			{
				Name:      "delete",
				Usage:     "deregister and delete all task definitions in a family",
				UsageText: "awsadm ecs delete --family PREFIX [options]",
				Flags:     append([]cli.Flag{familyFlag, NewYesFlag()}, NewGlobalFlags("ecs")...),
				Action:    ecsDeleteAction,
			},
		},
	}
}
