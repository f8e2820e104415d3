// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/urfave/cli/v3"

	"github.com/awsadm/awsadm/internal/aws"
	"github.com/awsadm/awsadm/internal/meta"
)

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// clientConfig loads an AWS config honoring the command's --profile and
// --region flags.
func clientConfig(ctx context.Context, cmd *cli.Command) (awsv2.Config, error) {
	return aws.LoadConfig(ctx,
		aws.WithProfile(cmd.String("profile")),
		aws.WithRegion(cmd.String("region")),
	)
}

// namedClientConfig loads an AWS config for an explicit profile, keeping the
// command's --region. Cross-account subcommands use it for their second
// account.
func namedClientConfig(ctx context.Context, cmd *cli.Command, profile string) (awsv2.Config, error) {
	return aws.LoadConfig(ctx,
		aws.WithProfile(profile),
		aws.WithRegion(cmd.String("region")),
	)
}

// Confirm prompts on stderr and reads a yes/no answer from stdin. --yes
// bypasses the prompt.
func Confirm(cmd *cli.Command, prompt string) bool {
	if cmd.Bool("yes") {
		return true
	}

	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// parseParamsJSON decodes a --params JSON object into template parameters.
func parseParamsJSON(raw string) (map[string]interface{}, error) {
	if raw == "" {
		return nil, nil
	}
	var params map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("parse params (must be a JSON object): %w", err)
	}
	return params, nil
}
