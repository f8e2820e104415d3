// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"regexp"

	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/urfave/cli/v3"

	"github.com/awsadm/awsadm/internal/aws"
	"github.com/awsadm/awsadm/internal/iam"
	"github.com/awsadm/awsadm/internal/log"
	"github.com/awsadm/awsadm/internal/meta"
	"github.com/awsadm/awsadm/internal/output"
	"github.com/awsadm/awsadm/internal/policy"
)

// compilePattern compiles a --pattern value, treating "" as match-all.
func compilePattern(spec string) (*regexp.Regexp, error) {
	if spec == "" {
		return nil, nil
	}
	pattern, err := regexp.Compile(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", spec, err)
	}
	return pattern, nil
}

// sourceRepository builds an IAM repository for the command's own profile.
func sourceRepository(ctx context.Context, cmd *cli.Command) (*iam.Repository, error) {
	cfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return iam.NewRepository(aws.NewIAM(cfg)), nil
}

func iamRolesAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	pattern, err := compilePattern(cmd.String("pattern"))
	if err != nil {
		return err
	}
	repo, err := sourceRepository(ctx, cmd)
	if err != nil {
		return err
	}

	roles, err := repo.ListRoles(ctx, pattern)
	if err != nil {
		return err
	}

	resultSet := make([]map[string]interface{}, 0, len(roles))
	for _, role := range roles {
		row := map[string]interface{}{
			"name": awsString(role.RoleName),
			"arn":  awsString(role.Arn),
			"path": awsString(role.Path),
		}
		if role.CreateDate != nil {
			row["created"] = role.CreateDate.Format("2006-01-02")
		}
		resultSet = append(resultSet, row)
	}

	output.Spit(resultSet, output.Cols("name", "path", "created", "arn"), cmd, os.Stdout)
	return nil
}

func iamCopyRoleAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	roleName := cmd.String("role")
	replacements, err := policy.ParseReplacements(cmd.String("replace"))
	if err != nil {
		return err
	}

	sourceCfg, err := namedClientConfig(ctx, cmd, cmd.String("source-profile"))
	if err != nil {
		return err
	}
	targetCfg, err := namedClientConfig(ctx, cmd, cmd.String("target-profile"))
	if err != nil {
		return err
	}

	copier := iam.NewCopier(
		iam.NewRepository(aws.NewIAM(sourceCfg)),
		iam.NewRepository(aws.NewIAM(targetCfg)),
	)
	return copier.Copy(ctx, roleName, replacements)
}

func iamCopyRolePoliciesAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	repo, err := sourceRepository(ctx, cmd)
	if err != nil {
		return err
	}
	return iam.CopyRolePolicies(ctx, repo, cmd.String("source-role"), cmd.String("target-role"))
}

func iamReportAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	cfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return err
	}
	repo := iam.NewRepository(aws.NewIAM(cfg))

	report, err := repo.Report(ctx, aws.NewServiceQuotas(cfg), cmd.String("role"))
	if err != nil {
		return err
	}

	resultSet := make([]map[string]interface{}, 0, len(report.Policies))
	for _, entry := range report.Policies {
		resultSet = append(resultSet, map[string]interface{}{
			"name":  entry.Name,
			"type":  entry.Type,
			"bytes": entry.SizeBytes,
		})
	}
	output.Spit(resultSet, output.Cols("name", "type", "bytes"), cmd, os.Stdout)

	fmt.Printf("inline policy bytes: %d of %d\n", report.InlineBytes, report.InlineLimit)
	fmt.Printf("managed policies attached: %d of %d\n", report.ManagedCount, report.ManagedLimit)
	if report.InlineExceeded() {
		log.Warnf("role %s is at or over the inline policy size quota", report.RoleName)
	}
	if report.ManagedExceeded() {
		log.Warnf("role %s is at or over the managed policy count quota", report.RoleName)
	}
	return nil
}

func iamCheckPermissionAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	repo, err := sourceRepository(ctx, cmd)
	if err != nil {
		return err
	}

	matches, err := repo.CheckPermission(ctx,
		cmd.String("role"), cmd.String("service"), cmd.String("action"), cmd.String("resource"))
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Println("permission not granted")
		return nil
	}

	resultSet := make([]map[string]interface{}, 0, len(matches))
	for _, match := range matches {
		row := map[string]interface{}{
			"policy": match.PolicyName,
			"type":   match.PolicyType,
			"arn":    match.PolicyArn,
		}
		if match.Conditions != nil {
			row["conditions"] = output.InterfaceToString(match.Conditions)
		}
		resultSet = append(resultSet, row)
	}
	output.Spit(resultSet, output.Cols("policy", "type", "conditions", "arn"), cmd, os.Stdout)
	return nil
}

func iamAddTrustAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	repo, err := sourceRepository(ctx, cmd)
	if err != nil {
		return err
	}
	return repo.AddTrustStatement(ctx, cmd.String("role"), iam.TrustStatementParams{
		Principal: cmd.String("principal"),
		Action:    cmd.String("action"),
		Effect:    cmd.String("effect"),
		Condition: cmd.String("condition"),
	})
}

func iamAttachAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	repo, err := sourceRepository(ctx, cmd)
	if err != nil {
		return err
	}
	arn, err := repo.ResolvePolicyArn(ctx, cmd.String("policy"), iamtypes.PolicyScopeTypeAll)
	if err != nil {
		return err
	}
	return repo.AttachPolicy(ctx, cmd.String("role"), arn)
}

func iamDetachAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	repo, err := sourceRepository(ctx, cmd)
	if err != nil {
		return err
	}
	arn, err := repo.ResolvePolicyArn(ctx, cmd.String("policy"), iamtypes.PolicyScopeTypeAll)
	if err != nil {
		return err
	}
	return repo.DetachPolicy(ctx, cmd.String("role"), arn)
}

func iamRolesWithPolicyAction(ctx context.Context, cmd *cli.Command) error {
	return iamUsageListing(ctx, cmd, (*iam.Repository).RolesWithPolicy)
}

func iamRolesWithoutPolicyAction(ctx context.Context, cmd *cli.Command) error {
	return iamUsageListing(ctx, cmd, (*iam.Repository).RolesWithoutPolicy)
}

// iamUsageListing runs one of the usage-reporting role listings and emits
// the rows.
func iamUsageListing(
	ctx context.Context,
	cmd *cli.Command,
	list func(*iam.Repository, context.Context, string, *regexp.Regexp) ([]iam.RoleUsage, error)) error {

	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	pattern, err := compilePattern(cmd.String("pattern"))
	if err != nil {
		return err
	}
	repo, err := sourceRepository(ctx, cmd)
	if err != nil {
		return err
	}

	usages, err := list(repo, ctx, cmd.String("policy"), pattern)
	if err != nil {
		return err
	}

	resultSet := make([]map[string]interface{}, 0, len(usages))
	for _, usage := range usages {
		resultSet = append(resultSet, map[string]interface{}{
			"name":         usage.RoleName,
			"inline_bytes": usage.InlineBytes,
			"inline":       usage.InlineCount,
			"managed":      usage.ManagedCount,
		})
	}
	output.Spit(resultSet, output.Cols("name", "inline", "inline_bytes", "managed"), cmd, os.Stdout)
	return nil
}

func iamRolesWithoutInlineAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	pattern, err := compilePattern(cmd.String("pattern"))
	if err != nil {
		return err
	}
	repo, err := sourceRepository(ctx, cmd)
	if err != nil {
		return err
	}

	roleNames, err := repo.RolesWithoutInlinePolicy(ctx, cmd.String("policy"), pattern)
	if err != nil {
		return err
	}

	resultSet := make([]map[string]interface{}, 0, len(roleNames))
	for _, name := range roleNames {
		resultSet = append(resultSet, map[string]interface{}{"name": name})
	}
	output.Spit(resultSet, output.Cols("name"), cmd, os.Stdout)
	return nil
}

// renderPolicyTemplate renders a policy template with the caller's account
// ID, region, and --params values.
func renderPolicyTemplate(ctx context.Context, cmd *cli.Command, templateFile string) (policy.Document, error) {
	cfg, err := clientConfig(ctx, cmd)
	if err != nil {
		return nil, err
	}
	accountID, err := aws.AccountID(ctx, aws.NewSTS(cfg))
	if err != nil {
		return nil, err
	}
	params, err := parseParamsJSON(cmd.String("params"))
	if err != nil {
		return nil, err
	}

	return policy.RenderDocument(templateFile, policy.TemplateData{
		AccountID: accountID,
		Region:    cfg.Region,
		Params:    params,
	})
}

func iamCreateRoleAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	trust, err := renderPolicyTemplate(ctx, cmd, cmd.String("trust-template"))
	if err != nil {
		return err
	}

	repo, err := sourceRepository(ctx, cmd)
	if err != nil {
		return err
	}
	role, err := repo.CreateRole(ctx, iam.CreateRoleParams{
		RoleName:    cmd.String("role"),
		TrustPolicy: trust,
		Description: cmd.String("description"),
		Path:        cmd.String("path"),
		Tags:        policyTags(cmd.StringSlice("tag")),
	})
	if err != nil {
		return err
	}
	log.Infof("created role %s", awsString(role.Arn))
	return nil
}

func iamCreatePolicyAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	doc, err := renderPolicyTemplate(ctx, cmd, cmd.String("template"))
	if err != nil {
		return err
	}
	repo, err := sourceRepository(ctx, cmd)
	if err != nil {
		return err
	}

	if roleName := cmd.String("role"); roleName != "" {
		return repo.PutInlinePolicy(ctx, roleName, cmd.String("name"), doc)
	}

	created, err := repo.CreateManagedPolicy(ctx, cmd.String("name"), doc, cmd.String("description"))
	if err != nil {
		return err
	}
	log.Infof("created policy %s", awsString(created.Arn))
	return nil
}

// policyTags converts Key=Value arguments into IAM tags.
func policyTags(args []string) []iamtypes.Tag {
	var tags []iamtypes.Tag
	for _, tag := range policy.ParseTags(args) {
		key, value := tag.Key, tag.Value
		tags = append(tags, iamtypes.Tag{Key: &key, Value: &value})
	}
	return tags
}

// awsString dereferences an SDK string pointer for display.
func awsString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// iamCommandBuilder constructs the cli.Command for "iam", wiring metadata,
// flags, and action handlers for the role and policy subcommands.
func iamCommandBuilder(m meta.Meta) *cli.Command {
	patternFlag := &cli.StringFlag{
		Name:  "pattern",
		Usage: "regular expression filter on role names",
	}
	roleFlag := &cli.StringFlag{
		Name:     "role",
		Usage:    "role name",
		Required: true,
	}
	policyFlag := &cli.StringFlag{
		Name:     "policy",
		Usage:    "managed policy name or ARN",
		Required: true,
	}
	paramsFlag := &cli.StringFlag{
		Name:  "params",
		Usage: "extra template parameters as a JSON object",
	}

	return &cli.Command{
		Name:  "iam",
		Usage: "IAM role and policy administration",
		Metadata: map[string]any{
			"meta": m,
		},
		Commands: []*cli.Command{
			{
				Name:      "roles",
				Usage:     "list roles",
				UsageText: "awsadm iam roles [options]",
				Flags:     append([]cli.Flag{patternFlag}, NewGlobalFlags("iam")...),
				Action:    iamRolesAction,
			},
			{
				Name:      "copy-role",
				Usage:     "replicate a role into another account",
				UsageText: "awsadm iam copy-role --role NAME --source-profile SRC --target-profile DST [options]",
				Flags: append([]cli.Flag{
					roleFlag,
					&cli.StringFlag{
						Name:     "source-profile",
						Usage:    "profile of the account that owns the role",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "target-profile",
						Usage:    "profile of the account to copy the role into",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "replace",
						Usage: "comma-separated old=new substring rewrites applied to policy documents",
					},
				}, NewGlobalFlags("iam")...),
				Action: iamCopyRoleAction,
			},
			{
				Name:      "copy-role-policies",
				Usage:     "copy one role's policies onto another role in the same account",
				UsageText: "awsadm iam copy-role-policies --source-role SRC --target-role DST [options]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "source-role",
						Usage:    "role to copy policies from",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "target-role",
						Usage:    "role to copy policies onto",
						Required: true,
					},
				}, NewGlobalFlags("iam")...),
				Action: iamCopyRolePoliciesAction,
			},
			{
				Name:      "report",
				Usage:     "report a role's policy usage against its quotas",
				UsageText: "awsadm iam report --role NAME [options]",
				Flags:     append([]cli.Flag{roleFlag}, NewGlobalFlags("iam")...),
				Action:    iamReportAction,
			},
			{
				Name:      "check-permission",
				Usage:     "check whether a role allows an action on a resource",
				UsageText: "awsadm iam check-permission --role NAME --service svc --action act [options]",
				Flags: append([]cli.Flag{
					roleFlag,
					&cli.StringFlag{
						Name:     "service",
						Usage:    "service prefix, e.g. s3",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "action",
						Usage:    "action name, e.g. GetObject",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "resource",
						Usage: "resource ARN to test",
						Value: "*",
					},
				}, NewGlobalFlags("iam")...),
				Action: iamCheckPermissionAction,
			},
			{
				Name:      "add-trust",
				Usage:     "append a statement to a role's trust policy",
				UsageText: "awsadm iam add-trust --role NAME --principal P [options]",
				Flags: append([]cli.Flag{
					roleFlag,
					&cli.StringFlag{
						Name:     "principal",
						Usage:    "AWS principal ARN or service principal",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "action",
						Usage: "trust policy action",
						Value: "sts:AssumeRole",
					},
					&cli.StringFlag{
						Name:  "effect",
						Usage: "statement effect",
						Value: "Allow",
					},
					&cli.StringFlag{
						Name:  "condition",
						Usage: "statement condition as a JSON object",
					},
				}, NewGlobalFlags("iam")...),
				Action: iamAddTrustAction,
			},
			{
				Name:      "attach",
				Usage:     "attach a managed policy to a role",
				UsageText: "awsadm iam attach --role NAME --policy NAME [options]",
				Flags:     append([]cli.Flag{roleFlag, policyFlag}, NewGlobalFlags("iam")...),
				Action:    iamAttachAction,
			},
			{
				Name:      "detach",
				Usage:     "detach a managed policy from a role",
				UsageText: "awsadm iam detach --role NAME --policy NAME [options]",
				Flags:     append([]cli.Flag{roleFlag, policyFlag}, NewGlobalFlags("iam")...),
				Action:    iamDetachAction,
			},
			{
				Name:      "roles-with-policy",
				Usage:     "list roles with a managed policy attached",
				UsageText: "awsadm iam roles-with-policy --policy NAME [options]",
				Flags:     append([]cli.Flag{policyFlag, patternFlag}, NewGlobalFlags("iam")...),
				Action:    iamRolesWithPolicyAction,
			},
			{
				Name:      "roles-without-policy",
				Usage:     "list roles lacking a managed policy",
				UsageText: "awsadm iam roles-without-policy --policy NAME [options]",
				Flags:     append([]cli.Flag{policyFlag, patternFlag}, NewGlobalFlags("iam")...),
				Action:    iamRolesWithoutPolicyAction,
			},
			{
				Name:      "roles-without-inline",
				Usage:     "list roles lacking an inline policy",
				UsageText: "awsadm iam roles-without-inline --policy NAME [options]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "policy",
						Usage:    "inline policy name",
						Required: true,
					},
					patternFlag,
				}, NewGlobalFlags("iam")...),
				Action: iamRolesWithoutInlineAction,
			},
			{
				Name:      "create-role",
				Usage:     "create a role from a trust policy template",
				UsageText: "awsadm iam create-role --role NAME --trust-template FILE [options]",
				Flags: append([]cli.Flag{
					roleFlag,
					&cli.StringFlag{
						Name:     "trust-template",
						Usage:    "trust policy template file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "role description",
					},
					&cli.StringFlag{
						Name:  "path",
						Usage: "role path",
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Key=Value tag, repeatable",
					},
					paramsFlag,
				}, NewGlobalFlags("iam")...),
				Action: iamCreateRoleAction,
			},
			{
				Name:      "create-policy",
				Usage:     "create a managed policy, or an inline policy when --role is set",
				UsageText: "awsadm iam create-policy --name NAME --template FILE [options]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "policy name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "template",
						Usage:    "policy document template file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "role",
						Usage: "attach as an inline policy on this role",
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "policy description",
					},
					paramsFlag,
				}, NewGlobalFlags("iam")...),
				Action: iamCreatePolicyAction,
			},
		},
	}
}
