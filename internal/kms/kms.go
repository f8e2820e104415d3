// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package kms provisions customer managed keys with templated key policies.
package kms

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	"github.com/awsadm/awsadm/internal/log"
	"github.com/awsadm/awsadm/internal/policy"
)

// API is the KMS surface the commands depend on. *kms.Client satisfies it.
type API interface {
	CreateAlias(ctx context.Context, params *kms.CreateAliasInput, optFns ...func(*kms.Options)) (*kms.CreateAliasOutput, error)
	CreateKey(ctx context.Context, params *kms.CreateKeyInput, optFns ...func(*kms.Options)) (*kms.CreateKeyOutput, error)
	EnableKeyRotation(ctx context.Context, params *kms.EnableKeyRotationInput, optFns ...func(*kms.Options)) (*kms.EnableKeyRotationOutput, error)
}

// CreateKeyParams describes a key to provision. PolicyTemplate is rendered
// with the account ID and region before the key is created.
type CreateKeyParams struct {
	Alias          string
	Description    string
	PolicyTemplate string
	AccountID      string
	Region         string
	Params         map[string]interface{}
	EnableRotation bool
}

// CreateKey creates a customer managed key, optionally turns on annual
// rotation, and points alias/<Alias> at it. It returns the new key ID.
func CreateKey(ctx context.Context, api API, params CreateKeyParams) (string, error) {
	input := &kms.CreateKeyInput{}
	if params.Description != "" {
		input.Description = aws.String(params.Description)
	}
	if params.PolicyTemplate != "" {
		doc, err := policy.Render(params.PolicyTemplate, policy.TemplateData{
			AccountID: params.AccountID,
			Region:    params.Region,
			Params:    params.Params,
		})
		if err != nil {
			return "", fmt.Errorf("render key policy: %w", err)
		}
		input.Policy = aws.String(doc)
	}

	out, err := api.CreateKey(ctx, input)
	if err != nil {
		return "", fmt.Errorf("create key: %w", err)
	}
	keyID := aws.ToString(out.KeyMetadata.KeyId)
	log.Infof("created key %s", keyID)

	if params.EnableRotation {
		if _, err := api.EnableKeyRotation(ctx, &kms.EnableKeyRotationInput{KeyId: aws.String(keyID)}); err != nil {
			return keyID, fmt.Errorf("enable rotation for %s: %w", keyID, err)
		}
		log.Debugf("enabled rotation for %s", keyID)
	}

	if params.Alias != "" {
		alias := params.Alias
		if !strings.HasPrefix(alias, "alias/") {
			alias = "alias/" + alias
		}
		if _, err := api.CreateAlias(ctx, &kms.CreateAliasInput{
			AliasName:   aws.String(alias),
			TargetKeyId: aws.String(keyID),
		}); err != nil {
			return keyID, fmt.Errorf("create alias %s: %w", alias, err)
		}
		log.Infof("created alias %s", alias)
	}
	return keyID, nil
}
