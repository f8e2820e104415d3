// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package s3 implements bucket provisioning, tagging, object copying, and
// encryption maintenance.
package s3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/awsadm/awsadm/internal/log"
	"github.com/awsadm/awsadm/internal/policy"
)

// API is the S3 surface the commands depend on. *s3.Client satisfies it.
type API interface {
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	GetBucketTagging(ctx context.Context, params *s3.GetBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error)
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutBucketEncryption(ctx context.Context, params *s3.PutBucketEncryptionInput, optFns ...func(*s3.Options)) (*s3.PutBucketEncryptionOutput, error)
	PutBucketLifecycleConfiguration(ctx context.Context, params *s3.PutBucketLifecycleConfigurationInput, optFns ...func(*s3.Options)) (*s3.PutBucketLifecycleConfigurationOutput, error)
	PutBucketLogging(ctx context.Context, params *s3.PutBucketLoggingInput, optFns ...func(*s3.Options)) (*s3.PutBucketLoggingOutput, error)
	PutBucketPolicy(ctx context.Context, params *s3.PutBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error)
	PutBucketTagging(ctx context.Context, params *s3.PutBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.PutBucketTaggingOutput, error)
	PutBucketVersioning(ctx context.Context, params *s3.PutBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.PutBucketVersioningOutput, error)
}

// ListBuckets returns all bucket names, optionally filtered by substring.
func ListBuckets(ctx context.Context, api API, substring string) ([]string, error) {
	out, err := api.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	var names []string
	for _, bucket := range out.Buckets {
		name := aws.ToString(bucket.Name)
		if substring == "" || strings.Contains(name, substring) {
			names = append(names, name)
		}
	}
	return names, nil
}

// CreateBucketParams carries the optional bucket provisioning steps applied
// after creation. Zero values skip the corresponding step.
type CreateBucketParams struct {
	BucketName     string
	Region         string
	ACL            string
	SSE            string // "s3" or "kms"
	KMSKeyID       string
	PolicyTemplate string
	AccountID      string
	Versioning     string // "enabled" or "suspended"
	LogTarget      string
	LogPrefix      string
	LifecyclePath  string
}

// CreateBucket creates a bucket and applies the requested encryption,
// policy, versioning, logging, and lifecycle configuration in order. The
// first failing step aborts.
func CreateBucket(ctx context.Context, api API, params CreateBucketParams) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(params.BucketName)}
	if params.ACL != "" {
		input.ACL = types.BucketCannedACL(params.ACL)
	}
	// us-east-1 rejects an explicit location constraint.
	if params.Region != "" && params.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(params.Region),
		}
	}
	if _, err := api.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("create bucket %s: %w", params.BucketName, err)
	}
	log.Infof("created bucket %s", params.BucketName)

	if params.SSE != "" {
		if err := putEncryption(ctx, api, params); err != nil {
			return err
		}
	}
	if params.PolicyTemplate != "" {
		if err := putPolicy(ctx, api, params); err != nil {
			return err
		}
	}
	if params.Versioning != "" {
		status := types.BucketVersioningStatusSuspended
		if params.Versioning == "enabled" {
			status = types.BucketVersioningStatusEnabled
		}
		_, err := api.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
			Bucket:                  aws.String(params.BucketName),
			VersioningConfiguration: &types.VersioningConfiguration{Status: status},
		})
		if err != nil {
			return fmt.Errorf("set versioning on bucket %s: %w", params.BucketName, err)
		}
		log.Infof("set versioning to %s on bucket %s", params.Versioning, params.BucketName)
	}
	if params.LogTarget != "" {
		_, err := api.PutBucketLogging(ctx, &s3.PutBucketLoggingInput{
			Bucket: aws.String(params.BucketName),
			BucketLoggingStatus: &types.BucketLoggingStatus{
				LoggingEnabled: &types.LoggingEnabled{
					TargetBucket: aws.String(params.LogTarget),
					TargetPrefix: aws.String(params.LogPrefix),
				},
			},
		})
		if err != nil {
			return fmt.Errorf("enable logging on bucket %s: %w", params.BucketName, err)
		}
		log.Infof("enabled access logging on bucket %s to %s/%s", params.BucketName, params.LogTarget, params.LogPrefix)
	}
	if params.LifecyclePath != "" {
		if err := PutLifecycle(ctx, api, params.BucketName, params.LifecyclePath); err != nil {
			return err
		}
	}
	return nil
}

func putEncryption(ctx context.Context, api API, params CreateBucketParams) error {
	rule := types.ServerSideEncryptionRule{
		ApplyServerSideEncryptionByDefault: &types.ServerSideEncryptionByDefault{
			SSEAlgorithm: types.ServerSideEncryptionAes256,
		},
	}
	if params.SSE == "kms" {
		rule.ApplyServerSideEncryptionByDefault.SSEAlgorithm = types.ServerSideEncryptionAwsKms
		rule.ApplyServerSideEncryptionByDefault.KMSMasterKeyID = aws.String(params.KMSKeyID)
	}
	_, err := api.PutBucketEncryption(ctx, &s3.PutBucketEncryptionInput{
		Bucket: aws.String(params.BucketName),
		ServerSideEncryptionConfiguration: &types.ServerSideEncryptionConfiguration{
			Rules: []types.ServerSideEncryptionRule{rule},
		},
	})
	if err != nil {
		return fmt.Errorf("enable encryption on bucket %s: %w", params.BucketName, err)
	}
	log.Infof("enabled %s encryption on bucket %s", strings.ToUpper(params.SSE), params.BucketName)
	return nil
}

func putPolicy(ctx context.Context, api API, params CreateBucketParams) error {
	kmsKeyArn := ""
	if params.KMSKeyID != "" {
		kmsKeyArn = fmt.Sprintf("arn:aws:kms:%s:%s:key/%s", params.Region, params.AccountID, params.KMSKeyID)
	}
	rendered, err := policy.Render(params.PolicyTemplate, policy.TemplateData{
		AccountID: params.AccountID,
		Region:    params.Region,
		Params: map[string]interface{}{
			"BucketName": params.BucketName,
			"KMSKeyArn":  kmsKeyArn,
		},
	})
	if err != nil {
		return err
	}
	_, err = api.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(params.BucketName),
		Policy: aws.String(rendered),
	})
	if err != nil {
		return fmt.Errorf("apply policy to bucket %s: %w", params.BucketName, err)
	}
	log.Infof("applied policy from %s to bucket %s", params.PolicyTemplate, params.BucketName)
	return nil
}

// PutLifecycle applies the lifecycle configuration JSON file to the bucket.
func PutLifecycle(ctx context.Context, api API, bucketName, lifecyclePath string) error {
	raw, err := os.ReadFile(lifecyclePath)
	if err != nil {
		return fmt.Errorf("read lifecycle configuration: %w", err)
	}
	var config types.BucketLifecycleConfiguration
	if err := json.Unmarshal(raw, &config); err != nil {
		return fmt.Errorf("parse lifecycle configuration %s: %w", lifecyclePath, err)
	}
	_, err = api.PutBucketLifecycleConfiguration(ctx, &s3.PutBucketLifecycleConfigurationInput{
		Bucket:                 aws.String(bucketName),
		LifecycleConfiguration: &config,
	})
	if err != nil {
		return fmt.Errorf("apply lifecycle to bucket %s: %w", bucketName, err)
	}
	log.Infof("applied lifecycle configuration from %s to bucket %s", lifecyclePath, bucketName)
	return nil
}

// Tag writes tags on a bucket. With merge set, existing tags are fetched
// first and the new ones layered on top; otherwise the tag set is replaced
// wholesale.
func Tag(ctx context.Context, api API, bucketName string, tags []policy.Tag, merge bool) error {
	tagSet := make([]types.Tag, 0, len(tags))

	if merge {
		current, err := api.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{Bucket: aws.String(bucketName)})
		if err != nil {
			var apiErr smithy.APIError
			if !errors.As(err, &apiErr) || apiErr.ErrorCode() != "NoSuchTagSet" {
				return fmt.Errorf("get tags for bucket %s: %w", bucketName, err)
			}
		} else {
			// Keep existing tags that are not being overwritten.
			for _, tag := range current.TagSet {
				overwritten := false
				for _, t := range tags {
					if t.Key == aws.ToString(tag.Key) {
						overwritten = true
						break
					}
				}
				if !overwritten {
					tagSet = append(tagSet, tag)
				}
			}
		}
	}

	for _, t := range tags {
		tagSet = append(tagSet, types.Tag{Key: aws.String(t.Key), Value: aws.String(t.Value)})
	}

	_, err := api.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
		Bucket:  aws.String(bucketName),
		Tagging: &types.Tagging{TagSet: tagSet},
	})
	if err != nil {
		return fmt.Errorf("put tags on bucket %s: %w", bucketName, err)
	}
	log.Infof("set %d tags on bucket %s", len(tagSet), bucketName)
	return nil
}

// listKeys drains all object keys under a prefix.
func listKeys(ctx context.Context, api API, bucketName, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(api, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucketName),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects in bucket %s: %w", bucketName, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// includeKey applies the include/exclude glob patterns to an object key.
// Exclude wins over include.
func includeKey(key, include, exclude string) bool {
	if exclude != "" {
		if ok, _ := path.Match(exclude, key); ok {
			return false
		}
	}
	if include != "" {
		ok, _ := path.Match(include, key)
		return ok
	}
	return true
}
