// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package rds copies encrypted snapshots across accounts with a
// copy-share-copy pipeline.
package rds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/awsadm/awsadm/internal/log"
)

// defaultWaitMax bounds each wait for a snapshot to become available.
const defaultWaitMax = 2 * time.Hour

// API is the RDS surface the commands depend on. *rds.Client satisfies it.
type API interface {
	CopyDBClusterSnapshot(ctx context.Context, params *rds.CopyDBClusterSnapshotInput, optFns ...func(*rds.Options)) (*rds.CopyDBClusterSnapshotOutput, error)
	CopyDBSnapshot(ctx context.Context, params *rds.CopyDBSnapshotInput, optFns ...func(*rds.Options)) (*rds.CopyDBSnapshotOutput, error)
	DescribeDBClusterSnapshots(ctx context.Context, params *rds.DescribeDBClusterSnapshotsInput, optFns ...func(*rds.Options)) (*rds.DescribeDBClusterSnapshotsOutput, error)
	DescribeDBSnapshots(ctx context.Context, params *rds.DescribeDBSnapshotsInput, optFns ...func(*rds.Options)) (*rds.DescribeDBSnapshotsOutput, error)
	ModifyDBClusterSnapshotAttribute(ctx context.Context, params *rds.ModifyDBClusterSnapshotAttributeInput, optFns ...func(*rds.Options)) (*rds.ModifyDBClusterSnapshotAttributeOutput, error)
	ModifyDBSnapshotAttribute(ctx context.Context, params *rds.ModifyDBSnapshotAttributeInput, optFns ...func(*rds.Options)) (*rds.ModifyDBSnapshotAttributeOutput, error)
}

// CopyParams describes one cross-account snapshot copy. TargetSnapshotID
// defaults to SourceSnapshotID. SharedKMSKeyID must be a key the target
// account can use; TargetKMSKeyID re-encrypts the final copy when set.
type CopyParams struct {
	SourceSnapshotID string
	TargetSnapshotID string
	SourceRegion     string
	SourceAccountID  string
	TargetAccountID  string
	SharedKMSKeyID   string
	TargetKMSKeyID   string
}

// Copier moves snapshots from the source account to the target account.
type Copier struct {
	source  API
	target  API
	waitMax time.Duration
}

// NewCopier returns a Copier over clients for the two accounts.
func NewCopier(source, target API) *Copier {
	return &Copier{source: source, target: target, waitMax: defaultWaitMax}
}

// Copy runs the pipeline: copy the snapshot in the source account under a
// KMS key the target can use, share the copy with the target account, then
// copy it again inside the target account. It returns the final snapshot
// identifier.
func (c *Copier) Copy(ctx context.Context, params CopyParams) (string, error) {
	if params.TargetSnapshotID == "" {
		params.TargetSnapshotID = params.SourceSnapshotID
	}

	cluster, err := c.isClusterSnapshot(ctx, params.SourceSnapshotID)
	if err != nil {
		return "", err
	}

	sharedID := params.TargetSnapshotID + "-share"
	if cluster {
		return params.TargetSnapshotID, c.copyCluster(ctx, params, sharedID)
	}
	return params.TargetSnapshotID, c.copyInstance(ctx, params, sharedID)
}

// isClusterSnapshot distinguishes cluster snapshots from instance snapshots
// by probing the cluster snapshot API.
func (c *Copier) isClusterSnapshot(ctx context.Context, snapshotID string) (bool, error) {
	_, err := c.source.DescribeDBClusterSnapshots(ctx, &rds.DescribeDBClusterSnapshotsInput{
		DBClusterSnapshotIdentifier: aws.String(snapshotID),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.DBClusterSnapshotNotFoundFault
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("describe snapshot %s: %w", snapshotID, err)
}

func (c *Copier) copyInstance(ctx context.Context, params CopyParams, sharedID string) error {
	log.Infof("copying instance snapshot %s to %s", params.SourceSnapshotID, sharedID)
	copyInput := &rds.CopyDBSnapshotInput{
		SourceDBSnapshotIdentifier: aws.String(params.SourceSnapshotID),
		TargetDBSnapshotIdentifier: aws.String(sharedID),
	}
	if params.SharedKMSKeyID != "" {
		copyInput.KmsKeyId = aws.String(params.SharedKMSKeyID)
	}
	if _, err := c.source.CopyDBSnapshot(ctx, copyInput); err != nil {
		return fmt.Errorf("copy snapshot %s: %w", params.SourceSnapshotID, err)
	}
	if err := c.waitInstance(ctx, c.source, sharedID); err != nil {
		return err
	}

	log.Infof("sharing %s with account %s", sharedID, params.TargetAccountID)
	_, err := c.source.ModifyDBSnapshotAttribute(ctx, &rds.ModifyDBSnapshotAttributeInput{
		DBSnapshotIdentifier: aws.String(sharedID),
		AttributeName:        aws.String("restore"),
		ValuesToAdd:          []string{params.TargetAccountID},
	})
	if err != nil {
		return fmt.Errorf("share snapshot %s: %w", sharedID, err)
	}

	sharedARN := fmt.Sprintf("arn:aws:rds:%s:%s:snapshot:%s", params.SourceRegion, params.SourceAccountID, sharedID)
	log.Infof("copying %s into the target account as %s", sharedARN, params.TargetSnapshotID)
	targetInput := &rds.CopyDBSnapshotInput{
		SourceDBSnapshotIdentifier: aws.String(sharedARN),
		TargetDBSnapshotIdentifier: aws.String(params.TargetSnapshotID),
	}
	if params.TargetKMSKeyID != "" {
		targetInput.KmsKeyId = aws.String(params.TargetKMSKeyID)
	}
	if _, err := c.target.CopyDBSnapshot(ctx, targetInput); err != nil {
		return fmt.Errorf("copy shared snapshot %s: %w", sharedARN, err)
	}
	return c.waitInstance(ctx, c.target, params.TargetSnapshotID)
}

func (c *Copier) copyCluster(ctx context.Context, params CopyParams, sharedID string) error {
	log.Infof("copying cluster snapshot %s to %s", params.SourceSnapshotID, sharedID)
	copyInput := &rds.CopyDBClusterSnapshotInput{
		SourceDBClusterSnapshotIdentifier: aws.String(params.SourceSnapshotID),
		TargetDBClusterSnapshotIdentifier: aws.String(sharedID),
	}
	if params.SharedKMSKeyID != "" {
		copyInput.KmsKeyId = aws.String(params.SharedKMSKeyID)
	}
	if _, err := c.source.CopyDBClusterSnapshot(ctx, copyInput); err != nil {
		return fmt.Errorf("copy cluster snapshot %s: %w", params.SourceSnapshotID, err)
	}
	if err := c.waitCluster(ctx, c.source, sharedID); err != nil {
		return err
	}

	log.Infof("sharing %s with account %s", sharedID, params.TargetAccountID)
	_, err := c.source.ModifyDBClusterSnapshotAttribute(ctx, &rds.ModifyDBClusterSnapshotAttributeInput{
		DBClusterSnapshotIdentifier: aws.String(sharedID),
		AttributeName:               aws.String("restore"),
		ValuesToAdd:                 []string{params.TargetAccountID},
	})
	if err != nil {
		return fmt.Errorf("share cluster snapshot %s: %w", sharedID, err)
	}

	sharedARN := fmt.Sprintf("arn:aws:rds:%s:%s:cluster-snapshot:%s", params.SourceRegion, params.SourceAccountID, sharedID)
	log.Infof("copying %s into the target account as %s", sharedARN, params.TargetSnapshotID)
	targetInput := &rds.CopyDBClusterSnapshotInput{
		SourceDBClusterSnapshotIdentifier: aws.String(sharedARN),
		TargetDBClusterSnapshotIdentifier: aws.String(params.TargetSnapshotID),
	}
	if params.TargetKMSKeyID != "" {
		targetInput.KmsKeyId = aws.String(params.TargetKMSKeyID)
	}
	if _, err := c.target.CopyDBClusterSnapshot(ctx, targetInput); err != nil {
		return fmt.Errorf("copy shared cluster snapshot %s: %w", sharedARN, err)
	}
	return c.waitCluster(ctx, c.target, params.TargetSnapshotID)
}

func (c *Copier) waitInstance(ctx context.Context, api API, snapshotID string) error {
	log.Debugf("waiting for snapshot %s to become available", snapshotID)
	waiter := rds.NewDBSnapshotAvailableWaiter(api)
	err := waiter.Wait(ctx, &rds.DescribeDBSnapshotsInput{
		DBSnapshotIdentifier: aws.String(snapshotID),
	}, c.waitMax)
	if err != nil {
		return fmt.Errorf("wait for snapshot %s: %w", snapshotID, err)
	}
	return nil
}

func (c *Copier) waitCluster(ctx context.Context, api API, snapshotID string) error {
	log.Debugf("waiting for cluster snapshot %s to become available", snapshotID)
	waiter := rds.NewDBClusterSnapshotAvailableWaiter(api)
	err := waiter.Wait(ctx, &rds.DescribeDBClusterSnapshotsInput{
		DBClusterSnapshotIdentifier: aws.String(snapshotID),
	}, c.waitMax)
	if err != nil {
		return fmt.Errorf("wait for cluster snapshot %s: %w", snapshotID, err)
	}
	return nil
}
