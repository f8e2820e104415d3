// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gammazero/workerpool"
	"github.com/hashicorp/go-multierror"

	"github.com/awsadm/awsadm/internal/log"
)

// copyWorkers bounds the concurrent object copies.
const copyWorkers = 10

// CopyParams describes a bucket-to-bucket copy. Source and destination may
// be backed by clients in different regions.
type CopyParams struct {
	SourceBucket      string
	SourcePrefix      string
	DestinationBucket string
	DestinationPrefix string
	Include           string
	Exclude           string
}

// CopyObjects copies every object under the source prefix to the
// destination, rewriting the prefix and applying the include/exclude
// patterns. Copies run on a bounded worker pool; per-object failures are
// collected and reported together.
func CopyObjects(ctx context.Context, source, destination API, params CopyParams) (int, error) {
	keys, err := listKeys(ctx, source, params.SourceBucket, params.SourcePrefix)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		log.Infof("no objects found in bucket %s with prefix %q", params.SourceBucket, params.SourcePrefix)
		return 0, nil
	}

	var (
		mu     sync.Mutex
		copied int
		errs   *multierror.Error
	)

	wp := workerpool.New(copyWorkers)
	for _, key := range keys {
		if !includeKey(key, params.Include, params.Exclude) {
			continue
		}
		destKey := destinationKey(key, params.SourcePrefix, params.DestinationPrefix)

		wp.Submit(func() {
			_, err := destination.CopyObject(ctx, &s3.CopyObjectInput{
				Bucket:     aws.String(params.DestinationBucket),
				Key:        aws.String(destKey),
				CopySource: aws.String(copySource(params.SourceBucket, key)),
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierror.Append(errs,
					fmt.Errorf("copy %s/%s to %s/%s: %w", params.SourceBucket, key, params.DestinationBucket, destKey, err))
				return
			}
			copied++
			log.Infof("copied %s/%s to %s/%s", params.SourceBucket, key, params.DestinationBucket, destKey)
		})
	}
	wp.StopWait()

	return copied, errs.ErrorOrNil()
}

// copySource builds the x-amz-copy-source value. The key path has to be
// percent-encoded or characters like ? and # corrupt the header.
func copySource(bucket, key string) string {
	u := url.URL{Path: bucket + "/" + key}
	return u.EscapedPath()
}

// destinationKey rewrites an object key from the source prefix to the
// destination prefix.
func destinationKey(key, sourcePrefix, destinationPrefix string) string {
	relative := strings.TrimPrefix(strings.TrimPrefix(key, sourcePrefix), "/")
	if destinationPrefix == "" {
		return relative
	}
	return strings.TrimSuffix(destinationPrefix, "/") + "/" + relative
}

// UpdateObjectsEncryption re-encrypts every object under the prefix by
// copying it onto itself with the new server-side encryption settings.
// Exactly one of kmsKeyID or sseS3 must be in effect.
func UpdateObjectsEncryption(ctx context.Context, api API, bucketName, prefix, kmsKeyID string, sseS3 bool) (int, error) {
	keys, err := listKeys(ctx, api, bucketName, prefix)
	if err != nil {
		return 0, err
	}
	log.Infof("found %d objects in bucket %s with prefix %q", len(keys), bucketName, prefix)

	updated := 0
	for _, key := range keys {
		input := &s3.CopyObjectInput{
			Bucket:     aws.String(bucketName),
			Key:        aws.String(key),
			CopySource: aws.String(copySource(bucketName, key)),
		}
		switch {
		case kmsKeyID != "":
			input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
			input.SSEKMSKeyId = aws.String(kmsKeyID)
		case sseS3:
			input.ServerSideEncryption = types.ServerSideEncryptionAes256
		default:
			return updated, fmt.Errorf("no encryption method specified")
		}

		if _, err := api.CopyObject(ctx, input); err != nil {
			return updated, fmt.Errorf("re-encrypt object %s: %w", key, err)
		}
		updated++
		log.Debugf("re-encrypted object: key=%s", key)
	}
	return updated, nil
}
