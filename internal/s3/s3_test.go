// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awsadm/awsadm/internal/policy"
)

type noSuchTagSetError struct{}

func (e *noSuchTagSetError) Error() string     { return "NoSuchTagSet: no tags" }
func (e *noSuchTagSetError) ErrorCode() string { return "NoSuchTagSet" }
func (e *noSuchTagSetError) ErrorMessage() string {
	return "The TagSet does not exist"
}
func (e *noSuchTagSetError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// fakeS3 is an in-memory bucket backend. Object listings page per pageSize.
// Provisioning calls record their step name and input so tests can assert
// the sequence CreateBucket runs through.
type fakeS3 struct {
	mu       sync.Mutex
	pageSize int

	buckets []string
	objects map[string]map[string]types.ServerSideEncryption
	tags    map[string][]types.Tag

	copyCalls   int
	copySources []string

	steps           []string
	createInput     *awss3.CreateBucketInput
	encryptionInput *awss3.PutBucketEncryptionInput
	policyInput     *awss3.PutBucketPolicyInput
	versioningInput *awss3.PutBucketVersioningInput
	loggingInput    *awss3.PutBucketLoggingInput
	lifecycleInput  *awss3.PutBucketLifecycleConfigurationInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		pageSize: 10,
		objects:  map[string]map[string]types.ServerSideEncryption{},
		tags:     map[string][]types.Tag{},
	}
}

func (f *fakeS3) addObject(bucket, key string) {
	if f.objects[bucket] == nil {
		f.objects[bucket] = map[string]types.ServerSideEncryption{}
	}
	f.objects[bucket][key] = ""
}

func (f *fakeS3) sortedKeys(bucket, prefix string) []string {
	var keys []string
	for key := range f.objects[bucket] {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeS3) ListBuckets(_ context.Context, _ *awss3.ListBucketsInput, _ ...func(*awss3.Options)) (*awss3.ListBucketsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var buckets []types.Bucket
	for _, name := range f.buckets {
		buckets = append(buckets, types.Bucket{Name: aws.String(name)})
	}
	return &awss3.ListBucketsOutput{Buckets: buckets}, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, params *awss3.CreateBucketInput, _ ...func(*awss3.Options)) (*awss3.CreateBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets = append(f.buckets, aws.ToString(params.Bucket))
	f.steps = append(f.steps, "create")
	f.createInput = params
	return &awss3.CreateBucketOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, params *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := f.sortedKeys(aws.ToString(params.Bucket), aws.ToString(params.Prefix))

	start := 0
	if params.ContinuationToken != nil {
		start, _ = strconv.Atoi(aws.ToString(params.ContinuationToken))
	}
	end := start + f.pageSize
	out := &awss3.ListObjectsV2Output{}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	} else {
		end = len(keys)
	}
	for _, key := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	return out, nil
}

func (f *fakeS3) CopyObject(_ context.Context, params *awss3.CopyObjectInput, _ ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copyCalls++
	f.copySources = append(f.copySources, aws.ToString(params.CopySource))
	bucket := aws.ToString(params.Bucket)
	if f.objects[bucket] == nil {
		f.objects[bucket] = map[string]types.ServerSideEncryption{}
	}
	f.objects[bucket][aws.ToString(params.Key)] = params.ServerSideEncryption
	return &awss3.CopyObjectOutput{}, nil
}

func (f *fakeS3) GetBucketTagging(_ context.Context, params *awss3.GetBucketTaggingInput, _ ...func(*awss3.Options)) (*awss3.GetBucketTaggingOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tags, ok := f.tags[aws.ToString(params.Bucket)]
	if !ok {
		return nil, &noSuchTagSetError{}
	}
	return &awss3.GetBucketTaggingOutput{TagSet: tags}, nil
}

func (f *fakeS3) PutBucketTagging(_ context.Context, params *awss3.PutBucketTaggingInput, _ ...func(*awss3.Options)) (*awss3.PutBucketTaggingOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags[aws.ToString(params.Bucket)] = params.Tagging.TagSet
	return &awss3.PutBucketTaggingOutput{}, nil
}

func (f *fakeS3) PutBucketEncryption(_ context.Context, params *awss3.PutBucketEncryptionInput, _ ...func(*awss3.Options)) (*awss3.PutBucketEncryptionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, "encryption")
	f.encryptionInput = params
	return &awss3.PutBucketEncryptionOutput{}, nil
}

func (f *fakeS3) PutBucketLifecycleConfiguration(_ context.Context, params *awss3.PutBucketLifecycleConfigurationInput, _ ...func(*awss3.Options)) (*awss3.PutBucketLifecycleConfigurationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, "lifecycle")
	f.lifecycleInput = params
	return &awss3.PutBucketLifecycleConfigurationOutput{}, nil
}

func (f *fakeS3) PutBucketLogging(_ context.Context, params *awss3.PutBucketLoggingInput, _ ...func(*awss3.Options)) (*awss3.PutBucketLoggingOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, "logging")
	f.loggingInput = params
	return &awss3.PutBucketLoggingOutput{}, nil
}

func (f *fakeS3) PutBucketPolicy(_ context.Context, params *awss3.PutBucketPolicyInput, _ ...func(*awss3.Options)) (*awss3.PutBucketPolicyOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, "policy")
	f.policyInput = params
	return &awss3.PutBucketPolicyOutput{}, nil
}

func (f *fakeS3) PutBucketVersioning(_ context.Context, params *awss3.PutBucketVersioningInput, _ ...func(*awss3.Options)) (*awss3.PutBucketVersioningOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, "versioning")
	f.versioningInput = params
	return &awss3.PutBucketVersioningOutput{}, nil
}

func TestListBucketsSubstring(t *testing.T) {
	api := newFakeS3()
	api.buckets = []string{"data-prod-archive", "data-dev-archive", "logs-prod"}

	names, err := ListBuckets(context.Background(), api, "prod")
	require.NoError(t, err)
	assert.Equal(t, []string{"data-prod-archive", "logs-prod"}, names)

	names, err = ListBuckets(context.Background(), api, "")
	require.NoError(t, err)
	assert.Len(t, names, 3)
}

func TestCreateBucketRunsProvisioningSteps(t *testing.T) {
	dir := t.TempDir()
	policyPath := filepath.Join(dir, "bucket-policy.json.tmpl")
	require.NoError(t, os.WriteFile(policyPath, []byte(
		`{"Version":"2012-10-17","Statement":[{"Effect":"Deny","Principal":"*","Action":"s3:*","Resource":"arn:aws:s3:::{{.Params.BucketName}}/*"}]}`), 0o600))
	lifecyclePath := filepath.Join(dir, "lifecycle.json")
	require.NoError(t, os.WriteFile(lifecyclePath, []byte(
		`{"Rules":[{"ID":"expire","Status":"Enabled","Expiration":{"Days":30}}]}`), 0o600))

	api := newFakeS3()
	err := CreateBucket(context.Background(), api, CreateBucketParams{
		BucketName:     "data-archive",
		Region:         "eu-west-1",
		ACL:            "private",
		SSE:            "kms",
		KMSKeyID:       "key-1234",
		PolicyTemplate: policyPath,
		AccountID:      "111122223333",
		Versioning:     "enabled",
		LogTarget:      "log-bucket",
		LogPrefix:      "archive/",
		LifecyclePath:  lifecyclePath,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"create", "encryption", "policy", "versioning", "logging", "lifecycle"}, api.steps)

	require.NotNil(t, api.createInput.CreateBucketConfiguration)
	assert.Equal(t, types.BucketLocationConstraintEuWest1, api.createInput.CreateBucketConfiguration.LocationConstraint)
	assert.Equal(t, types.BucketCannedACLPrivate, api.createInput.ACL)

	rule := api.encryptionInput.ServerSideEncryptionConfiguration.Rules[0]
	assert.Equal(t, types.ServerSideEncryptionAwsKms, rule.ApplyServerSideEncryptionByDefault.SSEAlgorithm)
	assert.Equal(t, "key-1234", aws.ToString(rule.ApplyServerSideEncryptionByDefault.KMSMasterKeyID))

	assert.Contains(t, aws.ToString(api.policyInput.Policy), "arn:aws:s3:::data-archive/*")
	assert.Equal(t, types.BucketVersioningStatusEnabled, api.versioningInput.VersioningConfiguration.Status)
	assert.Equal(t, "log-bucket", aws.ToString(api.loggingInput.BucketLoggingStatus.LoggingEnabled.TargetBucket))
	assert.Equal(t, "archive/", aws.ToString(api.loggingInput.BucketLoggingStatus.LoggingEnabled.TargetPrefix))
	require.Len(t, api.lifecycleInput.LifecycleConfiguration.Rules, 1)
	assert.Equal(t, "expire", aws.ToString(api.lifecycleInput.LifecycleConfiguration.Rules[0].ID))
}

func TestCreateBucketUsEast1SkipsLocationConstraint(t *testing.T) {
	api := newFakeS3()
	err := CreateBucket(context.Background(), api, CreateBucketParams{
		BucketName: "plain",
		Region:     "us-east-1",
		Versioning: "suspended",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"create", "versioning"}, api.steps)
	assert.Nil(t, api.createInput.CreateBucketConfiguration)
	assert.Equal(t, types.BucketVersioningStatusSuspended, api.versioningInput.VersioningConfiguration.Status)
}

func TestTagReplaceAll(t *testing.T) {
	api := newFakeS3()
	api.tags["data"] = []types.Tag{
		{Key: aws.String("Stale"), Value: aws.String("yes")},
	}

	err := Tag(context.Background(), api, "data", []policy.Tag{{Key: "Env", Value: "prod"}}, false)
	require.NoError(t, err)

	require.Len(t, api.tags["data"], 1)
	assert.Equal(t, "Env", aws.ToString(api.tags["data"][0].Key))
}

func TestTagMergePreservesExisting(t *testing.T) {
	api := newFakeS3()
	api.tags["data"] = []types.Tag{
		{Key: aws.String("Team"), Value: aws.String("platform")},
		{Key: aws.String("Env"), Value: aws.String("dev")},
	}

	err := Tag(context.Background(), api, "data", []policy.Tag{{Key: "Env", Value: "prod"}}, true)
	require.NoError(t, err)

	got := map[string]string{}
	for _, tag := range api.tags["data"] {
		got[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	assert.Equal(t, map[string]string{"Team": "platform", "Env": "prod"}, got)
}

func TestTagMergeNoExistingTagSet(t *testing.T) {
	api := newFakeS3()

	err := Tag(context.Background(), api, "fresh", []policy.Tag{{Key: "Env", Value: "prod"}}, true)
	require.NoError(t, err)
	require.Len(t, api.tags["fresh"], 1)
}

func TestCopyObjectsRewritesPrefix(t *testing.T) {
	source := newFakeS3()
	source.pageSize = 2
	for i := 0; i < 5; i++ {
		source.addObject("src", fmt.Sprintf("in/file-%d.txt", i))
	}
	source.addObject("src", "in/skip.log")
	destination := newFakeS3()

	copied, err := CopyObjects(context.Background(), source, destination, CopyParams{
		SourceBucket:      "src",
		SourcePrefix:      "in",
		DestinationBucket: "dst",
		DestinationPrefix: "out",
		Include:           "*.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, copied)

	for i := 0; i < 5; i++ {
		_, ok := destination.objects["dst"][fmt.Sprintf("out/file-%d.txt", i)]
		assert.True(t, ok, "file-%d should land under the destination prefix", i)
	}
	_, ok := destination.objects["dst"]["out/skip.log"]
	assert.False(t, ok)
}

func TestCopyObjectsEncodesCopySource(t *testing.T) {
	source := newFakeS3()
	source.addObject("src", "in/report?v=2#final.txt")
	destination := newFakeS3()

	copied, err := CopyObjects(context.Background(), source, destination, CopyParams{
		SourceBucket:      "src",
		SourcePrefix:      "in",
		DestinationBucket: "dst",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, copied)
	require.Len(t, destination.copySources, 1)
	assert.Equal(t, "src/in/report%3Fv=2%23final.txt", destination.copySources[0])
}

func TestIncludeKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		include string
		exclude string
		want    bool
	}{
		{name: "no patterns", key: "a.txt", want: true},
		{name: "include match", key: "a.txt", include: "*.txt", want: true},
		{name: "include miss", key: "a.log", include: "*.txt", want: false},
		{name: "exclude wins", key: "a.txt", include: "*.txt", exclude: "a.*", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, includeKey(tt.key, tt.include, tt.exclude))
		})
	}
}

func TestUpdateObjectsEncryption(t *testing.T) {
	api := newFakeS3()
	api.addObject("data", "reports/q1.csv")
	api.addObject("data", "reports/q2.csv")
	api.addObject("data", "other/readme.md")

	updated, err := UpdateObjectsEncryption(context.Background(), api, "data", "reports/", "key-1234", false)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	assert.Equal(t, types.ServerSideEncryptionAwsKms, api.objects["data"]["reports/q1.csv"])
	assert.Equal(t, types.ServerSideEncryption(""), api.objects["data"]["other/readme.md"])
}

func TestUpdateObjectsEncryptionRequiresMethod(t *testing.T) {
	api := newFakeS3()
	api.addObject("data", "file.txt")

	_, err := UpdateObjectsEncryption(context.Background(), api, "data", "", "", false)
	require.Error(t, err)
}
