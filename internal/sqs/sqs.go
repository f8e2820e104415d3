// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package sqs lists queues by name prefix and substring.
package sqs

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// API is the SQS surface the commands depend on. *sqs.Client satisfies it.
type API interface {
	ListQueues(ctx context.Context, params *sqs.ListQueuesInput, optFns ...func(*sqs.Options)) (*sqs.ListQueuesOutput, error)
}

// ListQueues returns the URLs of queues whose name starts with prefix,
// further filtered to URLs containing substring. The prefix narrows the API
// call; the substring is applied after all pages are drained.
func ListQueues(ctx context.Context, api API, prefix, substring string) ([]string, error) {
	input := &sqs.ListQueuesInput{}
	if prefix != "" {
		input.QueueNamePrefix = aws.String(prefix)
	}

	var urls []string
	paginator := sqs.NewListQueuesPaginator(api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list queues: %w", err)
		}
		urls = append(urls, page.QueueUrls...)
	}

	if substring == "" {
		return urls, nil
	}
	var matched []string
	for _, url := range urls {
		if strings.Contains(url, substring) {
			matched = append(matched, url)
		}
	}
	return matched, nil
}
