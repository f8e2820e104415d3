// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package lambda

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/awsadm/awsadm/internal/log"
)

// metricPeriod is the CloudWatch aggregation period for the error rate
// report.
const metricPeriod = 5 * time.Minute

// MetricsAPI is the CloudWatch surface the error rate report depends on.
// *cloudwatch.Client satisfies it.
type MetricsAPI interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// ErrorRate is one function's invocation and error totals over the report
// window.
type ErrorRate struct {
	FunctionName string
	Invocations  float64
	Errors       float64
	RatePercent  float64
}

// ErrorRates sums each function's Invocations and Errors metrics over the
// trailing hour and reports the error percentage, sorted worst first.
func ErrorRates(ctx context.Context, api API, metrics MetricsAPI, now time.Time) ([]ErrorRate, error) {
	start := now.Add(-time.Hour)

	var rates []ErrorRate
	paginator := lambda.NewListFunctionsPaginator(api, &lambda.ListFunctionsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list functions: %w", err)
		}
		for _, fn := range page.Functions {
			name := aws.ToString(fn.FunctionName)
			log.Tracef("checking function %s", name)

			invocations, err := sumMetric(ctx, metrics, name, "Invocations", start, now)
			if err != nil {
				return nil, err
			}
			errors, err := sumMetric(ctx, metrics, name, "Errors", start, now)
			if err != nil {
				return nil, err
			}

			rate := ErrorRate{FunctionName: name, Invocations: invocations, Errors: errors}
			if invocations > 0 {
				rate.RatePercent = errors / invocations * 100
			}
			rates = append(rates, rate)
		}
	}

	sort.Slice(rates, func(i, j int) bool {
		if rates[i].RatePercent != rates[j].RatePercent {
			return rates[i].RatePercent > rates[j].RatePercent
		}
		return rates[i].FunctionName < rates[j].FunctionName
	})
	return rates, nil
}

// sumMetric totals one AWS/Lambda metric's Sum datapoints for a function.
func sumMetric(ctx context.Context, metrics MetricsAPI, functionName, metricName string, start, end time.Time) (float64, error) {
	out, err := metrics.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/Lambda"),
		MetricName: aws.String(metricName),
		Dimensions: []cwtypes.Dimension{{
			Name:  aws.String("FunctionName"),
			Value: aws.String(functionName),
		}},
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(int32(metricPeriod.Seconds())),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticSum},
	})
	if err != nil {
		return 0, fmt.Errorf("get %s for %s: %w", metricName, functionName, err)
	}

	var total float64
	for _, dp := range out.Datapoints {
		total += aws.ToFloat64(dp.Sum)
	}
	return total, nil
}
