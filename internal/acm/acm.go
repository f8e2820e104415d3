// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package acm requests and lists certificates.
package acm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/acm/types"

	"github.com/awsadm/awsadm/internal/log"
)

// API is the ACM surface the commands depend on. *acm.Client satisfies it.
type API interface {
	DescribeCertificate(ctx context.Context, params *acm.DescribeCertificateInput, optFns ...func(*acm.Options)) (*acm.DescribeCertificateOutput, error)
	ListCertificates(ctx context.Context, params *acm.ListCertificatesInput, optFns ...func(*acm.Options)) (*acm.ListCertificatesOutput, error)
	RequestCertificate(ctx context.Context, params *acm.RequestCertificateInput, optFns ...func(*acm.Options)) (*acm.RequestCertificateOutput, error)
}

// RequestCertificate asks ACM for a certificate covering domain and the
// additional names. Validation is "email" or "dns"; email is the default.
func RequestCertificate(ctx context.Context, api API, domain string, additionalNames []string, validation string) (string, error) {
	var method types.ValidationMethod
	switch strings.ToLower(validation) {
	case "", "email":
		method = types.ValidationMethodEmail
	case "dns":
		method = types.ValidationMethodDns
	default:
		return "", fmt.Errorf("unsupported validation method %q (email or dns)", validation)
	}

	input := &acm.RequestCertificateInput{
		DomainName:       aws.String(domain),
		ValidationMethod: method,
	}
	if len(additionalNames) > 0 {
		input.SubjectAlternativeNames = additionalNames
	}

	out, err := api.RequestCertificate(ctx, input)
	if err != nil {
		return "", fmt.Errorf("request certificate for %s: %w", domain, err)
	}
	arn := aws.ToString(out.CertificateArn)
	log.Infof("requested certificate %s (%s validation)", arn, method)
	return arn, nil
}

// Certificate is one row of the certificate listing.
type Certificate struct {
	Arn        string
	DomainName string
	Status     string
	NotBefore  *time.Time
	NotAfter   *time.Time
	InUseBy    []string
}

// ListCertificates drains all certificate summaries, describes each, and
// keeps those matching fqdn. Status "ALL" or "" lists every status.
func ListCertificates(ctx context.Context, api API, fqdn, status string) ([]Certificate, error) {
	input := &acm.ListCertificatesInput{}
	if status != "" && !strings.EqualFold(status, "ALL") {
		input.CertificateStatuses = []types.CertificateStatus{types.CertificateStatus(strings.ToUpper(status))}
	}

	var summaries []types.CertificateSummary
	paginator := acm.NewListCertificatesPaginator(api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list certificates: %w", err)
		}
		summaries = append(summaries, page.CertificateSummaryList...)
	}

	var certs []Certificate
	for _, summary := range summaries {
		out, err := api.DescribeCertificate(ctx, &acm.DescribeCertificateInput{
			CertificateArn: summary.CertificateArn,
		})
		if err != nil {
			return nil, fmt.Errorf("describe certificate %s: %w", aws.ToString(summary.CertificateArn), err)
		}
		detail := out.Certificate
		if !matchFQDN(detail, fqdn) {
			continue
		}
		certs = append(certs, Certificate{
			Arn:        aws.ToString(detail.CertificateArn),
			DomainName: aws.ToString(detail.DomainName),
			Status:     string(detail.Status),
			NotBefore:  detail.NotBefore,
			NotAfter:   detail.NotAfter,
			InUseBy:    detail.InUseBy,
		})
	}
	return certs, nil
}

// matchFQDN reports whether the certificate covers fqdn, either as a
// substring of the primary domain or as an exact alternative name.
func matchFQDN(cert *types.CertificateDetail, fqdn string) bool {
	if fqdn == "" {
		return true
	}
	if strings.Contains(aws.ToString(cert.DomainName), fqdn) {
		return true
	}
	for _, san := range cert.SubjectAlternativeNames {
		if san == fqdn {
			return true
		}
	}
	return false
}
