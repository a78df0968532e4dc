// Package storage resolves stored attachment paths to fetchable URLs.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Resolver struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	region     string
	publicRead bool
	urlTTL     time.Duration
}

func NewResolver(ctx context.Context, region, bucket string, publicRead bool, urlTTL time.Duration) (*Resolver, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg)
	return &Resolver{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     bucket,
		region:     region,
		publicRead: publicRead,
		urlTTL:     urlTTL,
	}, nil
}

// ResolveURL maps an object key to a publicly fetchable URL: a plain bucket
// URL for public-read buckets, a presigned one otherwise.
func (r *Resolver) ResolveURL(ctx context.Context, key string) (string, error) {
	if r.publicRead {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", r.bucket, r.region, url.PathEscape(key)), nil
	}
	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(r.urlTTL))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
