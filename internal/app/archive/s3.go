package archive

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sort"
	"strings"

	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	"github.com/R3E-Network/layout_service/internal/app/interchange"
	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures the S3 driver. Works against AWS or any S3-compatible
// endpoint such as MinIO.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// optionFns are applied to the client after the fields above; tests use
	// them to swap the transport.
	optionFns []func(*s3.Options)
}

// Environment variables read by withEnv:
//
//	LAYOUT_ARCHIVE_S3_REGION     (default us-east-1)
//	LAYOUT_ARCHIVE_S3_ENDPOINT   optional, for MinIO
//	LAYOUT_ARCHIVE_S3_PATH_STYLE true|false
//	AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN via the default chain
func (c S3Config) withEnv() S3Config {
	if c.Region == "" {
		c.Region = os.Getenv("LAYOUT_ARCHIVE_S3_REGION")
	}
	if c.Endpoint == "" {
		c.Endpoint = os.Getenv("LAYOUT_ARCHIVE_S3_ENDPOINT")
	}
	if !c.PathStyle {
		c.PathStyle = strings.EqualFold(os.Getenv("LAYOUT_ARCHIVE_S3_PATH_STYLE"), "true")
	}
	return c
}

// S3 keeps snapshots as objects in a single bucket.
type S3 struct {
	client *s3.Client
	bucket string
}

// NewS3 builds an S3 archive from cfg.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, svcerrors.MalformedInput("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, svcerrors.IOFailure(err, "load aws configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		for _, fn := range cfg.optionFns {
			fn(o)
		}
	})
	return &S3{client: client, bucket: cfg.Bucket}, nil
}

func (a *S3) Driver() Driver { return DriverS3 }

func (a *S3) Put(ctx context.Context, key string, l layout.Layout) error {
	name, err := objectName(key)
	if err != nil {
		return err
	}
	data, err := interchange.Marshal(l)
	if err != nil {
		return err
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return svcerrors.IOFailure(err, "put snapshot s3://%s/%s", a.bucket, name)
	}
	return nil
}

func (a *S3) Get(ctx context.Context, key string) (layout.Layout, error) {
	name, err := objectName(key)
	if err != nil {
		return layout.Layout{}, err
	}
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return layout.Layout{}, svcerrors.IOFailure(err, "snapshot s3://%s/%s not found", a.bucket, name)
		}
		return layout.Layout{}, svcerrors.IOFailure(err, "get snapshot s3://%s/%s", a.bucket, name)
	}
	defer out.Body.Close()
	return interchange.Decode(out.Body)
}

func (a *S3) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var token *string
	for {
		out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(a.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, svcerrors.IOFailure(err, "list s3://%s/%s", a.bucket, prefix)
		}
		for _, obj := range out.Contents {
			name := aws.ToString(obj.Key)
			if strings.HasSuffix(name, snapshotExt) {
				keys = append(keys, normalizeKey(name))
			}
		}
		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Strings(keys)
	return keys, nil
}
