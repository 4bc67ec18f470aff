package sink

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/mediagate/internal/common"
	"github.com/dmitrijs2005/mediagate/internal/netx"
)

const presignExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// S3Config locates the bucket media is exported to. Empty credentials fall
// back to the default AWS credential chain.
type S3Config struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Prefix       string
}

// S3Sink uploads media to an S3-compatible bucket with presigned PUTs.
type S3Sink struct {
	cfg        S3Config
	httpClient *http.Client
}

func NewS3Sink(cfg S3Config, httpClient *http.Client) *S3Sink {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &S3Sink{cfg: cfg, httpClient: httpClient}
}

func (s *S3Sink) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(s.cfg.Region)}
	if s.cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKey, s.cfg.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	return newS3PresignClient(client), nil
}

// Put uploads data under a fresh key and returns its s3:// location.
func (s *S3Sink) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if contentType == "" {
		contentType = common.MimeOctetStream
	}

	pc, err := s.presignClient(ctx)
	if err != nil {
		return "", err
	}

	key := ObjectKey(s.cfg.Prefix, name)
	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}

	if err := netx.UploadPresigned(ctx, s.httpClient, req.URL, contentType, data); err != nil {
		return "", err
	}
	return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key), nil
}
