package s3

//go:generate go run go.uber.org/mock/mockgen -source=./s3.go -destination=./mocks/s3_mock.go -package=mocks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"parking/config"
	"parking/infras/otel"
	"parking/shared/constant"
)

var ErrDisabled = errors.New("object storage is disabled")

const (
	otelAttrObjectKey = "object_key"
	otelAttrBucket    = "bucket"
)

// S3 stores opaque objects in the configured bucket.
type S3 interface {
	// Enabled reports whether a bucket is configured. Callers skip archiving when it is not.
	Enabled() bool
	PutObject(ctx context.Context, directory, objectName, contentType string, data []byte) (key string, err error)
}

type s3Impl struct {
	Client *s3.Client
	Config *config.Config
	otel   otel.Otel
}

func (svc *s3Impl) Enabled() bool {
	return svc.Client != nil && svc.Config.External.S3.BucketName != constant.Empty
}

func (svc *s3Impl) PutObject(ctx context.Context, directory, objectName, contentType string, data []byte) (key string, err error) {
	ctx, scope := svc.otel.NewScope(ctx, constant.OtelS3ScopeName, constant.OtelS3ScopeName+".PutObject")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if !svc.Enabled() {
		return constant.Empty, ErrDisabled
	}

	bucket := svc.Config.External.S3.BucketName
	key = path.Join(directory, objectName)

	scope.SetAttributes(map[string]any{
		otelAttrObjectKey: key,
		otelAttrBucket:    bucket,
	})

	reader := bytes.NewReader(data)

	_, err = svc.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(reader.Size()),
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to put object to S3")

		return constant.Empty, fmt.Errorf("failed to put object to S3: %w", err)
	}

	return key, nil
}

// New builds the client from static credentials. Without a bucket the archive is disabled
// and no AWS configuration is loaded.
func New(config *config.Config, otel otel.Otel) S3 {
	impl := &s3Impl{Config: config, otel: otel}

	settings := config.External.S3
	if settings.BucketName == constant.Empty {
		log.Info().Msg("object storage disabled: no bucket configured")

		return impl
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(
		context.Background(),
		awsConfig.WithRegion(settings.Region),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(settings.AccessKeyID, settings.SecretAccessKey, "")),
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to load object storage configuration, archive disabled")

		return impl
	}

	impl.Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if settings.APIEndpoint != constant.Empty {
			o.BaseEndpoint = aws.String(settings.APIEndpoint)
			o.UsePathStyle = true
		}
	})

	return impl
}
