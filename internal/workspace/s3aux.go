package workspace

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Aux wraps a Memory workspace (for events/streams/config, which
// stay in-process for the lifetime of a run) and backs InsertAux and
// GetAux with real S3 objects, grounded on the pack's S3 client
// wrapper (github.com/GeoNet/kit/aws/s3): group becomes a key prefix,
// key the object suffix, joined with "/".
type S3Aux struct {
	*Memory

	client *s3.Client
	bucket string
}

// NewS3Aux returns an S3Aux storing auxiliary blobs in bucket, using
// the default AWS credentials chain (environment, config files, EC2
// and ECS roles). AWS_REGION must be set in the environment.
func NewS3Aux(ctx context.Context, bucket string, mem *Memory) (*S3Aux, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("workspace: loading AWS config: %w", err)
	}
	return &S3Aux{
		Memory: mem,
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

func auxKey(group, key string) string {
	return group + "/" + key
}

func (s *S3Aux) InsertAux(group, key string, data []byte) error {
	input := s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(auxKey(group, key)),
		Body:   bytes.NewReader(data),
	}
	_, err := s.client.PutObject(context.Background(), &input)
	if err != nil {
		return fmt.Errorf("workspace: putting aux object %s/%s: %w", group, key, err)
	}
	return nil
}

func (s *S3Aux) GetAux(group, key string) ([]byte, error) {
	input := s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(auxKey(group, key)),
	}
	result, err := s.client.GetObject(context.Background(), &input)
	if err != nil {
		return nil, fmt.Errorf("workspace: getting aux object %s/%s: %w", group, key, err)
	}
	defer result.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(result.Body); err != nil {
		return nil, fmt.Errorf("workspace: reading aux object %s/%s: %w", group, key, err)
	}
	return buf.Bytes(), nil
}
