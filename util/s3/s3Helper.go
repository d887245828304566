// Copyright (C) 2019-2025 Algorand, Inc.
// This file is part of go-provenance
//
// go-provenance is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-provenance is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-provenance.  If not, see <https://www.gnu.org/licenses/>.

package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const s3DefaultRegion = "us-east-1"

// ErrNoSuchKey is returned when the requested object does not exist.
var ErrNoSuchKey = errors.New("s3: no such key")

// Helper encapsulates the s3 session state for interacting with one bucket with appropriate credentials
type Helper struct {
	svc    *s3.S3
	bucket string
}

// Options selects the bucket and the service to talk to.
type Options struct {
	Bucket string
	Region string
	// Endpoint overrides the AWS endpoint, for S3-compatible stores. Requests
	// then use path-style addressing.
	Endpoint string
	// Credentials default to the AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables.
	Credentials *credentials.Credentials
}

func getAWSCredentials() (awsID string, awsKey string) {
	awsID, _ = os.LookupEnv("AWS_ACCESS_KEY_ID")
	awsKey, _ = os.LookupEnv("AWS_SECRET_ACCESS_KEY")
	return
}

func validateS3Params(awsID string, awsKey string, awsBucket string) (err error) {
	if awsID == "" || awsKey == "" {
		err = fmt.Errorf("unable to open bucket. Credentials must be specified in AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY")
		return
	}
	if awsBucket == "" {
		err = fmt.Errorf("unable to open bucket, bucket name is empty")
		return
	}
	return
}

// MakeS3Session returns a Helper for opts.Bucket.
func MakeS3Session(opts Options) (helper Helper, err error) {
	creds := opts.Credentials
	if creds == nil {
		awsID, awsKey := getAWSCredentials()
		err = validateS3Params(awsID, awsKey, opts.Bucket)
		if err != nil {
			return
		}
		creds = credentials.NewStaticCredentials(awsID, awsKey, "")
	} else if opts.Bucket == "" {
		err = fmt.Errorf("unable to open bucket, bucket name is empty")
		return
	}

	region := opts.Region
	if region == "" {
		region = s3DefaultRegion
	}
	cfg := &aws.Config{
		Region:      aws.String(region),
		Credentials: creds,
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return
	}
	helper = Helper{
		svc:    s3.New(sess),
		bucket: opts.Bucket,
	}
	return
}

// UploadObject stores data under key.
func (helper *Helper) UploadObject(ctx context.Context, key string, data []byte) error {
	_, err := helper.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(helper.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

// DownloadObject returns the object stored under key.
func (helper *Helper) DownloadObject(ctx context.Context, key string) ([]byte, error) {
	out, err := helper.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(helper.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrNoSuchKey)
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// HasObject reports whether key exists.
func (helper *Helper) HasObject(ctx context.Context, key string) (bool, error) {
	_, err := helper.svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(helper.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isNotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var awsErr awserr.Error
	return errors.As(err, &awsErr) && awsErr.Code() == s3.ErrCodeNoSuchKey
}
