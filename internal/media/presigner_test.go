package media

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Endpoint:  "http://127.0.0.1:9000",
		Region:    "us-east-1",
		Bucket:    "fieldcase-media",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	}
}

func restoreSeams(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignGetObject = origGet
	})
}

func TestNewPresigner_AppliesConfig(t *testing.T) {
	restoreSeams(t)

	loadDefaultAWSConfig = func(_ context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(_ aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		require.NotNil(t, c)
		return &s3.PresignClient{}
	}

	p, err := NewPresigner(context.Background(), testConfig())
	require.NoError(t, err)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, defaultURLTTL, p.ttl)
}

func TestNewPresigner_Errors(t *testing.T) {
	restoreSeams(t)

	cfg := testConfig()
	cfg.Bucket = ""
	_, err := NewPresigner(context.Background(), cfg)
	assert.Error(t, err)

	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err = NewPresigner(context.Background(), testConfig())
	assert.EqualError(t, err, "load-fail")
}

func TestPresigner_PresignGet(t *testing.T) {
	restoreSeams(t)

	var gotBucket, gotKey string
	var gotExpires time.Duration
	presignGetObject = func(_ *s3.PresignClient, _ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotBucket, gotKey = aws.ToString(in.Bucket), aws.ToString(in.Key)
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		gotExpires = po.Expires
		return &v4.PresignedHTTPRequest{URL: "http://127.0.0.1:9000/" + gotBucket + "/" + gotKey + "?X-Amz-Signature=abc"}, nil
	}

	p := &Presigner{client: &s3.PresignClient{}, bucket: "fieldcase-media", ttl: 5 * time.Minute}
	u, err := p.PresignGet(context.Background(), "/entries/7/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "fieldcase-media", gotBucket)
	assert.Equal(t, "entries/7/photo.jpg", gotKey)
	assert.Equal(t, 5*time.Minute, gotExpires)

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(parsed.Path, "/entries/7/photo.jpg"))

	_, err = p.PresignGet(context.Background(), "  ")
	assert.Error(t, err)

	presignGetObject = func(*s3.PresignClient, context.Context, *s3.GetObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("sign-fail")
	}
	_, err = p.PresignGet(context.Background(), "k")
	assert.EqualError(t, err, "sign-fail")
}

func TestPresigner_RealSigningProducesQueryAuth(t *testing.T) {
	p, err := NewPresigner(context.Background(), testConfig())
	require.NoError(t, err)

	u, err := p.PresignGet(context.Background(), "entries/1/audio.m4a")
	require.NoError(t, err)
	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", parsed.Host)
	assert.Equal(t, "/fieldcase-media/entries/1/audio.m4a", parsed.Path)
	assert.NotEmpty(t, parsed.Query().Get("X-Amz-Signature"))
	assert.Equal(t, "900", parsed.Query().Get("X-Amz-Expires"))
}
