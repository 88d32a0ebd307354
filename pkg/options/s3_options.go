package options

import (
	"github.com/spf13/pflag"
)

var _ IOptions = (*S3Options)(nil)

// S3Options configures the archive of the most recent snapshot.
type S3Options struct {
	// Enabled turns the archive on.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	Endpoint        string `json:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `json:"access-key-id" mapstructure:"access-key-id"`
	SecretAccessKey string `json:"secret-access-key" mapstructure:"secret-access-key"`
	UseSSL          bool   `json:"use-ssl" mapstructure:"use-ssl"`
	BucketName      string `json:"bucket-name" mapstructure:"bucket-name"`
	Region          string `json:"region" mapstructure:"region"`

	// InsecureSkipVerify disables certificate verification for self-signed endpoints.
	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`

	// ObjectKey is overwritten on every settled cycle. Only one snapshot is ever kept.
	ObjectKey string `json:"object-key" mapstructure:"object-key"`
}

// NewS3Options returns S3Options with the archive disabled.
func NewS3Options() *S3Options {
	return &S3Options{
		Enabled:    false,
		Endpoint:   "localhost:9000",
		UseSSL:     true,
		BucketName: "motwatch",
		Region:     "us-east-1",
		ObjectKey:  "snapshots/latest.json",
	}
}

// Validate checks the endpoint, bucket and key when the archive is enabled.
func (o *S3Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.Endpoint == "" {
		errs = append(errs, errRequired("s3.endpoint"))
	}
	if o.BucketName == "" {
		errs = append(errs, errRequired("s3.bucket-name"))
	}
	if o.ObjectKey == "" {
		errs = append(errs, errRequired("s3.object-key"))
	}
	return errs
}

// AddFlags adds the S3 flags to fs.
func (o *S3Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "s3.enabled", o.Enabled, "Archive the latest snapshot to S3 compatible storage after every settled cycle.")
	fs.StringVar(&o.Endpoint, "s3.endpoint", o.Endpoint, "S3 service endpoint (e.g. s3.amazonaws.com or minio.local:9000)")
	fs.StringVar(&o.AccessKeyID, "s3.access-key-id", o.AccessKeyID, "S3 access key ID")
	fs.StringVar(&o.SecretAccessKey, "s3.secret-access-key", o.SecretAccessKey, "S3 secret access key")
	fs.BoolVar(&o.UseSSL, "s3.use-ssl", o.UseSSL, "Enable SSL for S3 connection")
	fs.StringVar(&o.BucketName, "s3.bucket-name", o.BucketName, "S3 bucket name for the snapshot archive")
	fs.StringVar(&o.Region, "s3.region", o.Region, "S3 region")
	fs.BoolVar(&o.InsecureSkipVerify, "s3.insecure-skip-verify", o.InsecureSkipVerify, "If true, skips the TLS certificate verification.")
	fs.StringVar(&o.ObjectKey, "s3.object-key", o.ObjectKey, "Object key the latest snapshot is written to")
}
