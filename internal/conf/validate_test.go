package conf

import (
	"strings"
	"testing"
	"time"
)

func TestValidateBlobStoreSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings BlobStoreSettings
		wantErr  bool
	}{
		{
			name: "fs driver with path - should pass",
			settings: BlobStoreSettings{
				Driver: BlobDriverFS,
				FS:     FSBlobSettings{Path: "objects/"},
			},
			wantErr: false,
		},
		{
			name: "fs driver without path - should fail",
			settings: BlobStoreSettings{
				Driver: BlobDriverFS,
			},
			wantErr: true,
		},
		{
			name: "s3 driver with bucket and region - should pass",
			settings: BlobStoreSettings{
				Driver: BlobDriverS3,
				S3:     S3BlobSettings{Bucket: "rangelog", Region: "eu-north-1"},
			},
			wantErr: false,
		},
		{
			name: "s3 driver without bucket - should fail",
			settings: BlobStoreSettings{
				Driver: BlobDriverS3,
				S3:     S3BlobSettings{Region: "eu-north-1"},
			},
			wantErr: true,
		},
		{
			name: "s3 driver with access key but no secret - should fail",
			settings: BlobStoreSettings{
				Driver: BlobDriverS3,
				S3: S3BlobSettings{
					Bucket:      "rangelog",
					Region:      "eu-north-1",
					AccessKeyID: "AKIA123",
				},
			},
			wantErr: true,
		},
		{
			name: "s3 driver with full static credentials - should pass",
			settings: BlobStoreSettings{
				Driver: BlobDriverS3,
				S3: S3BlobSettings{
					Bucket:          "rangelog",
					Region:          "eu-north-1",
					Endpoint:        "http://minio:9000",
					PathStyle:       true,
					AccessKeyID:     "AKIA123",
					SecretAccessKey: "secret",
				},
			},
			wantErr: false,
		},
		{
			name: "memory driver - should pass",
			settings: BlobStoreSettings{
				Driver: BlobDriverMemory,
			},
			wantErr: false,
		},
		{
			name: "unknown driver - should fail",
			settings: BlobStoreSettings{
				Driver: "ftp",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateBlobStoreSettings(&tt.settings)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateBlobStoreSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateImageSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings ImageSettings
		wantErr  bool
	}{
		{
			name: "sane defaults - should pass",
			settings: ImageSettings{
				MaxUploadMB: 20,
				URLTTL:      15 * time.Minute,
				URLCacheTTL: 10 * time.Minute,
			},
			wantErr: false,
		},
		{
			name: "zero upload size - should fail",
			settings: ImageSettings{
				MaxUploadMB: 0,
				URLTTL:      15 * time.Minute,
			},
			wantErr: true,
		},
		{
			name: "cache ttl exceeding url ttl - should fail",
			settings: ImageSettings{
				MaxUploadMB: 20,
				URLTTL:      5 * time.Minute,
				URLCacheTTL: 10 * time.Minute,
			},
			wantErr: true,
		},
		{
			name: "non-positive url ttl - should fail",
			settings: ImageSettings{
				MaxUploadMB: 20,
				URLTTL:      0,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateImageSettings(&tt.settings)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateImageSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateOutputSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
		errPart string
	}{
		{
			name:   "sqlite enabled with path - should pass",
			mutate: func(s *Settings) {},
		},
		{
			name: "no output enabled - should fail",
			mutate: func(s *Settings) {
				s.Output.SQLite.Enabled = false
			},
			wantErr: true,
			errPart: "at least one",
		},
		{
			name: "sqlite enabled without path - should fail",
			mutate: func(s *Settings) {
				s.Output.SQLite.Path = ""
			},
			wantErr: true,
			errPart: "output.sqlite.path",
		},
		{
			name: "mysql enabled without database - should fail",
			mutate: func(s *Settings) {
				s.Output.SQLite.Enabled = false
				s.Output.MySQL.Enabled = true
				s.Output.MySQL.Host = "localhost"
				s.Output.MySQL.Port = "3306"
			},
			wantErr: true,
			errPart: "output.mysql.database",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := &Settings{}
			settings.Output.SQLite.Enabled = true
			settings.Output.SQLite.Path = "rangelog.db"
			tt.mutate(settings)

			err := validateOutputSettings(settings)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateOutputSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && tt.errPart != "" && !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("validateOutputSettings() error = %v, want it to mention %q", err, tt.errPart)
			}
		})
	}
}

func TestValidateSentrySettings(t *testing.T) {
	tests := []struct {
		name     string
		settings SentrySettings
		wantErr  bool
	}{
		{
			name:     "disabled - should pass regardless of dsn",
			settings: SentrySettings{Enabled: false},
		},
		{
			name:     "enabled without dsn - should fail",
			settings: SentrySettings{Enabled: true},
			wantErr:  true,
		},
		{
			name:     "enabled with http dsn - should fail",
			settings: SentrySettings{Enabled: true, DSN: "http://abc@sentry.example.com/1"},
			wantErr:  true,
		},
		{
			name:     "enabled with https dsn - should pass",
			settings: SentrySettings{Enabled: true, DSN: "https://abc@sentry.example.com/1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSentrySettings(&tt.settings)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateSentrySettings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
