// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	// Validate Output settings
	if err := validateOutputSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate BlobStore settings
	if err := validateBlobStoreSettings(&settings.BlobStore); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate Image settings
	if err := validateImageSettings(&settings.Images); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate Sentry settings
	if err := validateSentrySettings(&settings.Sentry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// If there are any errors, return the ValidationError
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateOutputSettings validates the relational output settings
func validateOutputSettings(settings *Settings) error {
	var errs []string

	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		errs = append(errs, "at least one of output.sqlite or output.mysql must be enabled")
	}

	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		errs = append(errs, "output.sqlite.path is required when sqlite output is enabled")
	}

	if settings.Output.MySQL.Enabled {
		if settings.Output.MySQL.Database == "" {
			errs = append(errs, "output.mysql.database is required when mysql output is enabled")
		}
		if settings.Output.MySQL.Host == "" {
			errs = append(errs, "output.mysql.host is required when mysql output is enabled")
		}
		if settings.Output.MySQL.Port == "" {
			errs = append(errs, "output.mysql.port is required when mysql output is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("output settings errors: %v", errs)
	}

	return nil
}

// validateBlobStoreSettings validates the object storage settings
func validateBlobStoreSettings(settings *BlobStoreSettings) error {
	switch settings.Driver {
	case BlobDriverFS:
		if settings.FS.Path == "" {
			return errors.New("blobstore.fs.path is required for the fs driver")
		}
	case BlobDriverS3:
		if settings.S3.Bucket == "" {
			return errors.New("blobstore.s3.bucket is required for the s3 driver")
		}
		if settings.S3.Region == "" {
			return errors.New("blobstore.s3.region is required for the s3 driver")
		}
		// Static credentials must come as a pair
		hasAccess := settings.S3.AccessKeyID != ""
		hasSecret := settings.S3.SecretAccessKey != ""
		if hasAccess != hasSecret {
			return errors.New("blobstore.s3 static credentials require both accesskeyid and secretaccesskey")
		}
	case BlobDriverMemory:
		// No settings required, intended for tests
	default:
		return fmt.Errorf("unsupported blobstore driver: %q", settings.Driver)
	}

	return nil
}

// validateImageSettings validates the image handling settings
func validateImageSettings(settings *ImageSettings) error {
	if settings.MaxUploadMB < 1 || settings.MaxUploadMB > 512 {
		return fmt.Errorf("images.maxuploadmb must be between 1 and 512, got %d", settings.MaxUploadMB)
	}

	if settings.URLTTL <= 0 {
		return errors.New("images.urlttl must be positive")
	}

	if settings.URLCacheTTL > settings.URLTTL {
		return errors.New("images.urlcachettl must not exceed images.urlttl, URLs would be served after expiry")
	}

	return nil
}

// validateSentrySettings validates the telemetry settings
func validateSentrySettings(settings *SentrySettings) error {
	if settings.Enabled {
		if settings.DSN == "" {
			return errors.New("sentry.dsn is required when sentry is enabled")
		}
		if !strings.HasPrefix(settings.DSN, "https://") {
			return fmt.Errorf("sentry.dsn must be an https URL, got %q", settings.DSN)
		}
	}
	return nil
}
