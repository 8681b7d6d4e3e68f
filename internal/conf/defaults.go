// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "rangelog")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/rangelog.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)
	viper.SetDefault("main.log.rotationday", time.Sunday)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "rangelog.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "rangelog")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "rangelog")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", 3306)

	viper.SetDefault("blobstore.debug", false)
	viper.SetDefault("blobstore.driver", BlobDriverFS)
	viper.SetDefault("blobstore.fs.path", "objects/")
	viper.SetDefault("blobstore.s3.bucket", "")
	viper.SetDefault("blobstore.s3.region", "us-east-1")
	viper.SetDefault("blobstore.s3.endpoint", "")
	viper.SetDefault("blobstore.s3.pathstyle", false)

	viper.SetDefault("images.debug", false)
	viper.SetDefault("images.maxuploadmb", 20)
	viper.SetDefault("images.urlttl", 15*time.Minute)
	viper.SetDefault("images.urlcachettl", 10*time.Minute)

	viper.SetDefault("clone.debug", false)
	viper.SetDefault("clone.auditlog", "logs/clone-audit.log")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.listen", "0.0.0.0:8090")
}
