package container

import (
	"fmt"
	"time"
)

// Options is parsed by humacli from flags and SERVICE_* environment variables.
type Options struct {
	Port       int    `default:"8888" help:"Port to listen on"                                         short:"p"`
	BaseURL    string `default:""     help:"Public base URL of short links, http://localhost:<port> when empty"`
	CodeLength int    `default:"6"    help:"Length of generated short codes (6-10)"                      short:"c"`

	LogFormat     string `default:"console" help:"Log encoding: console or json"`
	LogLevel      string `default:"info"    help:"Minimum log level"`
	LogFile       string `default:""        help:"Also write JSON logs to this file, rotated by size"`
	LogMaxSizeMB  int    `default:"100"     help:"Rotate the log file after this many megabytes"`
	LogMaxBackups int    `default:"5"       help:"Rotated log files to keep"`

	Store           string `default:"memory"                                              help:"Link store: memory, postgres or sqlite"`
	DatabaseURL     string `default:"postgres://localhost:5432/shortlink?sslmode=disable" help:"PostgreSQL connection string"`
	SQLitePath      string `default:"shortlink.db"                                        help:"SQLite file, or a libsql:// URL"`
	RedisAddr       string `default:"localhost:6379"                                      help:"Redis server address" short:"r"`
	CacheTTLSeconds int    `default:"0"                                                   help:"Redis read cache TTL for links, 0 disables the cache"`

	Broker        string `default:"gochannel" help:"Visit event transport: gochannel or redis"`
	ConsumerGroup string `default:"shortlink-analytics" help:"Redis stream consumer group"`

	GeoIPPath    string `default:""   help:"MaxMind GeoIP2/GeoLite2 City database, geolocation is off when empty"`
	GeoTimeoutMS int    `default:"50" help:"Upper bound for one geolocation lookup in milliseconds"`

	QRColor        string `default:"#000000"  help:"QR foreground color as #RRGGBB"`
	QRSize         int    `default:"256"      help:"QR image size in pixels"`
	QRTimeoutMS    int    `default:"2000"     help:"Upper bound for rendering and storing one QR image in milliseconds"`
	QRStore        string `default:"memory"   help:"QR image store: memory or minio"`
	MinioEndpoint  string `default:"localhost:9000" help:"MinIO or S3 endpoint"`
	MinioAccessKey string `default:""         help:"MinIO access key"`
	MinioSecretKey string `default:""         help:"MinIO secret key"`
	MinioBucket    string `default:"shortlink-qr" help:"Bucket holding QR images"`
	MinioUseSSL    bool   `default:"false"    help:"Use TLS for MinIO"`

	QRSweepSchedule string `default:"@every 1m" help:"Schedule of the QR retry sweep, empty disables it"`

	RateLimitStore string `default:"memory" help:"Rate limit counters: memory or redis"`
}

// PublicBaseURL is the prefix of every short URL.
func (o *Options) PublicBaseURL() string {
	if o.BaseURL != "" {
		return o.BaseURL
	}

	return fmt.Sprintf("http://localhost:%d", o.Port)
}

func (o *Options) cacheTTL() time.Duration {
	return time.Duration(o.CacheTTLSeconds) * time.Second
}

func (o *Options) geoTimeout() time.Duration {
	return time.Duration(o.GeoTimeoutMS) * time.Millisecond
}

func (o *Options) qrTimeout() time.Duration {
	return time.Duration(o.QRTimeoutMS) * time.Millisecond
}
