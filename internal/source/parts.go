package source

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/time/rate"
)

// partLoggingClient logs the running tally of parts that manager.Downloader has started receiving.
//
// GetObject may be called from any of the goroutines downloading parts in parallel.
type partLoggingClient struct {
	manager.DownloadAPIClient
	logger    *log.Logger
	partCount int64
	n         atomic.Int64
	sometimes rate.Sometimes
}

func newPartLoggingClient(client manager.DownloadAPIClient, logger *log.Logger, size, partSize int64) *partLoggingClient {
	return &partLoggingClient{
		DownloadAPIClient: client,
		logger:            logger,
		partCount:         (size + partSize - 1) / max(partSize, 1),
		sometimes:         rate.Sometimes{First: 1, Interval: 5 * time.Second},
	}
}

func (c *partLoggingClient) GetObject(ctx context.Context, input *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	output, err := c.DownloadAPIClient.GetObject(ctx, input, optFns...)
	if err == nil {
		n := c.n.Add(1)
		c.sometimes.Do(func() {
			c.logger.Printf("receiving part %d/%d", n, c.partCount)
		})
	}

	return output, err
}
